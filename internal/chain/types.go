package chain

// utxoResponse wraps the indexer's UTXO listing.
type utxoResponse struct {
	UTXOs []UTXO `json:"utxos"`
}

// UTXO is one unspent output as reported by the indexer. Token amounts
// arrive as strings because they can exceed the range of a JSON number.
type UTXO struct {
	TxID     string     `json:"txid"`
	Vout     uint32     `json:"vout"`
	Satoshis int64      `json:"satoshis"`
	Token    *TokenData `json:"token,omitempty"`
}

// TokenData is the CashTokens payload attached to a UTXO.
type TokenData struct {
	Category string   `json:"category"`
	Amount   string   `json:"amount"`
	NFT      *NFTData `json:"nft,omitempty"`
}

// NFTData describes the non-fungible part of a token payload.
type NFTData struct {
	Capability string `json:"capability"`
	Commitment string `json:"commitment"`
}
