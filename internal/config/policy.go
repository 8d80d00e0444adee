package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cashpeg/pegvault/internal/domain"
	"github.com/cashpeg/pegvault/internal/policy"
)

// policyFile is the YAML shape of a vault's policy file. These values
// are fixed at deployment: changing scales changes validator semantics
// and requires a new vault, not an edit.
type policyFile struct {
	TokenCategory       string `yaml:"tokenCategory"`
	AuthorityCategory   string `yaml:"authorityCategory"`
	AuthorityCommitment string `yaml:"authorityCommitment"`
	VaultAddress        string `yaml:"vaultAddress"`
	BaseScale           int64  `yaml:"baseScale"`
	PriceScale          int64  `yaml:"priceScale"`
}

// LoadPolicy reads and validates the vault policy from a YAML file.
func LoadPolicy(path string) (policy.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("reading policy file: %w", err)
	}
	return parsePolicy(data)
}

func parsePolicy(data []byte) (policy.Policy, error) {
	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return policy.Policy{}, fmt.Errorf("parsing policy file: %w", err)
	}

	tokenCategory, err := domain.ParseCategory(pf.TokenCategory)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("policy tokenCategory: %w", err)
	}
	authorityCategory, err := domain.ParseCategory(pf.AuthorityCategory)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("policy authorityCategory: %w", err)
	}
	commitment, err := domain.ParseCommitment(pf.AuthorityCommitment)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("policy authorityCommitment: %w", err)
	}
	if pf.VaultAddress == "" {
		return policy.Policy{}, fmt.Errorf("policy vaultAddress is required")
	}

	p := policy.New(tokenCategory, authorityCategory, commitment, pf.VaultAddress)
	if pf.BaseScale > 0 {
		p.BaseScale = pf.BaseScale
	}
	if pf.PriceScale > 0 {
		p.PriceScale = pf.PriceScale
	}
	return p, nil
}
