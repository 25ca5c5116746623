package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// ExportConfig holds configuration for the export command.
type ExportConfig struct {
	Config
	ChainID uint64
	Scope   string
	Out     string
}

// LoadExport merges config file, environment variables, and flags into ExportConfig.
func LoadExport(cfgFile string, flags *pflag.FlagSet) (ExportConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ExportConfig{}, err
	}
	v.SetDefault("scope", "upcoming")
	v.SetDefault("out", "./data/pools.jsonl")

	base, err := fromViper(v)
	if err != nil {
		return ExportConfig{}, err
	}

	cfg := ExportConfig{
		Config:  base,
		ChainID: v.GetUint64("chain-id"),
		Scope:   strings.ToLower(strings.TrimSpace(v.GetString("scope"))),
		Out:     v.GetString("out"),
	}
	if cfg.Scope != "upcoming" && cfg.Scope != "past" {
		return ExportConfig{}, fmt.Errorf("scope must be upcoming or past, got %q", cfg.Scope)
	}
	return cfg, nil
}
