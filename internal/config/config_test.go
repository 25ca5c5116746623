package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.CacheTTL != 30*time.Second || cfg.CallTimeout != 5*time.Second || cfg.Fanout != 8 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Production() {
		t.Fatalf("default env should not be production")
	}
	loc, err := cfg.LoadLocation()
	if err != nil || loc != time.UTC {
		t.Fatalf("location: %v %v", loc, err)
	}
}

func TestLoadChainsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
env: production
cache-ttl: 10s
chains:
  8453:
    rpc: https://base.example
    contract: "0x1111111111111111111111111111111111111111"
  84532:
    rpc: https://sepolia.example
    contract: "0x2222222222222222222222222222222222222222"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Production() || cfg.CacheTTL != 10*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Chains) != 2 || cfg.Chains[0].ID != 8453 || cfg.Chains[1].RPCURL != "https://sepolia.example" {
		t.Fatalf("unexpected chains: %+v", cfg.Chains)
	}
}

func TestLoadChainsFromEnv(t *testing.T) {
	t.Setenv("POOLLENS_CHAINS", "84532=https://sepolia.example|0x2222222222222222222222222222222222222222")
	t.Setenv("POOLLENS_CACHE_TTL", "1m")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Chains) != 1 || cfg.Chains[0].ID != 84532 {
		t.Fatalf("unexpected chains: %+v", cfg.Chains)
	}
	if cfg.CacheTTL != time.Minute {
		t.Fatalf("env override ignored: %s", cfg.CacheTTL)
	}
}

func TestLoadChainsRejectsMissingContract(t *testing.T) {
	t.Setenv("POOLLENS_CHAINS", "84532=https://sepolia.example")

	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected error for chain without contract")
	}
}

func TestLoadExportFlags(t *testing.T) {
	flags := pflag.NewFlagSet("export", pflag.ContinueOnError)
	flags.Uint64("chain-id", 0, "")
	flags.String("scope", "upcoming", "")
	if err := flags.Parse([]string{"--chain-id=84532", "--scope=PAST"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadExport("", flags)
	if err != nil {
		t.Fatalf("load export: %v", err)
	}
	if cfg.ChainID != 84532 || cfg.Scope != "past" || cfg.Out != "./data/pools.jsonl" {
		t.Fatalf("unexpected export config: %+v", cfg)
	}

	if err := flags.Set("scope", "all"); err != nil {
		t.Fatalf("set scope: %v", err)
	}
	if _, err := LoadExport("", flags); err == nil {
		t.Fatalf("expected scope validation error")
	}
}
