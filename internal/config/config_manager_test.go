package config

import "testing"

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Prover.Path = "/usr/bin/prover"
	cfg.Merger.Path = "/usr/bin/merger"
	cfg.Fetcher.Enabled = false

	v := NewValidator()
	if errs := v.Validate(cfg); len(errs) != 0 {
		t.Fatalf("unexpected validation errors: %v", errs)
	}
}

func TestValidateMissingProverAndMerger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fetcher.Enabled = false

	errs := NewValidator().Validate(cfg)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors (prover, merger), got %d: %v", len(errs), errs)
	}
}

func TestValidateFetcherEnabledWithoutSidecar(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Prover.Path = "/bin/prover"
	cfg.Merger.Path = "/bin/merger"
	cfg.Fetcher.Enabled = true
	cfg.Fetcher.SidecarPath = ""

	errs := NewValidator().Validate(cfg)
	found := false
	for _, err := range errs {
		if err == nil {
			continue
		}
		found = true
	}
	if !found {
		t.Fatalf("expected an error for enabled fetcher with no sidecar path")
	}
}

func TestConfigManagerSourceTracking(t *testing.T) {
	cm := NewConfigManager()
	if cm.Source("datadir") != SourceDefault {
		t.Fatalf("expected SourceDefault before any Set call")
	}
	cm.SetDataDir("/tmp/rollup", SourceCLI)
	if cm.Source("datadir") != SourceCLI {
		t.Fatalf("expected SourceCLI after SetDataDir")
	}
	if cm.Config().DataDir != "/tmp/rollup" {
		t.Fatalf("datadir = %q, want /tmp/rollup", cm.Config().DataDir)
	}
}

func TestMergePrecedence(t *testing.T) {
	def := DefaultConfig()
	envCfg := &Config{LogLevel: "debug"}
	cliCfg := &Config{DataDir: "/data/rollup"}

	merged := Merge(def, envCfg, cliCfg)
	if merged.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", merged.LogLevel)
	}
	if merged.DataDir != "/data/rollup" {
		t.Fatalf("DataDir = %q, want /data/rollup", merged.DataDir)
	}
	// RPC listen address was not overridden, default should survive.
	if merged.RPC.ListenAddr != def.RPC.ListenAddr {
		t.Fatalf("RPC.ListenAddr = %q, want default %q", merged.RPC.ListenAddr, def.RPC.ListenAddr)
	}
}

func TestResolvePath(t *testing.T) {
	cfg := &Config{DataDir: "/data/rollup"}
	if got := cfg.ResolvePath("balances/list.bin"); got != "/data/rollup/balances/list.bin" {
		t.Fatalf("ResolvePath = %q", got)
	}
	if got := cfg.ResolvePath("/abs/path"); got != "/abs/path" {
		t.Fatalf("ResolvePath absolute = %q", got)
	}
}
