package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/s5bridge/s5bridge/internal/config"
)

// TestConfigCmd tests the config command group
func TestConfigCmd(t *testing.T) {
	cmd := newConfigCmd()
	if cmd == nil {
		t.Fatal("newConfigCmd() returned nil")
	}

	if cmd.Use != "config" {
		t.Errorf("Expected Use='config', got '%s'", cmd.Use)
	}

	subcommands := cmd.Commands()
	expectedSubs := []string{"init", "show", "test", "path"}

	if len(subcommands) != len(expectedSubs) {
		t.Errorf("Expected %d subcommands, got %d", len(expectedSubs), len(subcommands))
	}

	foundSubs := make(map[string]bool)
	for _, sub := range subcommands {
		foundSubs[sub.Name()] = true
		if sub.RunE == nil {
			t.Errorf("Subcommand '%s' has no RunE function", sub.Name())
		}
	}

	for _, expected := range expectedSubs {
		if !foundSubs[expected] {
			t.Errorf("Subcommand '%s' not found", expected)
		}
	}
}

// TestConfigInit tests the config init command structure
func TestConfigInit(t *testing.T) {
	cmd := newConfigInitCmd()
	if cmd.Use != "init" {
		t.Errorf("Expected Use='init', got '%s'", cmd.Use)
	}
	if cmd.Flags().Lookup("force") == nil {
		t.Error("--force flag not found")
	}
}

func TestConfigShowMasksSecret(t *testing.T) {
	isolateConfig(t)
	t.Setenv(config.KeyAccessKeyID, "AKIA")
	t.Setenv(config.KeySecretAccessKey, "topsecret")

	out, err := executeRoot(t, nil, "config", "show", "--bucket", "frombucket")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}

	if strings.Contains(out, "topsecret") {
		t.Error("Secret printed by config show")
	}
	if !strings.Contains(out, "frombucket") {
		t.Errorf("Flag value missing from output:\n%s", out)
	}
	// BUCKETSIZE and the s5cmd settings are not set.
	if !strings.Contains(out, "missing") {
		t.Errorf("Expected incomplete status, got:\n%s", out)
	}
}

func TestConfigInitWritesFile(t *testing.T) {
	dir := isolateConfig(t)
	path := filepath.Join(dir, "s5bridge.env")

	answers := strings.NewReader("archive\n10 TB\nhttp://localhost:9000\ndefault\n8\n")
	if _, err := executeRoot(t, answers, "config", "init", "--config", path); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	cfg, err := config.Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Saved configuration is incomplete: %v", err)
	}
	if cfg.Bucket != "archive" || cfg.Workers != 8 || cfg.Region != config.DefaultRegion {
		t.Errorf("Unexpected configuration: %+v", cfg)
	}
}

func TestConfigInitRefusesExistingFile(t *testing.T) {
	dir := isolateConfig(t)
	path := filepath.Join(dir, "s5bridge.env")
	if err := os.WriteFile(path, []byte("BUCKETNAME=keep\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := executeRoot(t, strings.NewReader("\n"), "config", "init", "--config", path)
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("Expected refusal, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "BUCKETNAME=keep\n" {
		t.Errorf("File was modified: %q", data)
	}
}

func TestConfigPath(t *testing.T) {
	isolateConfig(t)

	out, err := executeRoot(t, nil, "config", "path")
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if !strings.Contains(out, "Configuration file: .env") {
		t.Errorf("Unexpected output:\n%s", out)
	}
	if !strings.Contains(out, config.DefaultLogFile()) {
		t.Errorf("Log file missing from output:\n%s", out)
	}
}
