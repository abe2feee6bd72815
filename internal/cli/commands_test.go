package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/s5bridge/s5bridge/internal/config"
	"github.com/s5bridge/s5bridge/internal/logging"
	"github.com/s5bridge/s5bridge/internal/remotepath"
	"github.com/s5bridge/s5bridge/internal/storage"
	"github.com/s5bridge/s5bridge/internal/storage/storagetest"
	"github.com/s5bridge/s5bridge/internal/transfer"
	"github.com/s5bridge/s5bridge/internal/tree"
)

// TestCommands tests that every command is constructed with a handler
func TestCommands(t *testing.T) {
	commands := []struct {
		name     string
		createFn func() *cobra.Command
	}{
		{"upload", newUploadCmd},
		{"download", newDownloadCmd},
		{"ls", newLsCmd},
		{"tree", newTreeCmd},
		{"du", newDuCmd},
		{"df", newDfCmd},
		{"rm", newRmCmd},
	}

	for _, c := range commands {
		t.Run(c.name, func(t *testing.T) {
			cmd := c.createFn()
			if cmd == nil {
				t.Fatalf("Command '%s' creation returned nil", c.name)
			}
			if cmd.Name() != c.name {
				t.Errorf("Expected name '%s', got '%s'", c.name, cmd.Name())
			}
			if cmd.RunE == nil {
				t.Errorf("Command '%s' has no RunE function", c.name)
			}
			if cmd.Short == "" {
				t.Errorf("Command '%s' has empty Short description", c.name)
			}
		})
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		flags []string
	}{
		{newUploadCmd(), []string{"to", "new-folder", "delete-source"}},
		{newDownloadCmd(), []string{"to", "delete-source"}},
		{newTreeCmd(), []string{"depth"}},
		{newDfCmd(), []string{"usage"}},
		{newRmCmd(), []string{"yes"}},
	}

	for _, tt := range tests {
		for _, name := range tt.flags {
			if tt.cmd.Flags().Lookup(name) == nil {
				t.Errorf("%s: --%s flag not found", tt.cmd.Name(), name)
			}
		}
	}
}

// TestAddCommands tests that AddCommands adds every command to root
func TestAddCommands(t *testing.T) {
	rootCmd := NewRootCmd()
	AddCommands(rootCmd)

	found := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		found[cmd.Name()] = true
	}
	for _, expected := range []string{"upload", "download", "ls", "tree", "du", "df", "rm", "config"} {
		if !found[expected] {
			t.Errorf("Command '%s' not found in root command", expected)
		}
	}
}

func TestRootRegistersConfigFlags(t *testing.T) {
	rootCmd := NewRootCmd()
	for name := range config.FlagKeys {
		f := rootCmd.PersistentFlags().Lookup(name)
		if f == nil {
			t.Errorf("--%s flag not found", name)
			continue
		}
		if f.Usage == "" {
			t.Errorf("--%s has no usage text", name)
		}
	}
	for _, name := range []string{"config", "verbose", "debug"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("--%s flag not found", name)
		}
	}
}

func testSession() *session {
	return &session{
		cfg:    &config.Config{Bucket: "archive"},
		logger: logging.Nop(),
	}
}

func TestUploadTarget(t *testing.T) {
	s := testSession()

	tests := []struct {
		name      string
		target    string
		newFolder string
		want      string
		wantErr   bool
	}{
		{"root", "", "", "", false},
		{"bare key", "runs/7", "", "runs/7/", false},
		{"uri", "s3://archive/runs/7/", "", "runs/7/", false},
		{"new folder", "runs/7", "inputs", "runs/7/inputs/", false},
		{"new folder at root", "", "inputs", "inputs/", false},
		{"file destination", "runs/out.txt", "", "", true},
		{"other bucket", "s3://other/runs", "", "", true},
		{"padded folder name", "runs", " inputs", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.uploadTarget(tt.target, tt.newFolder)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected an error, got %q", got.RelativeKey())
				}
				return
			}
			if err != nil {
				t.Fatalf("uploadTarget failed: %v", err)
			}
			if got.RelativeKey() != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got.RelativeKey())
			}
		})
	}

	if _, err := s.uploadTarget("runs/out.txt", ""); !errors.Is(err, ErrFileDestination) {
		t.Errorf("Expected ErrFileDestination, got %v", err)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"y\n", true, false},
		{"YES\n", true, false},
		{"  yes  \n", true, false},
		{"\n", false, false},
		{"no\n", false, false},
		{"y", true, false},
		{"", false, true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tt.input), &out, "Delete s3://archive/a?")
		if (err != nil) != tt.wantErr {
			t.Errorf("confirm(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "[y/N]") {
			t.Errorf("Prompt not written: %q", out.String())
		}
	}
}

func TestDfCommand(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 2048), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newDfCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{dir, "--usage"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("df failed: %v", err)
	}

	if !strings.Contains(out.String(), "free") {
		t.Errorf("Expected free space line, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "1 files, 2.0 KB") {
		t.Errorf("Expected usage line, got:\n%s", out.String())
	}
}

func TestSummarize(t *testing.T) {
	job := transfer.NewJob(transfer.Upload, "/data/run1", remotepath.New("runs"), false)
	got := summarize(job)
	if !strings.HasPrefix(got, "pending   upload /data/run1 -> runs") {
		t.Errorf("Unexpected summary %q", got)
	}
	if strings.Contains(got, "objects") {
		t.Errorf("Summary of an unsized job should omit counts: %q", got)
	}
}

func TestRefreshAfter(t *testing.T) {
	ctx := context.Background()
	b := storagetest.NewBucket("archive")
	b.Put("a.txt", 1)
	engine := tree.NewEngine(storage.New(b, "archive", nil), 2, nil)
	root, err := engine.Initialize(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Expand(ctx, root); err != nil {
		t.Fatal(err)
	}

	names := func() []string {
		var out []string
		for _, rec := range root.ChildRecords() {
			out = append(out, rec.Name)
		}
		return out
	}

	// Downloads that keep their source do not list again.
	calls := b.ListCalls
	keep := transfer.NewJob(transfer.Download, t.TempDir(), remotepath.New("a.txt"), false)
	refreshAfter(ctx, engine, keep, logging.Nop())
	if b.ListCalls != calls {
		t.Errorf("Expected no listing, got %d new calls", b.ListCalls-calls)
	}

	b.Put("runs/7/x.bin", 1)
	up := transfer.NewJob(transfer.Upload, t.TempDir(), remotepath.NewWithKind(remotepath.KindFolder, "runs/7"), false)
	refreshAfter(ctx, engine, up, logging.Nop())
	if diff := cmp.Diff([]string{"runs", "a.txt"}, names()); diff != "" {
		t.Errorf("root children mismatch (-want +got):\n%s", diff)
	}
}

// executeRoot runs the full command tree with args and returns stdout.
func executeRoot(t *testing.T, in io.Reader, args ...string) (string, error) {
	t.Helper()
	rootCmd := NewRootCmd()
	AddCommands(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	if in != nil {
		rootCmd.SetIn(in)
	}
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// isolateConfig clears every configuration variable and moves into an empty
// working directory so no stray .env is read.
func isolateConfig(t *testing.T) string {
	t.Helper()
	for _, key := range config.Keys() {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}
