package remotepath

import (
	"testing"
)

func TestFullURI(t *testing.T) {
	tests := []struct {
		name string
		path Path
		want string
	}{
		{"file with suffix", New("a/b.txt"), "s3://bucket/a/b.txt"},
		{"folder without suffix", New("a/b"), "s3://bucket/a/b/"},
		{"split segments", New("a", "b", "c.csv"), "s3://bucket/a/b/c.csv"},
		{"root", New(), "s3://bucket/"},
		{"dot root", New("."), "s3://bucket/"},
		{"suffix wins over folder kind", NewWithKind(KindFolder, "x/y.tar"), "s3://bucket/x/y.tar"},
		{"file kind without suffix", NewWithKind(KindFile, "x/README"), "s3://bucket/x/README"},
		{"hidden name has no suffix", New("cfg/.env"), "s3://bucket/cfg/.env/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.path.FullURI("bucket"); got != tt.want {
				t.Errorf("FullURI() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRelativeKey(t *testing.T) {
	if got := New("a/b.txt").RelativeKey(); got != "a/b.txt" {
		t.Errorf("Expected a/b.txt, got %q", got)
	}
	if got := New("a", "b").RelativeKey(); got != "a/b/" {
		t.Errorf("Expected a/b/, got %q", got)
	}
	if got := New().RelativeKey(); got != "" {
		t.Errorf("Expected empty key for root, got %q", got)
	}
}

func TestJoinAndParent(t *testing.T) {
	base := New("data", "2024")

	if !base.Join().Equal(base) {
		t.Error("Join() with no arguments should return an equal path")
	}

	joined := base.Join("run1", "out.log")
	if joined.String() != "data/2024/run1/out.log" {
		t.Errorf("Unexpected joined path: %s", joined)
	}
	if base.String() != "data/2024" {
		t.Errorf("Join mutated the receiver: %s", base)
	}

	if got := joined.Parent().String(); got != "data/2024/run1" {
		t.Errorf("Parent() = %q", got)
	}
	if got := New("top").Parent(); !got.IsRoot() {
		t.Errorf("Parent of a single segment should be root, got %q", got)
	}
	if got := New().Parent(); !got.IsRoot() {
		t.Error("Parent of root should be root")
	}
}

func TestNameAndSuffix(t *testing.T) {
	tests := []struct {
		in         string
		wantName   string
		wantSuffix string
	}{
		{"a/b.txt", "b.txt", ".txt"},
		{"a/archive.tar.gz", "archive.tar.gz", ".gz"},
		{"a/b", "b", ""},
		{"a/.hidden", ".hidden", ""},
		{"a/trailing.", "trailing.", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		p := New(tt.in)
		if p.Name() != tt.wantName {
			t.Errorf("New(%q).Name() = %q, want %q", tt.in, p.Name(), tt.wantName)
		}
		if p.Suffix() != tt.wantSuffix {
			t.Errorf("New(%q).Suffix() = %q, want %q", tt.in, p.Suffix(), tt.wantSuffix)
		}
	}
}

func TestFromRecord(t *testing.T) {
	p := FromRecord(Record{Name: "run1", Level: 2, Kind: KindFolder, Key: "data/run1/"})
	if p.Kind() != KindFolder {
		t.Errorf("Expected folder kind, got %v", p.Kind())
	}
	if p.FullURI("b") != "s3://b/data/run1/" {
		t.Errorf("Unexpected URI %q", p.FullURI("b"))
	}
}

func TestParse(t *testing.T) {
	bucket, p, err := Parse("s3://mybucket/a/b/")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if bucket != "mybucket" || p.String() != "a/b" || p.Kind() != KindFolder {
		t.Errorf("Unexpected parse result: bucket=%q path=%q kind=%v", bucket, p, p.Kind())
	}

	bucket, p, err = Parse("a/c.txt")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if bucket != "" || p.RelativeKey() != "a/c.txt" {
		t.Errorf("Unexpected bare key parse: bucket=%q key=%q", bucket, p.RelativeKey())
	}

	if _, _, err := Parse("gs://bucket/x"); err == nil {
		t.Error("Expected error for unsupported scheme")
	}
	if _, _, err := Parse("s3:///x"); err == nil {
		t.Error("Expected error for missing bucket")
	}
}

func TestSegmentsIsCopy(t *testing.T) {
	p := New("a/b")
	segs := p.Segments()
	segs[0] = "changed"
	if p.String() != "a/b" {
		t.Error("Segments() must not expose internal state")
	}
}
