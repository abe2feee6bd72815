// Package remotepath models locations inside the configured bucket.
//
// A Path never contains the bucket name; the bucket is injected only when a
// full URI is rendered. Paths are immutable values: Join and Parent return
// new instances.
package remotepath

import (
	"fmt"
	"path"
	"strings"
)

// Scheme is the URI scheme understood by s5cmd for S3-compatible stores.
const Scheme = "s3"

// Separator is the key separator used for prefixes.
const Separator = "/"

// Kind tags a path as a file or folder when the origin knows it.
type Kind int

const (
	KindUnknown Kind = iota
	KindFile
	KindFolder
)

// String returns the listing-tree tag for the kind ("f" or "F").
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "f"
	case KindFolder:
		return "F"
	default:
		return "?"
	}
}

// ParseKind converts a listing-tree tag back to a Kind.
func ParseKind(tag string) Kind {
	switch tag {
	case "f":
		return KindFile
	case "F":
		return KindFolder
	default:
		return KindUnknown
	}
}

// Path is a bucket-relative location.
type Path struct {
	segments []string
	kind     Kind
}

// Record is the listing-tree representation of a node:
// display name, level, kind tag and absolute (bucket-relative) key.
type Record struct {
	Name  string
	Level int
	Kind  Kind
	Key   string
}

// New builds a path from raw segments. Each argument may itself contain
// separators ("a/b.txt"); empty and "." components are dropped.
func New(components ...string) Path {
	return Path{segments: split(nil, components)}
}

// NewWithKind is New with an explicit kind tag.
func NewWithKind(kind Kind, components ...string) Path {
	p := New(components...)
	p.kind = kind
	return p
}

// FromRecord builds a path from a listing-tree record.
func FromRecord(r Record) Path {
	return NewWithKind(r.Kind, r.Key)
}

// Parse accepts either a bare key ("a/b") or a full URI ("s3://bucket/a/b")
// and returns the bucket (empty for bare keys) and the path.
func Parse(s string) (string, Path, error) {
	prefix := Scheme + "://"
	if !strings.HasPrefix(s, prefix) {
		if strings.Contains(s, "://") {
			return "", Path{}, fmt.Errorf("unsupported scheme in %q: expected %s://", s, Scheme)
		}
		return "", withTrailingKind(New(s), s), nil
	}
	rest := strings.TrimPrefix(s, prefix)
	bucket, key, _ := strings.Cut(rest, Separator)
	if bucket == "" {
		return "", Path{}, fmt.Errorf("missing bucket in %q", s)
	}
	return bucket, withTrailingKind(New(key), key), nil
}

// A trailing separator on user input marks a folder.
func withTrailingKind(p Path, raw string) Path {
	if strings.HasSuffix(raw, Separator) {
		p.kind = KindFolder
	}
	return p
}

func split(dst []string, components []string) []string {
	for _, c := range components {
		for _, s := range strings.Split(c, Separator) {
			if s == "" || s == "." {
				continue
			}
			dst = append(dst, s)
		}
	}
	return dst
}

// Join appends components. Joining nothing returns an equal path.
func (p Path) Join(components ...string) Path {
	if len(components) == 0 {
		return p
	}
	segs := make([]string, len(p.segments), len(p.segments)+len(components))
	copy(segs, p.segments)
	return Path{segments: split(segs, components)}
}

// Parent returns the containing folder. The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p.segments) <= 1 {
		return Path{kind: KindFolder}
	}
	segs := make([]string, len(p.segments)-1)
	copy(segs, p.segments)
	return Path{segments: segs, kind: KindFolder}
}

// Name returns the last segment, or "" for the root.
func (p Path) Name() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Suffix returns the extension of the last segment including the dot.
// Leading-dot names (".env") and trailing dots have no suffix.
func (p Path) Suffix() string {
	name := p.Name()
	i := strings.LastIndex(name, ".")
	if i > 0 && i < len(name)-1 {
		return name[i:]
	}
	return ""
}

// Kind returns the origin kind tag.
func (p Path) Kind() Kind { return p.kind }

// IsRoot reports whether the path has no segments.
func (p Path) IsRoot() bool { return len(p.segments) == 0 }

// IsFile reports whether the path renders as a single object. A suffix
// always makes it a file; otherwise the kind tag decides.
func (p Path) IsFile() bool {
	if p.IsRoot() {
		return false
	}
	return p.Suffix() != "" || p.kind == KindFile
}

// Segments returns a copy of the path components.
func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Equal compares segments only.
func (p Path) Equal(o Path) bool {
	if len(p.segments) != len(o.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != o.segments[i] {
			return false
		}
	}
	return true
}

// FullURI renders s3://bucket/key, with a trailing separator for folders.
func (p Path) FullURI(bucket string) string {
	return Scheme + "://" + path.Join(bucket, p.join()) + p.trailer()
}

// RelativeKey renders the key without scheme and bucket. Folders end with a
// separator; the root renders as the empty prefix.
func (p Path) RelativeKey() string {
	if p.IsRoot() {
		return ""
	}
	return p.join() + p.trailer()
}

// String returns the bare key without trailing separator.
func (p Path) String() string {
	return p.join()
}

func (p Path) join() string {
	return strings.Join(p.segments, Separator)
}

func (p Path) trailer() string {
	if p.IsFile() {
		return ""
	}
	return Separator
}
