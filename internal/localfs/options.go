package localfs

// WalkOptions configures the behavior of Walk.
type WalkOptions struct {
	// IncludeHidden includes hidden files and directories in the walk.
	// Default is false (hidden items excluded).
	IncludeHidden bool

	// SkipHiddenDirs skips descending into hidden directories entirely.
	// Only meaningful when IncludeHidden is false.
	SkipHiddenDirs bool
}

// AllFiles visits everything, matching what the copy tool transfers for a
// "<dir>/*" source.
var AllFiles = WalkOptions{IncludeHidden: true}
