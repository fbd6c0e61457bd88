package domain

import "strings"

// FileSuffix is the canonical extension for weft scene files.
const FileSuffix = ".weft.yaml"

// PathSeparator joins segments of a scene node path.
const PathSeparator = "::"

// IsSceneFile reports whether name refers to a scene file directly rather
// than to a manifest key. Manifest keys are dotted aliases without the scene
// file suffix (e.g. "ui.widgets").
func IsSceneFile(name string) bool {
	return strings.HasSuffix(name, FileSuffix)
}

// JoinScenePath concatenates node path segments with the path separator,
// skipping empty segments: ["a", "", "b"] -> "a::b".
func JoinScenePath(segments ...string) InternedString {
	var b strings.Builder
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(PathSeparator)
		}
		b.WriteString(seg)
	}
	return NewInternedString(b.String())
}

// SceneRef identifies a scene node: a file (or a manifest key standing in for
// a file until resolved) plus a node path within that file.
type SceneRef struct {
	// File is the canonical scene file name, or a manifest key before
	// resolution against the manifest map.
	File InternedString
	// Path is the "::"-joined node path within the file.
	Path InternedString
}

// NewSceneRef creates a SceneRef from a file-or-key name and path segments.
func NewSceneRef(file string, segments ...string) SceneRef {
	return SceneRef{
		File: NewInternedString(file),
		Path: JoinScenePath(segments...),
	}
}

// String renders the ref as "file#a::b".
func (r SceneRef) String() string {
	return r.File.String() + "#" + r.Path.String()
}
