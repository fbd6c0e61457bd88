package domain

// EntityID identifies a subscriber entity tracking a scene node. The loading
// engine treats it as opaque; callers allocate their own IDs.
type EntityID uint64

// ManifestImport is one entry of a file's manifest section: a child scene
// file plus an optional alias key it is registered under.
type ManifestImport struct {
	// File is the canonical child scene file name.
	File InternedString
	// Key is the manifest alias for the child, or zero if none was given.
	Key InternedString
}

// ParsedScene is one scene node of a parsed file, flattened to its full path.
type ParsedScene struct {
	// Ref locates the node: the owning file plus the "::"-joined path.
	Ref SceneRef
	// Loadables are the node's values in file order.
	Loadables []ErasedValue
}

// ParsedFile is the decoded content of a single scene file, ready to be fed
// into the loading engine.
type ParsedFile struct {
	// Name is the canonical scene file name.
	Name InternedString
	// SelfKey is the manifest key the file registers itself under, or zero.
	SelfKey InternedString
	// Imports lists the file's manifest children in declaration order.
	Imports []ManifestImport
	// Commands are the file's commands in declaration order.
	Commands []ErasedValue
	// Scenes are the file's scene nodes in pre-order (parents before their
	// child nodes), flattened to full paths.
	Scenes []ParsedScene
}

// Descendants returns the ordered child file list extracted from Imports.
func (f *ParsedFile) Descendants() []InternedString {
	if len(f.Imports) == 0 {
		return nil
	}
	out := make([]InternedString, len(f.Imports))
	for i, imp := range f.Imports {
		out[i] = imp.File
	}
	return out
}
