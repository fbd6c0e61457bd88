package domain

import "go.trai.ch/zerr"

var (
	// ErrUnknownFile is returned when an operation references a file that was never registered.
	ErrUnknownFile = zerr.New("file not registered")

	// ErrNotAwaitingCommands is returned when commands are set on a file whose descendants are not reconciled yet.
	ErrNotAwaitingCommands = zerr.New("file is not awaiting commands")

	// ErrTraversalDepthExceeded is returned when a tree walk exceeds the depth bound, which usually means a manifest import loop.
	ErrTraversalDepthExceeded = zerr.New("tree traversal exceeded depth bound; manifest import loop likely")

	// ErrLoadableIndexOutOfRange is returned when a loadable is inserted past the end of a scene node's list.
	ErrLoadableIndexOutOfRange = zerr.New("loadable index out of range")

	// ErrValueNotHashable is returned when a value cannot be serialized for content hashing.
	ErrValueNotHashable = zerr.New("failed to serialize value for hashing")

	// ErrManifestKeyUnknown is returned when a manifest key cannot be resolved to a file.
	ErrManifestKeyUnknown = zerr.New("manifest key does not resolve to a file")

	// ErrFileReadFailed is returned when a scene file cannot be read.
	ErrFileReadFailed = zerr.New("failed to read scene file")

	// ErrFileParseFailed is returned when a scene file cannot be parsed.
	ErrFileParseFailed = zerr.New("failed to parse scene file")

	// ErrNotASceneFile is returned when a manifest entry or root file lacks the scene file suffix.
	ErrNotASceneFile = zerr.New("not a scene file name")

	// ErrNoRootFiles is returned when the run command is invoked without any scene files.
	ErrNoRootFiles = zerr.New("no root scene files specified")

	// ErrLoadFailed is returned when the initial load cannot complete.
	ErrLoadFailed = zerr.New("scene loading failed")

	// ErrWatcherStartFailed is returned when the hot-reload watcher cannot start.
	ErrWatcherStartFailed = zerr.New("failed to start file watcher")
)
