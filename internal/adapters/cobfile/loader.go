// Package cobfile reads and parses .weft.yaml scene files into the decoded
// structures the loading engine consumes.
package cobfile

import (
	"context"
	"os"
	"path/filepath"

	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/weft/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.SceneFileLoader = (*Loader)(nil)

// sceneFileDTO is the on-disk structure of a .weft.yaml file.
type sceneFileDTO struct {
	// Key optionally registers the file itself under a manifest key.
	Key      string               `yaml:"key"`
	Manifest []manifestEntryDTO   `yaml:"manifest"`
	Commands []valueEntryDTO      `yaml:"commands"`
	Scenes   map[string]sceneNode `yaml:"scenes"`
}

type manifestEntryDTO struct {
	File string `yaml:"file"`
	As   string `yaml:"as"`
}

type valueEntryDTO struct {
	Type  string `yaml:"type"`
	Value any    `yaml:"value"`
}

type sceneNode struct {
	Loadables []valueEntryDTO      `yaml:"loadables"`
	Nodes     map[string]sceneNode `yaml:"nodes"`
}

// Loader implements ports.SceneFileLoader for .weft.yaml files.
type Loader struct{}

// NewLoader creates a Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the scene file at path, relative to root.
func (l *Loader) Load(_ context.Context, root, path string) (*domain.ParsedFile, error) {
	if !domain.IsSceneFile(path) {
		return nil, zerr.With(domain.ErrNotASceneFile, "path", path)
	}

	data, err := os.ReadFile(filepath.Join(root, path)) //nolint:gosec // path comes from the manifest tree under the user's root
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "path", path)
	}

	var dto sceneFileDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFileParseFailed.Error()), "path", path)
	}

	return buildParsedFile(path, &dto)
}

func buildParsedFile(path string, dto *sceneFileDTO) (*domain.ParsedFile, error) {
	parsed := &domain.ParsedFile{
		Name: domain.NewInternedString(filepath.ToSlash(path)),
	}
	if dto.Key != "" {
		parsed.SelfKey = domain.NewInternedString(dto.Key)
	}

	for _, entry := range dto.Manifest {
		if !domain.IsSceneFile(entry.File) {
			return nil, zerr.With(zerr.With(domain.ErrNotASceneFile, "path", path), "manifest_entry", entry.File)
		}
		imp := domain.ManifestImport{File: domain.NewInternedString(filepath.ToSlash(entry.File))}
		if entry.As != "" {
			imp.Key = domain.NewInternedString(entry.As)
		}
		parsed.Imports = append(parsed.Imports, imp)
	}

	for _, entry := range dto.Commands {
		if entry.Type == "" {
			return nil, zerr.With(zerr.New("command entry is missing a type"), "path", path)
		}
		value, err := domain.NewErasedValue(entry.Type, entry.Value)
		if err != nil {
			return nil, zerr.With(err, "path", path)
		}
		parsed.Commands = append(parsed.Commands, value)
	}

	scenes, err := flattenScenes(path, parsed.Name, dto.Scenes)
	if err != nil {
		return nil, err
	}
	parsed.Scenes = scenes

	return parsed, nil
}

// flattenScenes turns the nested scene node mapping into a flat pre-order
// list of full-path nodes, using an explicit stack to bound nesting depth.
func flattenScenes(path string, file domain.InternedString, roots map[string]sceneNode) ([]domain.ParsedScene, error) {
	type frame struct {
		path string
		node sceneNode
	}

	stack := make([]frame, 0, len(roots))
	for name, node := range roots {
		stack = append(stack, frame{path: name, node: node})
	}

	var out []domain.ParsedScene
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(f.path) > maxScenePathLength {
			return nil, zerr.With(zerr.With(domain.ErrTraversalDepthExceeded, "path", path), "node", f.path)
		}

		ref := domain.SceneRef{File: file, Path: domain.NewInternedString(f.path)}
		scene := domain.ParsedScene{Ref: ref}
		for _, entry := range f.node.Loadables {
			if entry.Type == "" {
				return nil, zerr.With(zerr.With(zerr.New("loadable entry is missing a type"), "path", path), "node", f.path)
			}
			value, err := domain.NewErasedValue(entry.Type, entry.Value)
			if err != nil {
				return nil, zerr.With(zerr.With(err, "path", path), "node", f.path)
			}
			scene.Loadables = append(scene.Loadables, value)
		}
		out = append(out, scene)

		for name, child := range f.node.Nodes {
			stack = append(stack, frame{
				path: f.path + domain.PathSeparator + name,
				node: child,
			})
		}
	}
	return out, nil
}

// maxScenePathLength caps scene node nesting, mirroring the tree depth bound
// applied to the file hierarchy.
const maxScenePathLength = 4096
