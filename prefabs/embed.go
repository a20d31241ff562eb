package prefabs

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/milk9111/simcore/ecs"
)

//go:embed scripts/*.tengo
var ScriptsFS embed.FS

//go:embed *.yaml
var PrefabsFS embed.FS

var ErrUnknownPrefab = errors.New("prefabs: unknown prefab")

// Library resolves prefabs and scripts from an optional directory on disk,
// falling back to the embedded copies. Parsed prefabs are cached until
// Invalidate is called for them.
type Library struct {
	dir string

	mu    sync.Mutex
	specs map[string]EntitySpec
}

func NewLibrary(dir string) *Library {
	return &Library{dir: dir, specs: map[string]EntitySpec{}}
}

func (l *Library) Dir() string {
	return l.dir
}

// Spec returns the named prefab. Names may omit the .yaml extension.
func (l *Library) Spec(name string) (EntitySpec, error) {
	clean := cleanPrefabPath(name)
	l.mu.Lock()
	spec, ok := l.specs[clean]
	l.mu.Unlock()
	if ok {
		return spec, nil
	}

	data, err := l.load(clean)
	if err != nil {
		return EntitySpec{}, err
	}
	spec, err = ParseEntitySpec(data)
	if err != nil {
		return EntitySpec{}, fmt.Errorf("prefabs: %s: %w", clean, err)
	}
	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(clean, path.Ext(clean))
	}

	l.mu.Lock()
	l.specs[clean] = spec
	l.mu.Unlock()
	return spec, nil
}

func (l *Library) Invalidate(name string) {
	l.mu.Lock()
	delete(l.specs, cleanPrefabPath(name))
	l.mu.Unlock()
}

// Names lists every prefab available on disk or embedded.
func (l *Library) Names() []string {
	seen := map[string]struct{}{}
	collect := func(fsys fs.FS) {
		entries, err := fs.ReadDir(fsys, ".")
		if err != nil {
			return
		}
		for _, e := range entries {
			if !e.IsDir() && isSpecFile(e.Name()) {
				seen[strings.TrimSuffix(e.Name(), path.Ext(e.Name()))] = struct{}{}
			}
		}
	}
	collect(PrefabsFS)
	if l.dir != "" {
		collect(os.DirFS(l.dir))
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Spawn builds the named prefab with data overlaid. An empty prefab name
// builds the entity from data alone. Its signature matches system.Spawner.
func (l *Library) Spawn(w *ecs.World, id ecs.StableID, prefab string, x, y float64, data map[string]any) error {
	spec, err := l.Resolve(prefab, data)
	if err != nil {
		return err
	}
	_, err = Build(w, id, spec, x, y)
	return err
}

// Resolve looks up prefab, if named, and overlays data on it.
func (l *Library) Resolve(prefab string, data map[string]any) (EntitySpec, error) {
	var spec EntitySpec
	var err error
	if prefab != "" {
		if spec, err = l.Spec(prefab); err != nil {
			return EntitySpec{}, err
		}
	}
	if len(data) > 0 {
		if spec, err = spec.Merge(data); err != nil {
			return EntitySpec{}, err
		}
	}
	return spec, nil
}

// Script returns the source of the named script.
func (l *Library) Script(name string) ([]byte, error) {
	clean := cleanScriptPath(name)
	if l.dir != "" {
		if data, err := os.ReadFile(filepath.Join(l.dir, filepath.FromSlash(clean))); err == nil {
			return data, nil
		}
	}
	data, err := ScriptsFS.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("prefabs: script %s: %w", name, err)
	}
	return data, nil
}

// Scripts returns every available script keyed by name without extension.
// Disk copies win over embedded ones.
func (l *Library) Scripts() (map[string]string, error) {
	out := map[string]string{}
	read := func(fsys fs.FS) error {
		entries, err := fs.ReadDir(fsys, "scripts")
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		for _, e := range entries {
			if e.IsDir() || !isScriptFile(e.Name()) {
				continue
			}
			data, err := fs.ReadFile(fsys, path.Join("scripts", e.Name()))
			if err != nil {
				return err
			}
			out[ScriptName(e.Name())] = string(data)
		}
		return nil
	}
	if err := read(ScriptsFS); err != nil {
		return nil, err
	}
	if l.dir != "" {
		if err := read(os.DirFS(l.dir)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l *Library) load(clean string) ([]byte, error) {
	if l.dir != "" {
		if data, err := os.ReadFile(filepath.Join(l.dir, filepath.FromSlash(clean))); err == nil {
			return data, nil
		}
	}
	data, err := PrefabsFS.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrefab, clean)
	}
	return data, nil
}

// ScriptName maps a script file path to the name scripts are loaded under.
func ScriptName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func cleanPrefabPath(p string) string {
	if p == "" {
		return ""
	}
	s := filepath.ToSlash(p)
	if after, ok := strings.CutPrefix(s, "prefabs/"); ok {
		s = after
	}
	if !isSpecFile(s) {
		s += ".yaml"
	}
	return s
}

func cleanScriptPath(p string) string {
	if p == "" {
		return ""
	}

	s := filepath.ToSlash(p)

	if after, ok := strings.CutPrefix(s, "prefabs/"); ok {
		s = after
	}

	if after, ok := strings.CutPrefix(s, "scripts/"); ok {
		s = after
	}

	if !isScriptFile(s) {
		s += ".tengo"
	}

	return "scripts/" + s
}
