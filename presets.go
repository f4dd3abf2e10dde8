package soluna

import (
	"embed"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yml
var presetFS embed.FS

// Preset is a named built-in scene.
type Preset struct {
	Name  string
	Scene Scene
}

// Presets returns the built-in scene presets, in alphabetical order by file
// name. Presets that fail to parse are silently skipped; the embedded files
// are covered by tests so a skip indicates a packaging error, not a runtime
// condition worth crashing over.
func Presets() []Preset {
	var ret []Preset
	fs.WalkDir(presetFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		data, err := presetFS.ReadFile(path)
		if err != nil {
			return nil
		}
		var scene Scene
		if err := yaml.Unmarshal(data, &scene); err != nil {
			return nil
		}
		if err := scene.Validate(); err != nil {
			return nil
		}
		name := scene.Meta.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		ret = append(ret, Preset{Name: name, Scene: scene})
		return nil
	})
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

// FindPreset returns the built-in preset with the given name, matched case
// insensitively.
func FindPreset(name string) (Preset, bool) {
	for _, p := range Presets() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}
