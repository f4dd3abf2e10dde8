package soluna

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseScene parses the bytes of a scene file into a Scene. Scene files are
// JSON documents, but for hand-edited files YAML is accepted too, so the
// data is tried as .json first and as .yml second.
func ParseScene(data []byte) (Scene, error) {
	var scene Scene
	if errJSON := json.Unmarshal(data, &scene); errJSON != nil {
		if errYaml := yaml.Unmarshal(data, &scene); errYaml != nil {
			return Scene{}, fmt.Errorf("the scene could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	if err := scene.Validate(); err != nil {
		return Scene{}, fmt.Errorf("parsed scene is not valid: %w", err)
	}
	return scene, nil
}

// Encode marshals the scene, choosing the format by the file extension:
// ".json" produces an indented JSON document, everything else YAML.
func (s *Scene) Encode(extension string) ([]byte, error) {
	var contents []byte
	var err error
	if extension == ".json" {
		contents, err = json.MarshalIndent(s, "", "  ")
	} else {
		contents, err = yaml.Marshal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("error marshaling a scene file: %v", err)
	}
	return contents, nil
}
