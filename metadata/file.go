package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mohitkumar/promptflow/model"
	"gopkg.in/yaml.v3"
)

// LoadProjectFile reads a project document from a JSON or YAML file. YAML is
// converted to JSON first so both formats share the document's field names.
func LoadProjectFile(path string) (*model.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing project file %s: %w", path, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("converting project file %s: %w", path, err)
		}
	}
	var project model.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("parsing project file %s: %w", path, err)
	}
	return &project, nil
}
