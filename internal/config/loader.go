package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Loader loads and merges settings from the user, project and local
// layers, same priority ladder as the teacher's internal/config.Loader
// (lowest to highest: user, project, local), but rooted at ".loom"
// instead of ".gen"/".claude" and accepting both JSON and YAML files.
type Loader struct {
	UserDir    string
	ProjectDir string
}

// NewLoader creates a loader rooted at ~/.loom and ./.loom.
func NewLoader() *Loader {
	home, _ := os.UserHomeDir()
	return &Loader{
		UserDir:    filepath.Join(home, ".loom"),
		ProjectDir: ".loom",
	}
}

// Load reads every layer present on disk, merging in priority order
// (user < project < local), over the spec's suggested Default().
func (l *Loader) Load() (*Settings, error) {
	settings := Default()

	sources := []string{
		filepath.Join(l.UserDir, "settings.json"),
		filepath.Join(l.UserDir, "settings.yaml"),
		filepath.Join(l.ProjectDir, "settings.json"),
		filepath.Join(l.ProjectDir, "settings.yaml"),
		filepath.Join(l.ProjectDir, "settings.local.json"),
		filepath.Join(l.ProjectDir, "settings.local.yaml"),
	}

	for _, src := range sources {
		layer, err := l.LoadFile(src)
		if err != nil {
			continue // missing/unparseable layer is silently skipped, teacher's Load() behavior
		}
		settings = Merge(settings, layer)
	}

	return settings, nil
}

// LoadFile reads a single settings file, dispatching on extension.
func (l *Loader) LoadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Settings
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		err = yaml.Unmarshal(data, &s)
	} else {
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadDotEnv loads provider credentials from a .env file in the project
// directory, mirroring the teacher's use of github.com/joho/godotenv;
// a missing file is not an error since credentials may come from the
// real environment instead.
func LoadDotEnv(path string) {
	_ = godotenv.Load(path)
}
