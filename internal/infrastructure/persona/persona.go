package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

// pack is the on-disk YAML shape of one persona.
type pack struct {
	Name         string `yaml:"name"`
	DisplayName  string `yaml:"display_name"`
	Era          string `yaml:"era"`
	SystemPrompt string `yaml:"system_prompt"`
}

// Registry holds the loaded persona packs plus the built-in default.
type Registry struct {
	personas map[string]domain.Persona
}

func NewRegistry() *Registry {
	return &Registry{
		personas: map[string]domain.Persona{
			Default.Name: Default,
		},
	}
}

// LoadDir reads every *.yaml/*.yml pack in dir into the registry.
// A missing directory is not an error; the built-in default remains.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read persona dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read persona pack %s: %w", entry.Name(), err)
		}
		var p pack
		if err := yaml.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("parse persona pack %s: %w", entry.Name(), err)
		}
		if p.Name == "" || strings.TrimSpace(p.SystemPrompt) == "" {
			return fmt.Errorf("persona pack %s: name and system_prompt are required", entry.Name())
		}
		r.personas[p.Name] = domain.Persona{
			Name:         p.Name,
			DisplayName:  p.DisplayName,
			Era:          p.Era,
			SystemPrompt: p.SystemPrompt,
		}
	}
	return nil
}

// Get resolves a persona by name, falling back to the default when the
// name is empty or unknown.
func (r *Registry) Get(name string) domain.Persona {
	if p, ok := r.personas[name]; ok {
		return p
	}
	return Default
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.personas))
	for name := range r.personas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
