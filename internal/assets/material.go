package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// MaterialExt is the extension of material asset files.
const MaterialExt = ".mat"

// Material binds a compiled shader to renderable objects.
type Material struct {
	Name       string `yaml:"name"`
	GUID       string `yaml:"guid"`
	Shader     string `yaml:"shader"`
	ShaderPath string `yaml:"shader_path"`

	// Path is where the material is stored; it is not serialized.
	Path string `yaml:"-"`
}

// NewMaterial builds an unsaved material for the artifact, named after the
// file stem of path.
func NewMaterial(path string, a *Artifact) *Material {
	return &Material{
		Name:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		GUID:       strings.ReplaceAll(uuid.NewString(), "-", ""),
		Shader:     a.Name,
		ShaderPath: a.Path,
		Path:       path,
	}
}

func writeMaterial(m *Material) error {
	if err := os.MkdirAll(filepath.Dir(m.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create material directory: %w", err)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal material %s: %w", m.Name, err)
	}
	if err := os.WriteFile(m.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write material %s: %w", m.Path, err)
	}
	return nil
}

func readMaterial(path string) (*Material, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read material %s: %w", path, err)
	}
	var m Material
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse material %s: %w", path, err)
	}
	m.Path = path
	return &m, nil
}
