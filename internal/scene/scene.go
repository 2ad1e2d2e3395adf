// Package scene persists the objects spawned into the evolution scene as a
// YAML document.
package scene

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	ErrObjectNotFound  = errors.New("scene object not found")
	ErrUnknownTemplate = errors.New("unknown object template")
	ErrNoRenderer      = errors.New("object has no renderer")
	ErrParentNotFound  = errors.New("parent container not found")
)

// TemplateEmpty is a container with no renderer.
const TemplateEmpty = "Empty"

// renderable lists the primitive templates that carry a renderer.
var renderable = map[string]bool{
	"Sphere":   true,
	"Cube":     true,
	"Quad":     true,
	"Plane":    true,
	"Capsule":  true,
	"Cylinder": true,
}

// IsTemplate reports whether name is a known template.
func IsTemplate(name string) bool {
	return name == TemplateEmpty || renderable[name]
}

// Object is one spawned scene object.
type Object struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Template  string    `yaml:"template"`
	Parent    string    `yaml:"parent,omitempty"`
	Renderer  bool      `yaml:"renderer"`
	Material  string    `yaml:"material,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
}

type document struct {
	Objects []*Object `yaml:"objects"`
}

// Scene is a mutable scene document backed by a file. It is safe for
// concurrent use; changes reach disk only on Save.
type Scene struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	objects map[string]*Object
}

// Open loads the scene at path, or starts an empty one if it does not exist.
func Open(path string, logger *zap.Logger) (*Scene, error) {
	s := &Scene{
		path:    path,
		logger:  logger.Named("scene"),
		objects: make(map[string]*Object),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read scene %s: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scene %s: %w", path, err)
	}
	for _, obj := range doc.Objects {
		if obj == nil || obj.ID == "" {
			continue
		}
		s.objects[obj.ID] = obj
	}
	return s, nil
}

// Path returns the scene file location.
func (s *Scene) Path() string { return s.path }

// EnsureContainer returns the ID of the Empty object named name, creating it
// when missing.
func (s *Scene) EnsureContainer(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj := s.findByNameLocked(name, TemplateEmpty); obj != nil {
		return obj.ID, nil
	}
	obj := s.newObjectLocked(TemplateEmpty, "", name)
	s.logger.Debug("Created container", zap.String("name", name), zap.String("id", obj.ID))
	return obj.ID, nil
}

// Instantiate spawns a template under the named parent container ("" for the
// scene root) and returns the new object's ID.
func (s *Scene) Instantiate(template, parent, name string) (string, error) {
	if !IsTemplate(template) {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, template)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if parent != "" && s.findByNameLocked(parent, TemplateEmpty) == nil {
		return "", fmt.Errorf("%w: %q", ErrParentNotFound, parent)
	}
	obj := s.newObjectLocked(template, parent, name)
	s.logger.Debug("Instantiated object", zap.String("name", name), zap.String("template", template), zap.String("parent", parent))
	return obj.ID, nil
}

func (s *Scene) newObjectLocked(template, parent, name string) *Object {
	obj := &Object{
		ID:        uuid.NewString(),
		Name:      name,
		Template:  template,
		Parent:    parent,
		Renderer:  renderable[template],
		CreatedAt: time.Now().UTC(),
	}
	s.objects[obj.ID] = obj
	return obj
}

func (s *Scene) findByNameLocked(name, template string) *Object {
	for _, obj := range s.objects {
		if obj.Name == name && obj.Template == template {
			return obj
		}
	}
	return nil
}

// Destroy removes the object with the given ID.
func (s *Scene) Destroy(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[id]; !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	delete(s.objects, id)
	return nil
}

// AssignMaterial sets the rendering material of an object.
func (s *Scene) AssignMaterial(id, materialPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	if !obj.Renderer {
		return fmt.Errorf("%w: %s (%s)", ErrNoRenderer, obj.Name, obj.Template)
	}
	obj.Material = materialPath
	return nil
}

// Get returns a copy of the object with the given ID.
func (s *Scene) Get(id string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id]
	if !ok {
		return Object{}, false
	}
	return *obj, true
}

// Objects returns copies of every object ordered by creation time.
func (s *Scene) Objects() []Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

func (s *Scene) sortedLocked() []Object {
	out := make([]Object, 0, len(s.objects))
	for _, obj := range s.objects {
		out = append(out, *obj)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Save writes the document, replacing the previous file atomically.
func (s *Scene) Save() error {
	s.mu.RLock()
	objs := s.sortedLocked()
	s.mu.RUnlock()

	doc := document{Objects: make([]*Object, len(objs))}
	for i := range objs {
		doc.Objects[i] = &objs[i]
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal scene: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create scene directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".scene-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp scene file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write scene: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write scene: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace scene %s: %w", s.path, err)
	}
	return nil
}
