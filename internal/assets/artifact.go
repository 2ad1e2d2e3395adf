// Package assets models the project's asset database: shader sources on disk
// are imported asynchronously into compiled artifacts, and materials bound to
// those artifacts are persisted as YAML asset files.
package assets

import (
	"context"
	"errors"
	"time"
)

// ShaderExt is the extension of importable shader sources.
const ShaderExt = ".shader"

var (
	// ErrNotFound is returned when no artifact or asset exists for a lookup.
	ErrNotFound = errors.New("asset not found")
	// ErrClosed is returned by operations on a database that has been closed.
	ErrClosed = errors.New("asset database closed")
)

// Artifact is the compiled form of one shader source file.
type Artifact struct {
	Name       string    `json:"name" yaml:"name"`
	Path       string    `json:"path" yaml:"path"`
	Hash       string    `json:"hash" yaml:"hash"`
	Errors     []string  `json:"errors,omitempty" yaml:"errors,omitempty"`
	ImportedAt time.Time `json:"imported_at" yaml:"imported_at"`
}

// Database is the build/import collaborator used by the evolution workflow.
type Database interface {
	// Refresh schedules an import of every shader whose contents changed.
	Refresh(ctx context.Context) error
	// LoadArtifactByPath returns the artifact imported from path, or ErrNotFound.
	LoadArtifactByPath(path string) (*Artifact, error)
	// FindArtifactByName returns the artifact whose shader declares name, or ErrNotFound.
	FindArtifactByName(name string) (*Artifact, error)
	// HasCompileError reports whether the artifact failed to compile.
	HasCompileError(a *Artifact) bool
	// ForceReimport schedules an import of path even if it is unchanged.
	ForceReimport(ctx context.Context, path string) error
	// CreateMaterial writes a material asset bound to the artifact.
	CreateMaterial(path string, a *Artifact) (*Material, error)
	// LoadMaterial reads a material asset.
	LoadMaterial(path string) (*Material, error)
	// DeleteAsset removes an asset file and anything imported from it.
	DeleteAsset(path string) error
}
