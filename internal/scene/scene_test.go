package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func openTestScene(t *testing.T) *Scene {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "Scenes", "Evolver.scene.yaml"), zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func TestInstantiateAndAssign(t *testing.T) {
	s := openTestScene(t)

	_, err := s.Instantiate("Sphere", "Variant1", "Variant_0_X")
	assert.ErrorIs(t, err, ErrParentNotFound)

	parentID, err := s.EnsureContainer("Variant1")
	require.NoError(t, err)
	again, err := s.EnsureContainer("Variant1")
	require.NoError(t, err)
	assert.Equal(t, parentID, again, "EnsureContainer reuses an existing container")

	id, err := s.Instantiate("Sphere", "Variant1", "Variant_0_X")
	require.NoError(t, err)
	obj, ok := s.Get(id)
	require.True(t, ok)
	assert.True(t, obj.Renderer)
	assert.Equal(t, "Variant1", obj.Parent)

	require.NoError(t, s.AssignMaterial(id, "Assets/Mat_X.mat"))
	obj, _ = s.Get(id)
	assert.Equal(t, "Assets/Mat_X.mat", obj.Material)

	assert.ErrorIs(t, s.AssignMaterial(parentID, "Assets/Mat_X.mat"), ErrNoRenderer)
	assert.ErrorIs(t, s.AssignMaterial("missing", "m"), ErrObjectNotFound)
}

func TestInstantiateUnknownTemplate(t *testing.T) {
	s := openTestScene(t)
	_, err := s.Instantiate("Teapot", "", "x")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
	assert.True(t, IsTemplate("Cube"))
	assert.True(t, IsTemplate(TemplateEmpty))
	assert.False(t, IsTemplate("Teapot"))
}

func TestDestroy(t *testing.T) {
	s := openTestScene(t)
	id, err := s.Instantiate("Cube", "", "c")
	require.NoError(t, err)

	require.NoError(t, s.Destroy(id))
	_, ok := s.Get(id)
	assert.False(t, ok)
	assert.ErrorIs(t, s.Destroy(id), ErrObjectNotFound)
}

func TestSaveAndReopen(t *testing.T) {
	s := openTestScene(t)
	_, err := s.EnsureContainer("Variant1")
	require.NoError(t, err)
	id, err := s.Instantiate("Quad", "Variant1", "Variant_0_Q")
	require.NoError(t, err)
	require.NoError(t, s.AssignMaterial(id, "Mat_Q.mat"))
	require.NoError(t, s.Save())

	reopened, err := Open(s.Path(), zaptest.NewLogger(t))
	require.NoError(t, err)
	if diff := cmp.Diff(s.Objects(), reopened.Objects()); diff != "" {
		t.Errorf("scene round trip mismatch (-saved +loaded):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestOpenInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("objects: [unterminated"), 0o644))
	_, err := Open(path, zaptest.NewLogger(t))
	assert.Error(t, err)
}
