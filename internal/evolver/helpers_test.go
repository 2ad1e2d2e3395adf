package evolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/assets"
	"github.com/xkilldash9x/codevolver/internal/scene"
)

const validShader = `Shader "Custom/Test" {
	Properties {
		_Color ("Color", Color) = (1,1,1,1)
	}
	SubShader {
		Pass {
			CGPROGRAM
			#pragma vertex vert
			#pragma fragment frag
			ENDCG
		}
	}
}`

const brokenShader = `Shader "Custom/Broken" {
	SubShader {
		Pass {
			CGPROGRAM
			ENDCG
		}
}`

// fakeDB imports synchronously on Refresh by compiling every shader in dir.
type fakeDB struct {
	dir      string
	compiler assets.Compiler

	mu        sync.Mutex
	stuck     bool
	artifacts map[string]*assets.Artifact
	materials map[string]*assets.Material
	reimports int
	refreshes int
}

func newFakeDB(dir string) *fakeDB {
	return &fakeDB{
		dir:       dir,
		compiler:  assets.ShaderLabCompiler{},
		artifacts: make(map[string]*assets.Artifact),
		materials: make(map[string]*assets.Material),
	}
}

func (f *fakeDB) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.stuck {
		return nil
	}
	paths, err := filepath.Glob(filepath.Join(f.dir, "*"+assets.ShaderExt))
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		res, err := f.compiler.Compile(ctx, p, src)
		if err != nil {
			return err
		}
		seen[p] = true
		f.artifacts[p] = &assets.Artifact{Name: res.Name, Path: p, Errors: res.Errors, ImportedAt: time.Now()}
	}
	for p := range f.artifacts {
		if !seen[p] {
			delete(f.artifacts, p)
		}
	}
	return nil
}

func (f *fakeDB) LoadArtifactByPath(path string) (*assets.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.artifacts[path]
	if !ok {
		return nil, assets.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeDB) FindArtifactByName(name string) (*assets.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.artifacts {
		if a.Name == name {
			cp := *a
			return &cp, nil
		}
	}
	return nil, assets.ErrNotFound
}

func (f *fakeDB) HasCompileError(a *assets.Artifact) bool {
	return a == nil || len(a.Errors) > 0
}

func (f *fakeDB) ForceReimport(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reimports++
	return nil
}

func (f *fakeDB) CreateMaterial(path string, a *assets.Artifact) (*assets.Material, error) {
	m := assets.NewMaterial(path, a)
	if err := os.WriteFile(path, []byte("shader: "+a.Name+"\n"), 0o644); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.materials[path] = m
	return m, nil
}

func (f *fakeDB) LoadMaterial(path string) (*assets.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.materials[path]
	if !ok {
		return nil, assets.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeDB) DeleteAsset(path string) error {
	f.mu.Lock()
	delete(f.artifacts, path)
	delete(f.materials, path)
	f.mu.Unlock()
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return assets.ErrNotFound
		}
		return err
	}
	return nil
}

func (f *fakeDB) setStuck(stuck bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stuck = stuck
}

func (f *fakeDB) reimportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reimports
}

func (f *fakeDB) materialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.materials)
}

// sleepRecorder records requested delays without waiting.
type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, d)
	return nil
}

func (r *sleepRecorder) count(d time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == d {
			n++
		}
	}
	return n
}

func sequentialSuffix() func() string {
	var n int
	return func() string {
		s := fmt.Sprintf("%08x", n)
		n++
		return s
	}
}

func testOptions(t *testing.T, slots int) Options {
	t.Helper()
	parents := make([]string, slots)
	for i := range parents {
		parents[i] = fmt.Sprintf("Slot%d", i)
	}
	return Options{
		Slots:             slots,
		Parents:           parents,
		Template:          "Sphere",
		OutputDir:         filepath.Join(t.TempDir(), "Assets", "Generated"),
		SystemInstruction: "You write Unity shaders.",
		PollInterval:      time.Millisecond,
		MaxAttempts:       200,
		ReimportEvery:     20,
		SettleDelay:       time.Second,
		DirectorySettle:   2 * time.Second,
	}
}

type fixture struct {
	evolver *Evolver
	db      *fakeDB
	scene   *scene.Scene
	sleeps  *sleepRecorder
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T, opts Options, llm schemas.LLMClient, extra ...Option) *fixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	sc, err := scene.Open(filepath.Join(t.TempDir(), "Evolution.scene.yaml"), logger)
	require.NoError(t, err)

	db := newFakeDB(opts.OutputDir)
	rec := &sleepRecorder{}
	options := append([]Option{WithSleep(rec.sleep), WithSuffixGenerator(sequentialSuffix())}, extra...)
	e, err := New(opts, llm, db, sc, logger, options...)
	require.NoError(t, err)

	return &fixture{evolver: e, db: db, scene: sc, sleeps: rec, logs: logs}
}

func shaderResponse(src string) *schemas.GenerationResponse {
	return &schemas.GenerationResponse{
		Candidates: []schemas.Candidate{{
			Content: schemas.NewTextContent(schemas.RoleModel, "Here is your shader:\n```shader\n"+src+"\n```\nEnjoy!"),
		}},
	}
}

// renderables returns every spawned object that is not a container.
func renderables(sc *scene.Scene) []scene.Object {
	var out []scene.Object
	for _, obj := range sc.Objects() {
		if obj.Template != scene.TemplateEmpty {
			out = append(out, obj)
		}
	}
	return out
}
