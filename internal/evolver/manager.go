// Package evolver drives the shader-evolution workflow: for every variant
// slot it asks the model for shader source, writes it into the asset
// project, waits for the importer to compile it and binds the result to a
// freshly spawned scene object.
package evolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/assets"
	"github.com/xkilldash9x/codevolver/internal/config"
	"github.com/xkilldash9x/codevolver/internal/llmutil"
	"github.com/xkilldash9x/codevolver/internal/scene"
)

// SceneGraph is the part of the scene the workflow mutates.
type SceneGraph interface {
	EnsureContainer(name string) (string, error)
	Instantiate(template, parent, name string) (string, error)
	Destroy(id string) error
	AssignMaterial(id, materialPath string) error
	Save() error
}

// StateStore persists slot state between processes.
type StateStore interface {
	Load() ([]SlotState, error)
	Save(states []SlotState) error
}

// Options holds the workflow settings.
type Options struct {
	Slots             int
	Parents           []string
	Template          string
	OutputDir         string
	SelectedVariant   int
	EvolvePrompt      string
	SystemInstruction string
	EnableSearch      bool
	SafetySettings    []schemas.SafetySetting
	PollInterval      time.Duration
	MaxAttempts       int
	ReimportEvery     int
	SettleDelay       time.Duration
	DirectorySettle   time.Duration
}

// OptionsFromConfig maps the evolver and llm config sections onto Options.
func OptionsFromConfig(cfg config.Interface) Options {
	ev := cfg.Evolver()
	llm := cfg.LLM()

	return Options{
		Slots:             ev.Slots,
		Parents:           ev.Parents,
		Template:          ev.Template,
		OutputDir:         ev.OutputPath(),
		SelectedVariant:   ev.SelectedVariant,
		EvolvePrompt:      ev.EvolvePrompt,
		SystemInstruction: ev.SystemInstruction,
		EnableSearch:      llm.EnableSearch,
		SafetySettings:    llm.SafetySettings(),
		PollInterval:      ev.PollInterval,
		MaxAttempts:       ev.MaxAttempts,
		ReimportEvery:     ev.ReimportEvery,
		SettleDelay:       ev.SettleDelay,
		DirectorySettle:   ev.DirectorySettle,
	}
}

func (o Options) validate() error {
	if o.Slots <= 0 {
		return fmt.Errorf("slots must be greater than 0")
	}
	if o.SelectedVariant < 0 || o.SelectedVariant >= o.Slots {
		return fmt.Errorf("%w: selected variant %d (slots: %d)", ErrIndexOutOfRange, o.SelectedVariant, o.Slots)
	}
	if o.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if !scene.IsTemplate(o.Template) {
		return fmt.Errorf("%w: %q", scene.ErrUnknownTemplate, o.Template)
	}
	if o.MaxAttempts <= 0 || o.ReimportEvery <= 0 {
		return fmt.Errorf("max attempts and reimport interval must be greater than 0")
	}
	return nil
}

// Option customizes an Evolver.
type Option func(*Evolver)

// WithStateStore persists slot state after every change.
func WithStateStore(store StateStore) Option {
	return func(e *Evolver) { e.store = store }
}

// WithSleep replaces the context-aware delay used between polls and slots.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Evolver) { e.sleep = sleep }
}

// WithSuffixGenerator replaces the unique file/shader suffix generator.
func WithSuffixGenerator(gen func() string) Option {
	return func(e *Evolver) { e.newSuffix = gen }
}

// Evolver owns the variant slots and runs evolution passes over them.
// Passes and Clear are serialized; slots are processed one at a time.
type Evolver struct {
	opts   Options
	llm    schemas.LLMClient
	db     assets.Database
	scene  SceneGraph
	store  StateStore
	logger *zap.Logger

	sleep     func(ctx context.Context, d time.Duration) error
	newSuffix func() string

	mu      sync.Mutex
	slots   []*Slot
	history History
}

// New creates the Evolver, makes sure every parent container exists and
// restores persisted slot state when a store is configured.
func New(opts Options, llm schemas.LLMClient, db assets.Database, sg SceneGraph, logger *zap.Logger, options ...Option) (*Evolver, error) {
	if llm == nil || db == nil || sg == nil {
		return nil, errors.New("llm client, asset database and scene are required")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid evolver options: %w", err)
	}

	e := &Evolver{
		opts:      opts,
		llm:       llm,
		db:        db,
		scene:     sg,
		logger:    logger.Named("evolver"),
		sleep:     sleepContext,
		newSuffix: randomSuffix,
		slots:     make([]*Slot, opts.Slots),
	}
	for _, o := range options {
		o(e)
	}

	for i := range e.slots {
		parent := ""
		if i < len(opts.Parents) {
			parent = opts.Parents[i]
		}
		if parent != "" {
			if _, err := sg.EnsureContainer(parent); err != nil {
				return nil, fmt.Errorf("failed to prepare container %q: %w", parent, err)
			}
		}
		e.slots[i] = newSlot(i, parent)
	}

	if e.store != nil {
		if err := e.restore(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Evolver) restore() error {
	states, err := e.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load slot state: %w", err)
	}
	for _, st := range states {
		if st.Index < 0 || st.Index >= len(e.slots) {
			e.logger.Warn("Ignoring persisted slot outside the configured range", zap.Int("slot", st.Index))
			continue
		}
		if err := e.slots[st.Index].restore(st); err != nil {
			return err
		}
	}
	return nil
}

// Slots returns a snapshot of every slot.
func (e *Evolver) Slots() []SlotState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Evolver) snapshotLocked() []SlotState {
	out := make([]SlotState, len(e.slots))
	for i, s := range e.slots {
		out[i] = s.State()
	}
	return out
}

// Transcript renders the current pass's conversation.
func (e *Evolver) Transcript() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Transcript()
}

// Evolve runs one full pass over every slot. Per-slot failures are logged
// and skipped; only cancellation of ctx aborts the pass, leaving finished
// slots bound and the rest untouched.
func (e *Evolver) Evolve(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history.Reset()
	base := e.slots[e.opts.SelectedVariant].Source()
	instruction := EffectivePrompt(e.opts.EvolvePrompt)
	e.logger.Info("Evolution pass started", zap.Int("slots", len(e.slots)), zap.Int("base_slot", e.opts.SelectedVariant))

	for i := range e.slots {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger := e.logger.With(zap.Int("slot", i))
		logger.Info(fmt.Sprintf("--- Preparing to generate variant %d of %d ---", i+1, len(e.slots)))

		previous := ""
		if i > 0 {
			previous = e.slots[i-1].Source()
		}
		mark := e.history.Len()
		e.history.Append(schemas.NewTextContent(schemas.RoleUser, ComposePrompt(instruction, base, i, previous)))

		content, resp, err := e.invoke(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.history.Truncate(mark)
			if errors.Is(err, ErrNoCandidates) {
				logger.Warn("No candidates received from the model", zap.String("block_reason", resp.BlockReason()))
			} else {
				logger.Error("Model invocation failed, skipping slot", zap.Error(err))
			}
			continue
		}
		e.history.Append(content)

		ext := llmutil.ExtractShaderSource(content.Text())
		if ext.Rejected != "" {
			logger.Warn("Markdown block found but content doesn't appear to be a shader", zap.String("content", ext.Rejected))
		}
		if ext.Method == llmutil.MethodUnrecognized {
			logger.Warn("Could not reliably extract shader code from model response, using raw output")
		}
		if strings.TrimSpace(ext.Source) == "" {
			parts := make([]string, 0, len(content.Parts))
			for _, p := range content.Parts {
				parts = append(parts, p.Text)
			}
			logger.Warn("Extracted shader code is empty, skipping slot", zap.Strings("parts", parts))
			e.history.Truncate(mark)
			continue
		}

		if err := e.createVariantLocked(ctx, i, ext.Source); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.history.Truncate(mark)
			continue
		}

		if i < len(e.slots)-1 {
			if err := e.sleep(ctx, e.opts.SettleDelay); err != nil {
				return err
			}
		}
	}

	e.logger.Info("Evolution pass done")
	return nil
}

// CreateVariant writes source into slot index, waits for it to compile and
// binds it to a new object.
func (e *Evolver) CreateVariant(ctx context.Context, index int, source string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.createVariantLocked(ctx, index, source)
}

func (e *Evolver) createVariantLocked(ctx context.Context, index int, source string) error {
	if index < 0 || index >= len(e.slots) {
		err := fmt.Errorf("%w: %d (slots: %d)", ErrIndexOutOfRange, index, len(e.slots))
		e.logger.Error("Variant index is out of bounds", zap.Error(err))
		return err
	}
	slot := e.slots[index]
	logger := e.logger.With(zap.Int("slot", index))

	if !slot.Phase().settled() {
		err := fmt.Errorf("%w: slot %d is %s", ErrInvalidTransition, index, slot.Phase())
		logger.Error("Slot already has a build in flight, skipping", zap.Error(err))
		return err
	}
	e.release(logger, slot)
	slot.reset()

	suffix := e.newSuffix()
	stem := fmt.Sprintf("EvolvedShader_%d_%s", index, suffix)
	name := "Custom/" + stem
	sourcePath := filepath.Join(e.opts.OutputDir, stem+assets.ShaderExt)
	source = llmutil.RenameShader(source, name)
	logger = logger.With(zap.String("shader", name))

	if err := slot.beginWriting(name, sourcePath, source); err != nil {
		return err
	}
	if err := e.write(ctx, sourcePath, source); err != nil {
		slot.reset()
		if err := e.db.DeleteAsset(sourcePath); err != nil && !errors.Is(err, assets.ErrNotFound) {
			logger.Warn("Failed to delete partial shader source", zap.String("path", sourcePath), zap.Error(err))
		}
		e.persistLocked()
		if ctx.Err() == nil {
			logger.Error("Failed to write shader source", zap.String("path", sourcePath), zap.Error(err))
		}
		return err
	}

	if err := slot.awaitCompile(); err != nil {
		return err
	}
	logger.Info("Attempting to load and compile shader", zap.String("path", sourcePath))
	artifact, err := e.awaitArtifact(ctx, logger, sourcePath, name)
	if err != nil {
		_ = slot.abandon(PhaseTimedOut)
		e.persistLocked()
		if ctx.Err() != nil {
			logger.Warn("Compile wait cancelled", zap.String("path", sourcePath))
			return ctx.Err()
		}
		logger.Error("Failed to load/compile shader; the shader code might be invalid or the import is stuck",
			zap.String("path", sourcePath), zap.Error(err))
		logger.Error("Problematic shader code", zap.String("source", source))
		return err
	}

	if err := e.materialize(ctx, logger, slot, stem, artifact); err != nil {
		_ = slot.abandon(PhaseFailed)
		e.persistLocked()
		logger.Error("Failed to bind compiled shader", zap.Error(err))
		return err
	}
	e.persistLocked()
	logger.Info("Variant created successfully")
	return nil
}

// write creates the output directory on demand and persists the source,
// then asks the importer to pick it up.
func (e *Evolver) write(ctx context.Context, path, source string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := e.db.Refresh(ctx); err != nil {
			e.logger.Warn("Asset refresh after directory creation failed", zap.Error(err))
		}
		if err := e.sleep(ctx, e.opts.DirectorySettle); err != nil {
			return err
		}
	}

	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := e.db.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Warn("Asset refresh failed", zap.Error(err))
	}
	return nil
}

// materialize spawns the object, creates the material and binds both to the slot.
func (e *Evolver) materialize(ctx context.Context, logger *zap.Logger, slot *Slot, stem string, artifact *assets.Artifact) error {
	st := slot.State()
	objectID, err := e.scene.Instantiate(e.opts.Template, st.Parent, fmt.Sprintf("Variant_%d_%s", st.Index, stem))
	if err != nil {
		return fmt.Errorf("failed to spawn object: %w", err)
	}

	materialPath := filepath.Join(e.opts.OutputDir, "Mat_"+stem+assets.MaterialExt)
	if _, err := e.db.CreateMaterial(materialPath, artifact); err != nil {
		_ = e.scene.Destroy(objectID)
		return err
	}
	if err := e.db.Refresh(ctx); err != nil && ctx.Err() == nil {
		logger.Warn("Asset refresh after material creation failed", zap.Error(err))
	}
	logger.Info("Material asset created", zap.String("path", materialPath))

	material, err := e.db.LoadMaterial(materialPath)
	if err != nil {
		_ = e.scene.Destroy(objectID)
		_ = e.db.DeleteAsset(materialPath)
		return err
	}
	if err := e.scene.AssignMaterial(objectID, material.Path); err != nil {
		if !errors.Is(err, scene.ErrNoRenderer) {
			_ = e.scene.Destroy(objectID)
			_ = e.db.DeleteAsset(materialPath)
			return err
		}
		logger.Warn("Spawned object does not have a renderer", zap.String("template", e.opts.Template))
	}

	return slot.bind(artifact, material.Path, objectID)
}

// release destroys the slot's spawned object, material and shader source.
func (e *Evolver) release(logger *zap.Logger, slot *Slot) {
	st := slot.State()
	if st.ObjectID != "" {
		if err := e.scene.Destroy(st.ObjectID); err != nil && !errors.Is(err, scene.ErrObjectNotFound) {
			logger.Warn("Failed to destroy spawned object", zap.String("object_id", st.ObjectID), zap.Error(err))
		}
	}
	for _, path := range []string{st.MaterialPath, st.SourcePath} {
		if path == "" {
			continue
		}
		if err := e.db.DeleteAsset(path); err != nil && !errors.Is(err, assets.ErrNotFound) {
			logger.Warn("Failed to delete asset", zap.String("path", path), zap.Error(err))
		}
	}
}

// Clear destroys every slot's object and artifacts, empties the slots and
// the history. Clearing an already clear evolver changes nothing.
func (e *Evolver) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, slot := range e.slots {
		e.release(e.logger.With(zap.Int("slot", slot.State().Index)), slot)
		slot.reset()
	}
	e.history.Reset()

	var errs []error
	if err := e.scene.Save(); err != nil {
		errs = append(errs, fmt.Errorf("failed to save scene: %w", err))
	}
	if e.store != nil {
		if err := e.store.Save(e.snapshotLocked()); err != nil {
			errs = append(errs, fmt.Errorf("failed to save slot state: %w", err))
		}
	}
	e.logger.Info("All variants cleared.")
	return errors.Join(errs...)
}

// persistLocked saves the scene and the slot state together so the objects
// on disk always match the slots that own them.
func (e *Evolver) persistLocked() {
	if err := e.scene.Save(); err != nil {
		e.logger.Warn("Failed to save scene", zap.Error(err))
	}
	if e.store == nil {
		return
	}
	if err := e.store.Save(e.snapshotLocked()); err != nil {
		e.logger.Warn("Failed to persist slot state", zap.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// randomSuffix returns 8 hex characters.
func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
