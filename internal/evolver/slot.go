package evolver

import (
	"fmt"

	"github.com/xkilldash9x/codevolver/internal/assets"
)

// Phase is the build-and-bind state of a slot.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWriting
	PhaseAwaitingCompile
	PhaseCompiled
	PhaseTimedOut
	// PhaseFailed means the shader compiled but the object or material could not be created.
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:            "idle",
	PhaseWriting:         "writing",
	PhaseAwaitingCompile: "awaiting_compile",
	PhaseCompiled:        "compiled",
	PhaseTimedOut:        "timed_out",
	PhaseFailed:          "failed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	if _, ok := phaseNames[p]; !ok {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}

// settled reports whether no build is in flight.
func (p Phase) settled() bool {
	return p != PhaseWriting && p != PhaseAwaitingCompile
}

// allowed lists legal transitions. Any phase may return to Idle.
var allowed = map[Phase][]Phase{
	PhaseIdle:            {PhaseWriting},
	PhaseWriting:         {PhaseAwaitingCompile},
	PhaseAwaitingCompile: {PhaseCompiled, PhaseTimedOut, PhaseFailed},
	PhaseCompiled:        {PhaseWriting},
	PhaseTimedOut:        {PhaseWriting},
	PhaseFailed:          {PhaseWriting},
}

// SlotState is the persisted, read-only view of a slot.
type SlotState struct {
	Index        int              `json:"index"`
	Parent       string           `json:"parent,omitempty"`
	Phase        Phase            `json:"phase"`
	Name         string           `json:"name,omitempty"`
	Source       string           `json:"source,omitempty"`
	SourcePath   string           `json:"source_path,omitempty"`
	MaterialPath string           `json:"material_path,omitempty"`
	ObjectID     string           `json:"object_id,omitempty"`
	Artifact     *assets.Artifact `json:"artifact,omitempty"`
}

// Slot is one variant target. Its fields change only through the phase
// methods below, so a spawned object always refers to the slot's current
// artifact.
type Slot struct {
	state SlotState
}

func newSlot(index int, parent string) *Slot {
	return &Slot{state: SlotState{Index: index, Parent: parent}}
}

// State returns a copy of the slot's fields.
func (s *Slot) State() SlotState {
	st := s.state
	if st.Artifact != nil {
		a := *st.Artifact
		st.Artifact = &a
	}
	return st
}

func (s *Slot) Phase() Phase   { return s.state.Phase }
func (s *Slot) Source() string { return s.state.Source }

func (s *Slot) transition(to Phase) error {
	from := s.state.Phase
	if to == PhaseIdle {
		s.state.Phase = to
		return nil
	}
	for _, next := range allowed[from] {
		if next == to {
			s.state.Phase = to
			return nil
		}
	}
	return fmt.Errorf("%w: slot %d cannot move from %s to %s", ErrInvalidTransition, s.state.Index, from, to)
}

// beginWriting starts a new attempt. The previous object and artifact must
// already be destroyed.
func (s *Slot) beginWriting(name, sourcePath, source string) error {
	if err := s.transition(PhaseWriting); err != nil {
		return err
	}
	s.state.Name = name
	s.state.SourcePath = sourcePath
	s.state.Source = source
	s.state.ObjectID = ""
	s.state.MaterialPath = ""
	s.state.Artifact = nil
	return nil
}

func (s *Slot) awaitCompile() error {
	return s.transition(PhaseAwaitingCompile)
}

// bind attaches the compiled artifact, its material and the spawned object together.
func (s *Slot) bind(artifact *assets.Artifact, materialPath, objectID string) error {
	if err := s.transition(PhaseCompiled); err != nil {
		return err
	}
	s.state.Artifact = artifact
	s.state.MaterialPath = materialPath
	s.state.ObjectID = objectID
	return nil
}

// abandon ends an attempt without a spawned object. The source is kept for diagnosis.
func (s *Slot) abandon(to Phase) error {
	if to != PhaseTimedOut && to != PhaseFailed {
		return fmt.Errorf("%w: %s is not a terminal failure", ErrInvalidTransition, to)
	}
	if err := s.transition(to); err != nil {
		return err
	}
	s.state.ObjectID = ""
	s.state.MaterialPath = ""
	s.state.Artifact = nil
	return nil
}

// reset returns the slot to its initial empty state.
func (s *Slot) reset() {
	_ = s.transition(PhaseIdle)
	s.state = SlotState{Index: s.state.Index, Parent: s.state.Parent}
}

// restore rehydrates a persisted slot into an idle one. In-flight phases
// cannot be resumed and come back as timed out.
func (s *Slot) restore(st SlotState) error {
	if s.state.Phase != PhaseIdle {
		return fmt.Errorf("%w: slot %d is not idle", ErrInvalidTransition, s.state.Index)
	}
	if _, ok := phaseNames[st.Phase]; !ok {
		return fmt.Errorf("%w: unknown phase %d", ErrInvalidTransition, int(st.Phase))
	}
	if !st.Phase.settled() {
		st.Phase = PhaseTimedOut
		st.ObjectID, st.MaterialPath, st.Artifact = "", "", nil
	}
	st.Index, st.Parent = s.state.Index, s.state.Parent
	s.state = st
	return nil
}
