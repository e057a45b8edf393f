package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	StateFile           = "state.json"
	CurrentStateVersion = "1"
)

// TargetState records how a generated file was last produced.
type TargetState struct {
	// Document is the path the producing document was associated with at
	// generation time.
	Document  string    `json:"document"`
	Hash      string    `json:"hash"`
	Fragments int       `json:"fragments"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentState tracks a tangled document for incremental runs.
type DocumentState struct {
	Hash      string    `json:"hash"`
	Targets   []string  `json:"targets,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State is the generation record kept between invocations.
type State struct {
	Version   string                   `json:"version"`
	UpdatedAt time.Time                `json:"updated_at"`
	Documents map[string]DocumentState `json:"documents"`
	Targets   map[string]TargetState   `json:"targets"`
}

// NewState creates a new empty state
func NewState() *State {
	return &State{
		Version:   CurrentStateVersion,
		Documents: make(map[string]DocumentState),
		Targets:   make(map[string]TargetState),
	}
}

// Load reads state from the state directory.
func Load(stateDir string) (*State, error) {
	path := filepath.Join(stateDir, StateFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	migrateState(&state)

	return &state, nil
}

// Save writes state to the state directory, creating it when needed.
func (s *State) Save(stateDir string) error {
	migrateState(s)
	s.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return err
	}
	path := filepath.Join(stateDir, StateFile)
	return os.WriteFile(path, data, 0644)
}

// RecordTarget stores the association and hash of a generated file.
func (s *State) RecordTarget(path, document, hash string, fragments int) {
	s.Targets[path] = TargetState{
		Document:  document,
		Hash:      hash,
		Fragments: fragments,
		UpdatedAt: time.Now(),
	}
}

// Target returns the record of a generated file.
func (s *State) Target(path string) (TargetState, bool) {
	ts, ok := s.Targets[path]
	return ts, ok
}

// RemoveTarget removes a generated file from state tracking
func (s *State) RemoveTarget(path string) {
	delete(s.Targets, path)
}

// SetDocument records the hash of a tangled document and the targets it
// produced.
func (s *State) SetDocument(path, hash string, targets []string) {
	sorted := append([]string(nil), targets...)
	sort.Strings(sorted)
	s.Documents[path] = DocumentState{
		Hash:      hash,
		Targets:   sorted,
		UpdatedAt: time.Now(),
	}
}

// HasChanged returns true if the document hash differs from stored
func (s *State) HasChanged(document, currentHash string) bool {
	ds, ok := s.Documents[document]
	if !ok {
		return true
	}
	return ds.Hash != currentHash
}

// ChangedDocuments returns documents that have changed based on provided hashes
func (s *State) ChangedDocuments(currentHashes map[string]string) []string {
	changed := make([]string, 0)
	for doc, hash := range currentHashes {
		if s.HasChanged(doc, hash) {
			changed = append(changed, doc)
		}
	}
	sort.Strings(changed)
	return changed
}

// StaleTargets returns targets a document produced last time but no longer
// does.
func (s *State) StaleTargets(document string, current []string) []string {
	ds, ok := s.Documents[document]
	if !ok {
		return nil
	}
	keep := make(map[string]bool, len(current))
	for _, path := range current {
		keep[path] = true
	}
	stale := make([]string, 0)
	for _, path := range ds.Targets {
		if !keep[path] {
			stale = append(stale, path)
		}
	}
	return stale
}

// Drift describes a generated file that no longer matches its record.
type Drift struct {
	Path     string `json:"path"`
	Document string `json:"document"`
	Missing  bool   `json:"missing,omitempty"`
}

// DriftedTargets compares every recorded target with its current hash.
// hash reports os.ErrNotExist for files that are gone.
func (s *State) DriftedTargets(hash func(path string) (string, error)) ([]Drift, error) {
	drift := make([]Drift, 0)
	paths := make([]string, 0, len(s.Targets))
	for path := range s.Targets {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		ts := s.Targets[path]
		current, err := hash(path)
		if err != nil {
			if os.IsNotExist(err) {
				drift = append(drift, Drift{Path: path, Document: ts.Document, Missing: true})
				continue
			}
			return nil, err
		}
		if current != ts.Hash {
			drift = append(drift, Drift{Path: path, Document: ts.Document})
		}
	}
	return drift, nil
}

func migrateState(s *State) {
	if s.Documents == nil {
		s.Documents = make(map[string]DocumentState)
	}
	if s.Targets == nil {
		s.Targets = make(map[string]TargetState)
	}

	switch s.Version {
	case "":
		s.Version = CurrentStateVersion
	case CurrentStateVersion:
		// no-op
	default:
		// Keep unknown versions untouched but ensure required maps are initialized.
	}
}
