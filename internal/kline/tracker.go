package kline

import "sync"

// State is the lifecycle state of a view.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Token identifies one build request. Only the token of the latest Begin for
// a key may resolve or fail it.
type Token struct {
	Key        string
	Generation uint64
}

// Snapshot is the observable state of a key.
type Snapshot struct {
	Key        string
	State      State
	Generation uint64
	// View is the last successfully built view. It survives later loading
	// and error states.
	View *View
	Err  string
}

type entry struct {
	state State
	gen   uint64
	view  *View
	err   string
}

// Tracker holds the view state of each key and discards results of
// superseded builds. It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*entry)}
}

// Begin moves key to loading and returns the token for the new build. Any
// earlier token for key becomes stale.
func (t *Tracker) Begin(key string) Token {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[key]
	if e == nil {
		e = &entry{}
		t.entries[key] = e
	}
	e.gen++
	e.state = StateLoading
	e.err = ""
	return Token{Key: key, Generation: e.gen}
}

// Resolve stores v as the current view. It returns false, leaving the state
// untouched, if tok has been superseded.
func (t *Tracker) Resolve(tok Token, v *View) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.current(tok)
	if e == nil {
		return false
	}
	e.state = StateSuccess
	e.view = v
	e.err = ""
	return true
}

// Fail records reason for the build of tok. The previous view is kept. It
// returns false if tok has been superseded.
func (t *Tracker) Fail(tok Token, reason string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.current(tok)
	if e == nil {
		return false
	}
	e.state = StateError
	e.err = reason
	return true
}

// Snapshot returns the state of key. Unknown keys are idle.
func (t *Tracker) Snapshot(key string) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[key]
	if e == nil {
		return Snapshot{Key: key, State: StateIdle}
	}
	return Snapshot{Key: key, State: e.state, Generation: e.gen, View: e.view, Err: e.err}
}

func (t *Tracker) current(tok Token) *entry {
	e := t.entries[tok.Key]
	if e == nil || e.gen != tok.Generation || e.state != StateLoading {
		return nil
	}
	return e
}
