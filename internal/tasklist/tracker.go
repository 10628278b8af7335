package tasklist

import "sync"

type Phase int

const (
	PhaseNoReference Phase = iota
	PhaseLoading
	PhaseReady
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseNoReference:
		return "no-reference"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Request asks for ref to be fetched. Gen must be handed back to Resolve.
type Request struct {
	Gen uint64
	Ref Reference
}

// Tracker follows the latest task list reference and the document fetched for
// it. Every fetch is tagged with a generation; results from a superseded
// generation are dropped. The last good document stays visible while a new
// fetch is in flight.
type Tracker struct {
	mu      sync.Mutex
	ref     Reference
	gen     uint64
	pending bool
	doc     *Document
	err     error
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Observe takes the full ordered reference list and returns a fetch request
// when the latest reference changed.
func (t *Tracker) Observe(refs []Reference) (Request, bool) {
	latest, ok := Latest(refs)

	t.mu.Lock()
	defer t.mu.Unlock()

	if !ok {
		if !t.ref.Absent() || t.doc != nil || t.pending {
			t.gen++
		}
		t.ref = ""
		t.pending = false
		t.doc = nil
		t.err = nil
		return Request{}, false
	}
	if latest == t.ref {
		return Request{}, false
	}

	t.ref = latest
	t.err = nil
	return t.startLocked(), true
}

// Revalidate re-fetches the current reference.
func (t *Tracker) Revalidate() (Request, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ref.Absent() {
		return Request{}, false
	}
	return t.startLocked(), true
}

func (t *Tracker) startLocked() Request {
	t.gen++
	t.pending = true
	return Request{Gen: t.gen, Ref: t.ref}
}

// Resolve applies a fetch result. It returns false when gen is stale and the
// result was discarded.
func (t *Tracker) Resolve(gen uint64, doc *Document, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen || t.ref.Absent() {
		return false
	}
	t.pending = false
	if err != nil {
		t.err = err
		return true
	}
	t.doc = doc
	t.err = nil
	return true
}

func (t *Tracker) Reference() Reference {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ref
}

func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Tracker) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phaseLocked()
}

func (t *Tracker) phaseLocked() Phase {
	switch {
	case t.ref.Absent():
		return PhaseNoReference
	case t.err != nil:
		return PhaseError
	case t.doc != nil:
		return PhaseReady
	default:
		return PhaseLoading
	}
}

// Visible returns the document to render, if any. An error for the current
// reference hides the panel until a fetch succeeds; a pending fetch does not
// hide what was already shown.
func (t *Tracker) Visible() (*Document, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phaseLocked() != PhaseReady {
		return nil, false
	}
	return t.doc, true
}

// Pending reports whether a fetch for the current generation is outstanding.
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}
