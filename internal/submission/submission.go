package submission

import (
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/dipclient/internal/orders"
)

var ErrSessionLocked = errors.New("orders are locked while submitted")
var ErrNotOrderable = errors.New("location not orderable this phase")
var ErrStaleBatch = errors.New("stale submission batch")

// SubmissionError is returned when a batch was rejected or never reached the
// server. The built orders are kept so the player can retry.
type SubmissionError struct {
	Phase string
	// Reasons is aligned with the batch texts; empty means accepted.
	Reasons []string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit orders for %s: %v", e.Phase, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

type Status string

const (
	StatusOpen       Status = "open"
	StatusSubmitting Status = "submitting"
	StatusSubmitted  Status = "submitted"
)

// Batch is the snapshot of orders sent in one request.
type Batch struct {
	Seq     uint64
	Phase   string
	Origins []string
	Texts   []string
	Wait    bool
}

type Result struct {
	Origin string
	Text   string
	Reason string
}

func (r Result) Accepted() bool { return r.Reason == "" }

type Submission struct {
	set       *BuiltOrderSet
	orderable []string
	status    Status
	seq       uint64
	inflight  uint64
	results   []Result
}

func New(phase string, orderable []string) *Submission {
	s := &Submission{}
	s.Reset(phase, orderable)
	return s
}

// Reset starts a new phase: the set is replaced wholesale and the lock lifted.
func (s *Submission) Reset(phase string, orderable []string) {
	s.set = NewSet(phase)
	s.orderable = make([]string, 0, len(orderable))
	for _, loc := range orderable {
		s.orderable = append(s.orderable, orders.Normalize(loc))
	}
	s.status = StatusOpen
	s.inflight = 0
	s.results = nil
}

// SetOrderable replaces the orderable locations within the current phase and
// drops orders whose origin left the set. The lock is kept.
func (s *Submission) SetOrderable(orderable []string) {
	s.orderable = s.orderable[:0]
	for _, loc := range orderable {
		s.orderable = append(s.orderable, orders.Normalize(loc))
	}
	for _, origin := range s.set.Origins() {
		if !slices.Contains(s.orderable, origin) {
			s.set.Delete(origin)
		}
	}
}

func (s *Submission) Phase() string { return s.set.Phase() }

func (s *Submission) Status() Status { return s.status }

func (s *Submission) Locked() bool { return s.status != StatusOpen }

func (s *Submission) Set() *BuiltOrderSet { return s.set }

func (s *Submission) Results() []Result { return slices.Clone(s.results) }

func (s *Submission) Add(o orders.Order) error {
	if s.Locked() {
		return ErrSessionLocked
	}
	if !slices.Contains(s.orderable, orders.Normalize(o.Origin)) {
		return fmt.Errorf("%w: %s", ErrNotOrderable, o.Origin)
	}
	s.set.Put(o)
	return nil
}

func (s *Submission) Remove(origin string) error {
	if s.Locked() {
		return ErrSessionLocked
	}
	s.set.Delete(origin)
	return nil
}

func (s *Submission) Clear() error {
	if s.Locked() {
		return ErrSessionLocked
	}
	s.set.Clear()
	return nil
}

// Restore re-adds saved orders for the current phase, skipping any whose
// origin is no longer orderable. It returns how many were kept.
func (s *Submission) Restore(saved []orders.Order) int {
	if s.Locked() {
		return 0
	}
	n := 0
	for _, o := range saved {
		if s.Add(o) == nil {
			n++
		}
	}
	return n
}

// Prepare snapshots the current set into a batch and locks the session.
func (s *Submission) Prepare(wait bool) (Batch, error) {
	if s.Locked() {
		return Batch{}, ErrSessionLocked
	}
	s.seq++
	s.inflight = s.seq
	s.status = StatusSubmitting
	s.results = nil
	return Batch{
		Seq:     s.seq,
		Phase:   s.set.Phase(),
		Origins: s.set.Origins(),
		Texts:   s.set.Texts(),
		Wait:    wait,
	}, nil
}

// Complete records the outcome of b. A failure unlocks the session and
// returns a *SubmissionError; the built orders are left as they were.
func (s *Submission) Complete(b Batch, reasons []string, err error) error {
	if s.status != StatusSubmitting || b.Seq != s.inflight || b.Phase != s.set.Phase() {
		return ErrStaleBatch
	}
	s.inflight = 0

	if err != nil {
		s.status = StatusOpen
		var subErr *SubmissionError
		if errors.As(err, &subErr) {
			subErr.Phase = b.Phase
			s.results = align(b, subErr.Reasons)
			return subErr
		}
		return &SubmissionError{Phase: b.Phase, Err: err}
	}

	s.status = StatusSubmitted
	s.results = align(b, reasons)
	return nil
}

func align(b Batch, reasons []string) []Result {
	out := make([]Result, len(b.Texts))
	for i, text := range b.Texts {
		out[i] = Result{Origin: b.Origins[i], Text: text}
		if i < len(reasons) {
			out[i].Reason = reasons[i]
		}
	}
	return out
}
