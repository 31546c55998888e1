package builder

import (
	"github.com/DoyleJ11/dipclient/internal/orders"
)

// Builder holds the single order-building session of a player for the
// current phase. It is not safe for concurrent use; the sync loop owns it.
type Builder struct {
	session Session
	index   *orders.Index
}

func New(idx *orders.Index) *Builder {
	if idx == nil {
		idx = orders.EmptyIndex("")
	}
	return &Builder{session: Session{State: StateIdle}, index: idx}
}

func (b *Builder) Session() Session { return b.session.Clone() }

func (b *Builder) Index() *orders.Index { return b.index }

// Pending reports whether a disambiguation answer is awaited.
func (b *Builder) Pending() bool { return b.session.State == StateAwaiting }

func (b *Builder) Begin(t orders.Type) ([]Event, error) {
	return b.run(Command{Type: CmdBegin, OrderType: t})
}

func (b *Builder) Extend(token string) ([]Event, error) {
	return b.run(Command{Type: CmdExtend, Token: token})
}

func (b *Builder) Resolve(choice Choice) ([]Event, error) {
	return b.run(Command{Type: CmdResolve, Choice: choice})
}

// ResolveLabel resolves the pending step by the candidate's display label.
func (b *Builder) ResolveLabel(label string) ([]Event, error) {
	return b.run(Command{Type: CmdResolve, Choice: Choice{Label: label}})
}

func (b *Builder) Cancel() []Event {
	events, _ := b.run(Command{Type: CmdCancel})
	return events
}

// Reset installs the index of a new phase and drops whatever was in progress.
func (b *Builder) Reset(idx *orders.Index) {
	if idx == nil {
		idx = orders.EmptyIndex("")
	}
	b.index = idx
	b.session = Session{State: StateIdle}
}

// LegalTypes lists the order types offered for the selected unit.
func (b *Builder) LegalTypes() []orders.Type {
	if b.session.State != StateSelectingType {
		return nil
	}
	return b.index.TypesAt(b.session.Origin)
}

// Run applies cmd to the held session.
func (b *Builder) Run(cmd Command) ([]Event, error) { return b.run(cmd) }

func (b *Builder) run(cmd Command) ([]Event, error) {
	events, next, err := Apply(b.session, b.index, cmd)
	if err != nil {
		return nil, err
	}
	b.session = next
	return events, nil
}

// CompletedOrder returns the order emitted by events, if any.
func CompletedOrder(events []Event) (orders.Order, bool) {
	for _, e := range events {
		if e.Type == EvtOrderCompleted && e.Order != nil {
			return *e.Order, true
		}
	}
	return orders.Order{}, false
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
