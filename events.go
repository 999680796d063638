package mathscope

import "slices"

// EventType names what a listener subscribes to.
type EventType string

const (
	// EventChange fires after every SetExpressions and DeleteExpressions.
	EventChange EventType = "change"
	// EventChangeErrors fires only when the visible errors changed.
	EventChangeErrors EventType = "change-errors"
)

// Event describes one change to the scope.
type Event struct {
	Type EventType
	// Results is nil for EventChangeErrors.
	Results *Diff
	Errors  Diff
}

// Listener receives events synchronously, on the goroutine that made the
// change. A panicking listener aborts the rest of the dispatch.
type Listener func(Event)

// ListenerID identifies a registered listener for removal.
type ListenerID uint64

type subscription struct {
	id ListenerID
	fn Listener
}

type listeners struct {
	next ListenerID
	subs map[EventType][]subscription
}

func (l *listeners) add(t EventType, fn Listener) ListenerID {
	if l.subs == nil {
		l.subs = make(map[EventType][]subscription)
	}
	l.next++
	l.subs[t] = append(l.subs[t], subscription{id: l.next, fn: fn})
	return l.next
}

func (l *listeners) remove(t EventType, id ListenerID) {
	if len(l.subs[t]) == 0 {
		return
	}
	l.subs[t] = slices.DeleteFunc(slices.Clone(l.subs[t]), func(s subscription) bool {
		return s.id == id
	})
}

// dispatch calls the listeners registered when it starts, in subscription
// order.
func (l *listeners) dispatch(ev Event) {
	for _, s := range slices.Clone(l.subs[ev.Type]) {
		s.fn(ev)
	}
}

// AddEventListener registers fn for events of type t.
func (s *MathScope[P]) AddEventListener(t EventType, fn Listener) ListenerID {
	return s.listeners.add(t, fn)
}

// RemoveEventListener unregisters the listener. Unknown ids are ignored.
func (s *MathScope[P]) RemoveEventListener(t EventType, id ListenerID) {
	s.listeners.remove(t, id)
}

func (s *MathScope[P]) emit(results, errs Diff) {
	s.listeners.dispatch(Event{Type: EventChange, Results: &results, Errors: errs})
	if errs.Touched.Cardinality() > 0 {
		s.listeners.dispatch(Event{Type: EventChangeErrors, Errors: errs})
	}
}
