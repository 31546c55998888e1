package submission

import (
	"maps"
	"slices"

	"github.com/DoyleJ11/dipclient/internal/orders"
)

// BuiltOrderSet holds the finished orders of one phase keyed by origin.
type BuiltOrderSet struct {
	phase  string
	orders map[string]orders.Order
}

func NewSet(phase string) *BuiltOrderSet {
	return &BuiltOrderSet{phase: phase, orders: map[string]orders.Order{}}
}

func (s *BuiltOrderSet) Phase() string { return s.phase }

func (s *BuiltOrderSet) Len() int { return len(s.orders) }

// Put stores o under its origin, replacing any earlier order for it.
func (s *BuiltOrderSet) Put(o orders.Order) (replaced bool) {
	_, replaced = s.orders[o.Origin]
	o.Path = slices.Clone(o.Path)
	s.orders[o.Origin] = o
	return replaced
}

func (s *BuiltOrderSet) Delete(origin string) bool {
	origin = orders.Normalize(origin)
	_, ok := s.orders[origin]
	delete(s.orders, origin)
	return ok
}

func (s *BuiltOrderSet) Clear() { clear(s.orders) }

func (s *BuiltOrderSet) Get(origin string) (orders.Order, bool) {
	o, ok := s.orders[orders.Normalize(origin)]
	return o, ok
}

// Origins returns the keys in a stable order.
func (s *BuiltOrderSet) Origins() []string {
	return slices.Sorted(maps.Keys(s.orders))
}

// Texts returns the serialized orders aligned with Origins.
func (s *BuiltOrderSet) Texts() []string {
	origins := s.Origins()
	texts := make([]string, len(origins))
	for i, origin := range origins {
		texts[i] = s.orders[origin].Text()
	}
	return texts
}

func (s *BuiltOrderSet) Orders() []orders.Order {
	out := make([]orders.Order, 0, len(s.orders))
	for _, origin := range s.Origins() {
		o := s.orders[origin]
		o.Path = slices.Clone(o.Path)
		out = append(out, o)
	}
	return out
}

// Snapshot maps origin to order text.
func (s *BuiltOrderSet) Snapshot() map[string]string {
	out := make(map[string]string, len(s.orders))
	for origin, o := range s.orders {
		out[origin] = o.Text()
	}
	return out
}
