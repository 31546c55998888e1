package orders

import "slices"

// Index is the legal-continuations index for one power in one phase. It is
// immutable once built.
type Index struct {
	phase     string
	orderable []string
	byOrigin  map[string][]Order
}

// NewIndex parses the server's possible-orders map. Strings that do not parse
// are returned in skipped and left out of the index.
func NewIndex(phase string, orderable []string, possible map[string][]string) (idx *Index, skipped []string) {
	idx = &Index{
		phase:    phase,
		byOrigin: make(map[string][]Order, len(orderable)),
	}
	for _, loc := range orderable {
		loc = Normalize(loc)
		if loc == "" || slices.Contains(idx.orderable, loc) {
			continue
		}
		idx.orderable = append(idx.orderable, loc)
	}
	for origin, texts := range possible {
		origin = Normalize(origin)
		if !slices.Contains(idx.orderable, origin) {
			continue
		}
		for _, text := range texts {
			o, err := Parse(origin, text)
			if err != nil {
				skipped = append(skipped, text)
				continue
			}
			idx.byOrigin[origin] = append(idx.byOrigin[origin], o)
		}
	}
	return idx, skipped
}

// EmptyIndex has no orderable locations; used before the first snapshot and
// after an optimistic phase change.
func EmptyIndex(phase string) *Index {
	return &Index{phase: phase, byOrigin: map[string][]Order{}}
}

func (idx *Index) Phase() string {
	if idx == nil {
		return ""
	}
	return idx.phase
}

func (idx *Index) Orderable() []string {
	if idx == nil {
		return nil
	}
	return slices.Clone(idx.orderable)
}

// OriginFor resolves a map selection to the orderable location it refers to.
func (idx *Index) OriginFor(selection string) (string, bool) {
	if idx == nil {
		return "", false
	}
	sel := Normalize(selection)
	for _, loc := range idx.orderable {
		if loc == sel || Base(loc) == Base(sel) {
			return loc, true
		}
	}
	return "", false
}

// Orders returns the legal orders listed for origin.
func (idx *Index) Orders(origin string) []Order {
	if idx == nil {
		return nil
	}
	src := idx.byOrigin[Normalize(origin)]
	out := make([]Order, len(src))
	for i, o := range src {
		out[i] = o.clone()
	}
	return out
}

// OrdersOfType returns every legal order of type t across all origins, in
// orderable-location order.
func (idx *Index) OrdersOfType(t Type) []Order {
	if idx == nil {
		return nil
	}
	var out []Order
	for _, loc := range idx.orderable {
		for _, o := range idx.byOrigin[loc] {
			if o.Type == t {
				out = append(out, o.clone())
			}
		}
	}
	return out
}

// TypesAt lists the order types legal at origin, in grammar order.
func (idx *Index) TypesAt(origin string) []Type {
	if idx == nil {
		return nil
	}
	present := map[Type]bool{}
	for _, o := range idx.byOrigin[Normalize(origin)] {
		present[o.Type] = true
	}
	var out []Type
	for _, g := range Grammars {
		if present[g.Type] {
			out = append(out, g.Type)
		}
	}
	return out
}

// Allows reports whether text is one of the legal orders for origin.
func (idx *Index) Allows(origin, text string) bool {
	for _, o := range idx.Orders(origin) {
		if o.Text() == text {
			return true
		}
	}
	return false
}
