package orders

import (
	"slices"
	"testing"
)

func TestNewIndexSkipsUnparseableAndForeignLocations(t *testing.T) {
	idx, skipped := NewIndex("S1901M",
		[]string{"PAR", "MAR", "PAR"},
		map[string][]string{
			"PAR": {"A PAR H", "A PAR - BUR", "garbage"},
			"MAR": {"A MAR H"},
			"BRE": {"F BRE H"},
		})

	if got := idx.Orderable(); !slices.Equal(got, []string{"PAR", "MAR"}) {
		t.Fatalf("orderable: got %v", got)
	}
	if !slices.Equal(skipped, []string{"garbage"}) {
		t.Fatalf("skipped: got %v", skipped)
	}
	if len(idx.Orders("BRE")) != 0 {
		t.Fatalf("expected orders for non-orderable location to be dropped")
	}
	if got := idx.TypesAt("PAR"); !slices.Equal(got, []Type{TypeHold, TypeMove}) {
		t.Fatalf("types: got %v", got)
	}
	if !idx.Allows("PAR", "A PAR - BUR") || idx.Allows("PAR", "A PAR - MUN") {
		t.Fatalf("Allows mismatch")
	}
}

func TestIndexOriginForCoastSelection(t *testing.T) {
	idx, _ := NewIndex("W1901A", []string{"STP"}, map[string][]string{
		"STP": {"A STP B", "F STP/NC B", "F STP/SC B", "WAIVE"},
	})

	origin, ok := idx.OriginFor("stp/sc")
	if !ok || origin != "STP" {
		t.Fatalf("got %q/%v", origin, ok)
	}
	if _, ok := idx.OriginFor("MOS"); ok {
		t.Fatalf("expected MOS not orderable")
	}
	if n := len(idx.OrdersOfType(TypeBuild)); n != 3 {
		t.Fatalf("builds: got %d, want 3", n)
	}
}

func TestIndexOrdersAreCopies(t *testing.T) {
	idx, _ := NewIndex("S1901M", []string{"PAR"}, map[string][]string{"PAR": {"A PAR - BUR"}})
	got := idx.Orders("PAR")
	got[0].Path[1].Loc = "MUN"
	if idx.Orders("PAR")[0].Text() != "A PAR - BUR" {
		t.Fatalf("index mutated through returned slice")
	}
}
