// Package mapinput turns pointer events on the rendered map into order-entry
// commands. It is the only package that knows screen coordinates.
package mapinput

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/DoyleJ11/dipclient/internal/orders"
)

var ErrInvalidLayout = errors.New("invalid map layout")

type Point struct {
	X float64
	Y float64
}

// Region is the clickable outline of one location. Coasts of split provinces
// have their own regions nested inside the province.
type Region struct {
	Loc     string
	Polygon []Point
	area    float64
}

// Marker is where a unit standing on Loc is drawn.
type Marker struct {
	Loc    string
	Center Point
}

type Layout struct {
	Name       string
	Width      float64
	Height     float64
	UnitRadius float64
	regions    []Region
	markers    map[string]Marker
}

type layoutFile struct {
	Name       string       `toml:"name"`
	Width      float64      `toml:"width"`
	Height     float64      `toml:"height"`
	UnitRadius float64      `toml:"unit_radius"`
	Regions    []regionFile `toml:"region"`
	Units      []unitFile   `toml:"unit"`
}

type regionFile struct {
	Loc    string       `toml:"loc"`
	Points [][2]float64 `toml:"points"`
}

type unitFile struct {
	Loc string  `toml:"loc"`
	X   float64 `toml:"x"`
	Y   float64 `toml:"y"`
}

func LoadLayout(path string) (*Layout, error) {
	var raw layoutFile
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("load map layout: %w", err)
	}
	return buildLayout(raw)
}

func ParseLayout(data string) (*Layout, error) {
	var raw layoutFile
	if _, err := toml.Decode(data, &raw); err != nil {
		return nil, fmt.Errorf("parse map layout: %w", err)
	}
	return buildLayout(raw)
}

func buildLayout(raw layoutFile) (*Layout, error) {
	l := &Layout{
		Name:       strings.TrimSpace(raw.Name),
		Width:      raw.Width,
		Height:     raw.Height,
		UnitRadius: raw.UnitRadius,
		markers:    make(map[string]Marker, len(raw.Units)),
	}
	if l.UnitRadius <= 0 {
		l.UnitRadius = 10
	}
	for _, r := range raw.Regions {
		loc := orders.Normalize(r.Loc)
		if loc == "" {
			return nil, fmt.Errorf("%w: region without loc", ErrInvalidLayout)
		}
		if len(r.Points) < 3 {
			return nil, fmt.Errorf("%w: region %s needs at least 3 points", ErrInvalidLayout, loc)
		}
		poly := make([]Point, len(r.Points))
		for i, p := range r.Points {
			poly[i] = Point{X: p[0], Y: p[1]}
		}
		l.regions = append(l.regions, Region{Loc: loc, Polygon: poly, area: area(poly)})
	}
	for _, u := range raw.Units {
		loc := orders.Normalize(u.Loc)
		if loc == "" {
			return nil, fmt.Errorf("%w: unit marker without loc", ErrInvalidLayout)
		}
		l.markers[loc] = Marker{Loc: loc, Center: Point{X: u.X, Y: u.Y}}
	}
	return l, nil
}

// Locate returns the location under p. Units standing on occupied locations
// are drawn above the map and win over region outlines. Among overlapping
// regions the smallest one wins, so a coast beats its province.
func (l *Layout) Locate(p Point, occupied []string) (string, bool) {
	for _, loc := range occupied {
		m, ok := l.marker(loc)
		if !ok {
			continue
		}
		if math.Hypot(p.X-m.Center.X, p.Y-m.Center.Y) <= l.UnitRadius {
			return orders.Normalize(loc), true
		}
	}

	best := -1
	for i, r := range l.regions {
		if !contains(r.Polygon, p) {
			continue
		}
		if best < 0 || r.area < l.regions[best].area {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return l.regions[best].Loc, true
}

// marker finds the marker for loc, falling back to its province.
func (l *Layout) marker(loc string) (Marker, bool) {
	loc = orders.Normalize(loc)
	if m, ok := l.markers[loc]; ok {
		return m, true
	}
	m, ok := l.markers[orders.Base(loc)]
	return m, ok
}

func (l *Layout) Regions() []string {
	out := make([]string, len(l.regions))
	for i, r := range l.regions {
		out[i] = r.Loc
	}
	return out
}

// contains is the even-odd ray casting test.
func contains(poly []Point, p Point) bool {
	in := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

func area(poly []Point) float64 {
	var sum float64
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		sum += (poly[j].X + poly[i].X) * (poly[j].Y - poly[i].Y)
	}
	return math.Abs(sum) / 2
}
