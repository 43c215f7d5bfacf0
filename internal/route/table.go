package route

import (
	"fmt"
	"slices"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/config"
)

// Table is the immutable route lookup, loaded once at startup.
//
// Thread Safety: read-only after construction; safe for concurrent use.
type Table struct {
	byName map[string]Definition
	order  []string
}

// NewTable validates defs and builds a table. Definitions keep their order
// for listing.
func NewTable(defs []Definition) (*Table, error) {
	t := &Table{
		byName: make(map[string]Definition, len(defs)),
		order:  make([]string, 0, len(defs)),
	}

	for _, d := range defs {
		if err := validateDefinition(d); err != nil {
			return nil, err
		}
		if _, exists := t.byName[d.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRoute, d.Name)
		}
		d.Devices = slices.Clone(d.Devices)
		d.AckHops = slices.Clone(d.AckHops)
		t.byName[d.Name] = d
		t.order = append(t.order, d.Name)
	}
	return t, nil
}

// TableFromConfig converts the routes section of the config file.
//
// Four-hop fields left unset take DefaultFrontTag, DefaultBackTag and
// DefaultEdgeTrim; an unset offset step takes offsetStep.
func TableFromConfig(routes []config.RouteConfig, offsetStep uint16) (*Table, error) {
	if offsetStep == 0 {
		offsetStep = DefaultOffsetStep
	}

	defs := make([]Definition, 0, len(routes))
	for _, r := range routes {
		d := Definition{
			Name:     r.Name,
			Duration: r.Duration,
			Pixels:   r.Pixels,
			Kind:     Kind(r.Kind),
			RouteID:  r.RouteID,
			Devices:  r.Devices,
			AckHops:  r.AckHops,
		}
		if d.Kind == KindFourHop {
			d.FrontTag = valueOr(r.FrontTag, DefaultFrontTag)
			d.BackTag = valueOr(r.BackTag, DefaultBackTag)
			d.EdgeTrim = valueOr(r.EdgeTrim, DefaultEdgeTrim)
			d.OffsetStep = r.OffsetStep
			if d.OffsetStep == 0 {
				d.OffsetStep = offsetStep
			}
		}
		defs = append(defs, d)
	}
	return NewTable(defs)
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func validateDefinition(d Definition) error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRoute)
	}

	n := d.HopCount()
	if n == 0 {
		return fmt.Errorf("%w: %q has unknown kind %q", ErrInvalidRoute, d.Name, d.Kind)
	}

	want := n
	if d.Kind == KindFourHop {
		want = 3
	}
	if len(d.Devices) != want {
		return fmt.Errorf("%w: %q needs %d device name(s), has %d", ErrInvalidRoute, d.Name, want, len(d.Devices))
	}
	for i, name := range d.Devices {
		if name == "" {
			return fmt.Errorf("%w: %q device %d is empty", ErrInvalidRoute, d.Name, i)
		}
	}

	for _, idx := range d.AckHops {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: %q ack hop %d out of range", ErrInvalidRoute, d.Name, idx)
		}
	}
	return nil
}

// Get returns the definition named name.
func (t *Table) Get(name string) (Definition, bool) {
	d, ok := t.byName[name]
	return d, ok
}

// List returns all definitions in table order.
func (t *Table) List() []Definition {
	out := make([]Definition, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.byName[name])
	}
	return out
}

// Names returns the route names in table order.
func (t *Table) Names() []string {
	return slices.Clone(t.order)
}

// Len returns the number of routes.
func (t *Table) Len() int {
	return len(t.order)
}
