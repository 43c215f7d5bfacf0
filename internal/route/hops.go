package route

import (
	"slices"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/device"
)

// BuildHops expands a definition into its ordered hops.
//
//	single:   [A tag=RouteID]
//	two_hop:  [A tag=0, B tag=0]                        advance duration/2
//	four_hop: [A tag=Front, B tag=0, C tag=0, A tag=Back] advance OffsetStep
//
// In a four-hop route both visits to A run for Duration-EdgeTrim, floored
// at zero.
func BuildHops(d Definition) []Hop {
	var hops []Hop

	switch d.Kind {
	case KindSingle:
		hops = []Hop{
			{Target: d.Devices[0], Duration: d.Duration, Pixels: d.Pixels, RouteID: d.RouteID},
		}

	case KindTwoHop:
		half := d.Duration / 2
		hops = []Hop{
			{Target: d.Devices[0], Duration: d.Duration, Pixels: d.Pixels, Advance: half},
			{Target: d.Devices[1], Duration: d.Duration, Pixels: d.Pixels, Advance: half},
		}

	case KindFourHop:
		edge := saturatingSub(d.Duration, d.EdgeTrim)
		step := d.OffsetStep
		hops = []Hop{
			{Target: d.Devices[0], Duration: edge, Pixels: d.Pixels, RouteID: d.FrontTag, Advance: step},
			{Target: d.Devices[1], Duration: d.Duration, Pixels: d.Pixels, Advance: step},
			{Target: d.Devices[2], Duration: d.Duration, Pixels: d.Pixels, Advance: step},
			{Target: d.Devices[0], Duration: edge, Pixels: d.Pixels, RouteID: d.BackTag, Advance: step},
		}
	}

	for i := range hops {
		hops[i].Index = i
		hops[i].Mode = device.WriteWithoutResponse
		if slices.Contains(d.AckHops, i) {
			hops[i].Mode = device.WriteWithResponse
		}
	}
	return hops
}

func saturatingSub(a, b uint16) uint16 {
	if b >= a {
		return 0
	}
	return a - b
}
