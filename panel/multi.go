package panel

import (
	"github.com/cKohl10/TactileSim/tactile"
)

type gaugeSet []tactile.Gauge

func (gs gaugeSet) SetValue(v float64) {
	for _, g := range gs {
		g.SetValue(v)
	}
}

type multi []tactile.Display

// Multi returns a display that mirrors status and gauges to every display
// given. Gauge i of the result drives gauge i of each display.
func Multi(displays ...tactile.Display) tactile.Display {
	return multi(displays)
}

func (m multi) SetStatusText(text string) {
	for _, d := range m {
		d.SetStatusText(text)
	}
}

func (m multi) Rebuild(names []string) []tactile.Gauge {
	sets := make([]gaugeSet, len(names))
	for _, d := range m {
		for i, g := range d.Rebuild(names) {
			if i < len(sets) {
				sets[i] = append(sets[i], g)
			}
		}
	}
	out := make([]tactile.Gauge, len(names))
	for i := range sets {
		out[i] = sets[i]
	}
	return out
}
