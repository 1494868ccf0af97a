// Package panel holds the displays sensor readings are shown on.
package panel

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/cKohl10/TactileSim/tactile"
)

const (
	// GaugeMin and GaugeMax bound the force range a gauge bar covers, in
	// newtons.
	GaugeMin = 0.0
	GaugeMax = 15.0
	// GaugeStep is the resolution readings are shown with.
	GaugeStep = 0.001

	barWidth = 20
)

type gauge struct {
	name  string
	value float64
}

func (g *gauge) SetValue(v float64) { g.value = v }

// Terminal renders the status log and a table of sensor readings to a
// writer.
type Terminal struct {
	out    io.Writer
	status string
	gauges []*gauge
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) SetStatusText(text string) {
	t.status = text
}

func (t *Terminal) Rebuild(names []string) []tactile.Gauge {
	t.gauges = make([]*gauge, len(names))
	out := make([]tactile.Gauge, len(names))
	for i, name := range names {
		t.gauges[i] = &gauge{name: name}
		out[i] = t.gauges[i]
	}
	return out
}

// Values returns the gauge values in display order.
func (t *Terminal) Values() []float64 {
	values := make([]float64, len(t.gauges))
	for i, g := range t.gauges {
		values[i] = g.value
	}
	return values
}

func (t *Terminal) Status() string { return t.status }

// Render formats the readings table.
func (t *Terminal) Render() string {
	tw := table.NewWriter()
	tw.SetTitle("Sensor Readings")
	tw.AppendHeader(table.Row{"#", "Sensor", "Force (N)", ""})
	for i, g := range t.gauges {
		tw.AppendRow(table.Row{i, g.name, fmt.Sprintf("%.3f", g.value), bar(g.value)})
	}
	return tw.Render()
}

// Flush writes the status log and the readings table.
func (t *Terminal) Flush() error {
	var b strings.Builder
	if t.status != "" {
		b.WriteString(strings.TrimRight(t.status, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	_, err := io.WriteString(t.out, b.String())
	return err
}

func bar(v float64) string {
	frac := (v - GaugeMin) / (GaugeMax - GaugeMin)
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	n := int(frac*barWidth + 0.5)
	return strings.Repeat("#", n) + strings.Repeat(".", barWidth-n)
}
