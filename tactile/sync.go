package tactile

import (
	"time"
)

// Tick forwards the current reading of every active sensor to its gauge.
// It is called once per simulation step. Invalid readings show as zero.
func (m *Manager) Tick(dt time.Duration) {
	if !m.activated || len(m.gauges) == 0 {
		return
	}
	m.logger.Tracef("sync %d gauges, dt=%v", len(m.gauges), dt)
	for i, g := range m.gauges {
		if i >= len(m.sensors) {
			break
		}
		r := m.reader.SensorReading(m.sensors[i].Path)
		if r.IsValid {
			g.SetValue(r.Value * m.metersPerUnit)
		} else {
			g.SetValue(0)
		}
	}
}
