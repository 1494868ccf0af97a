package tactile

import (
	"testing"
	"time"
)

func importAB(t *testing.T, reader SensorReader, opts ...Option) (*Manager, *fakeDisplay) {
	t.Helper()
	display := &fakeDisplay{}
	m := NewManager(newFakeScene("/Robot/Leg1", "/Robot/Leg2"), reader, display, opts...)
	path := writeTable(t, header, "A,0,0,0.01,5,/Robot/Leg1", "B,0,0,0.01,5,/Robot/Leg2")
	if _, err := m.ImportAndApply(path); err != nil {
		t.Fatalf("ImportAndApply: %v", err)
	}
	return m, display
}

func TestTickForwardsReadings(t *testing.T) {
	reader := fakeReader{
		"/Robot/Leg1/tact_sensor_A": {Value: 7, IsValid: false},
		"/Robot/Leg2/tact_sensor_B": {Value: 3.2, IsValid: true},
	}
	m, display := importAB(t, reader)

	m.Tick(time.Second / 60)
	if got := display.gauges[0].value; got != 0 {
		t.Errorf("gauge A = %v, want 0", got)
	}
	if got := display.gauges[1].value; got != 3.2 {
		t.Errorf("gauge B = %v, want 3.2", got)
	}
}

func TestTickScalesByUnitFactor(t *testing.T) {
	reader := fakeReader{
		"/Robot/Leg1/tact_sensor_A": {Value: 2, IsValid: true},
		"/Robot/Leg2/tact_sensor_B": {Value: 4, IsValid: true},
	}
	m, display := importAB(t, reader, WithMetersPerUnit(0.5))

	m.Tick(time.Millisecond)
	if display.gauges[0].value != 1 || display.gauges[1].value != 2 {
		t.Errorf("gauges = %v, %v", display.gauges[0].value, display.gauges[1].value)
	}
}

func TestTickFollowsGaugeOrder(t *testing.T) {
	reader := fakeReader{
		"/Robot/Leg1/tact_sensor_A": {Value: 1, IsValid: true},
		"/Robot/Leg2/tact_sensor_B": {Value: 2, IsValid: true},
	}
	m, display := importAB(t, reader)
	m.Tick(time.Millisecond)
	for i, s := range m.Sensors() {
		g := display.gauges[i]
		if g.name != s.Name {
			t.Errorf("gauge %d is %s, sensor %d is %s", i, g.name, i, s.Name)
		}
		if g.value != reader[s.Path].Value {
			t.Errorf("gauge %s = %v, want %v", g.name, g.value, reader[s.Path].Value)
		}
	}
}

func TestTickInactive(t *testing.T) {
	reader := fakeReader{"/Robot/Leg1/tact_sensor_A": {Value: 1, IsValid: true}}
	m, display := importAB(t, reader)
	gauges := display.gauges

	if _, err := m.RemoveAll(); err != nil {
		t.Fatal(err)
	}
	m.Tick(time.Millisecond)
	for _, g := range gauges {
		if g.sets != 0 {
			t.Errorf("gauge %s updated after removal", g.name)
		}
	}
}
