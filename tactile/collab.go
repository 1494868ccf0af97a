package tactile

import (
	"github.com/golang/geo/r3"
)

// ContactSensorSpec carries the arguments of a contact sensor creation
// command. Name is the prim name relative to Parent and starts with "/".
type ContactSensorSpec struct {
	Name         string
	Parent       string
	Translation  r3.Vector
	Radius       float64
	MinThreshold float64
	MaxThreshold float64
	Color        [4]float64
}

// Scene is the scene graph the sensors live in.
type Scene interface {
	PathExists(path string) bool
	// Children returns the names of the direct children of path.
	Children(path string) ([]string, error)
	CreateContactSensor(spec ContactSensorSpec) error
	DeletePrims(paths []string) error
}

// Reading is one contact sensor measurement.
type Reading struct {
	Value   float64
	IsValid bool
}

// SensorReader reads the current measurement of a sensor by scene path.
type SensorReader interface {
	SensorReading(path string) Reading
}

// Gauge is a read-only numeric display element.
type Gauge interface {
	SetValue(v float64)
}

// Display shows the status log and one gauge per active sensor.
type Display interface {
	SetStatusText(text string)
	// Rebuild discards the current gauges and returns one new gauge per
	// name, in the order given.
	Rebuild(names []string) []Gauge
}
