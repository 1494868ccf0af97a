// Package tactile imports tactile contact sensor tables, places the sensors
// on a robot in a scene graph and keeps a readings display in sync with them.
package tactile

import (
	"github.com/golang/geo/r3"
)

const (
	// SensorMarker is contained in the name of every sensor prim this
	// package creates. Removal deletes any child whose name contains it.
	SensorMarker = "tact_sensor"

	// MinSensors is the smallest number of rows a sensor table may hold.
	MinSensors = 2

	// DefaultMinThreshold and DefaultMaxThreshold bound the force a contact
	// sensor reports.
	DefaultMinThreshold = 0.0
	DefaultMaxThreshold = 1000000.0
)

// DefaultColor is the RGBA colour sensors are drawn with.
var DefaultColor = [4]float64{1, 0, 0, 1}

// SensorDefinition is one row of a sensor table.
type SensorDefinition struct {
	Name       string
	Offset     r3.Vector
	Radius     float64
	ParentPath string
}

// ChildName is the prim name of the sensor under its parent, without the
// leading separator.
func (d SensorDefinition) ChildName() string {
	return SensorMarker + "_" + d.Name
}

// Path is the scene path the sensor prim is created at.
func (d SensorDefinition) Path() string {
	return d.ParentPath + "/" + d.ChildName()
}

// ActiveSensor is a sensor the manager has created in the scene.
type ActiveSensor struct {
	Name       string
	Path       string
	Definition SensorDefinition
}

func newActiveSensor(def SensorDefinition) ActiveSensor {
	return ActiveSensor{Name: def.Name, Path: def.Path(), Definition: def}
}
