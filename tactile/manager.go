package tactile

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Manager creates and removes contact sensors in a scene and owns the
// registry of the sensors it created. A Manager is bound to one extension
// instance and is not safe for concurrent use: the host calls ImportAndApply,
// RemoveAll and Tick from the same event loop.
type Manager struct {
	scene   Scene
	reader  SensorReader
	display Display
	logger  *logrus.Entry
	status  *Status

	metersPerUnit float64
	activated     bool
	parentPaths   []string

	// sensors and gauges are built together; gauges[i] shows sensors[i].
	sensors []ActiveSensor
	gauges  []Gauge
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(m *Manager) {
		m.logger = logger.WithField("module", "tactile")
	}
}

// WithMetersPerUnit sets the factor readings are scaled by before display.
func WithMetersPerUnit(f float64) Option {
	return func(m *Manager) {
		m.metersPerUnit = f
	}
}

func NewManager(scene Scene, reader SensorReader, display Display, opts ...Option) *Manager {
	m := &Manager{
		scene:         scene,
		reader:        reader,
		display:       display,
		metersPerUnit: 1.0,
	}
	m.status = newStatus(display.SetStatusText)
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logrus.StandardLogger().WithField("module", "tactile")
	}
	return m
}

// ImportAndApply replaces the sensors in the scene with the ones listed in
// the sensor table at path and returns how many were created. A table that
// fails to parse leaves the scene without sensors and is returned as a
// *ParseError; every other problem is only reported in the status log.
func (m *Manager) ImportAndApply(path string) (int, error) {
	m.activated = true
	m.status.Reset()

	m.status.Println("Removing existing sensors...")
	m.removeSensors(false)
	m.status.Println("Sensors successfully removed")
	m.status.Println("")

	m.status.Printf("Importing sensor data from '%s'...\n", path)
	table, err := ParseFile(path)
	if err != nil {
		m.logger.WithError(err).Warn("sensor import failed")
		m.status.Println("Invalid file path or file format!")
		m.status.Println("Please make sure the file has at least 2 sensors and is formatted correctly.")
		m.status.Println(err.Error())
		m.sensors = nil
		m.rebuildDisplay()
		return 0, err
	}

	// Sensors may exist under attachment paths the previous import did not
	// know about, so remove again now that the new paths are known.
	m.parentPaths = uniquePaths(table.ParentPaths())
	m.removeSensors(false)
	m.status.Println("File opened successfully")

	var sensors []ActiveSensor
	index := make(map[string]int)
	created := 0
	for _, def := range table.Definitions() {
		if !m.scene.PathExists(def.ParentPath) {
			m.logger.WithError(&PathError{Op: "create", Path: def.ParentPath}).
				Warnf("skipping sensor %s", def.Name)
			m.status.Println("Could not find parent path: " + def.ParentPath)
			continue
		}
		if err := m.createContactSensor(def); err != nil {
			m.logger.WithError(err).Errorf("failed to create sensor %s", def.Name)
			m.status.Printf("Could not create sensor %s: %v\n", def.Name, err)
			continue
		}
		created++

		s := newActiveSensor(def)
		if i, ok := index[s.Name]; ok {
			sensors[i] = s
		} else {
			index[s.Name] = len(sensors)
			sensors = append(sensors, s)
		}
	}

	m.status.Printf("\nSuccessfully created %d sensors\n", created)
	m.logger.Infof("created %d sensors from %s", created, path)

	m.sensors = sensors
	m.rebuildDisplay()
	return created, nil
}

func (m *Manager) createContactSensor(def SensorDefinition) error {
	return m.scene.CreateContactSensor(ContactSensorSpec{
		Name:         "/" + def.ChildName(),
		Parent:       def.ParentPath,
		Translation:  def.Offset,
		Radius:       def.Radius,
		MinThreshold: DefaultMinThreshold,
		MaxThreshold: DefaultMaxThreshold,
		Color:        DefaultColor,
	})
}

// RemoveAll deletes every sensor under the tracked attachment paths and
// deactivates the manager. It returns the number of prims deleted and the
// per-path failures combined.
func (m *Manager) RemoveAll() (int, error) {
	m.activated = false
	m.status.Reset()

	removed, err := m.removeSensors(true)
	m.sensors = nil
	m.rebuildDisplay()
	if removed == 0 && err == nil {
		m.status.Println("No sensors to remove")
	} else {
		m.status.Printf("Removed %d sensors\n", removed)
	}
	m.status.Println("All sensors removed")
	m.status.Println("")
	m.status.Println("If sensors remain, choose the correct configuration file and click 'Update'")
	return removed, err
}

// removeSensors deletes every child carrying the sensor marker under each
// tracked attachment path. A path that fails is logged and skipped, and
// also written to the status log when report is set. The registry is left
// to the caller.
func (m *Manager) removeSensors(report bool) (int, error) {
	var errs error
	removed := 0
	for _, parent := range m.parentPaths {
		if !m.scene.PathExists(parent) {
			errs = multierr.Append(errs, &PathError{Op: "remove", Path: parent})
			if report {
				m.status.Println("Could not find parent path: " + parent)
			}
			continue
		}
		children, err := m.scene.Children(parent)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "unexpected path %s", parent))
			if report {
				m.status.Println("Unexpected path!")
			}
			continue
		}
		for _, child := range children {
			if !strings.Contains(child, SensorMarker) {
				continue
			}
			path := parent + "/" + child
			if err := m.scene.DeletePrims([]string{path}); err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "delete %s", path))
				continue
			}
			removed++
		}
	}
	if errs != nil {
		m.logger.WithError(errs).Warn("sensor removal incomplete")
	}
	m.logger.Debugf("removed %d sensors", removed)
	return removed, errs
}

func (m *Manager) rebuildDisplay() {
	names := make([]string, len(m.sensors))
	for i, s := range m.sensors {
		names[i] = s.Name
	}
	m.gauges = m.display.Rebuild(names)
	if len(m.gauges) != len(names) {
		m.logger.Warnf("display built %d gauges for %d sensors", len(m.gauges), len(names))
	}
}

// Active reports whether sensors have been imported and not removed since.
func (m *Manager) Active() bool { return m.activated }

// Sensors returns the active sensors in display order.
func (m *Manager) Sensors() []ActiveSensor {
	out := make([]ActiveSensor, len(m.sensors))
	copy(out, m.sensors)
	return out
}

// ParentPaths returns the attachment paths removal scans.
func (m *Manager) ParentPaths() []string {
	out := make([]string, len(m.parentPaths))
	copy(out, m.parentPaths)
	return out
}

// Status returns the log of the last operation.
func (m *Manager) Status() string { return m.status.Text() }

func uniquePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
