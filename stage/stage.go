// Package stage is an in-memory scene graph with simulated contact sensors.
// It stands in for the simulator when the extension runs outside of it.
package stage

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cKohl10/TactileSim/tactile"
)

const sep = "/"

type prim struct {
	name     string
	path     string
	parent   *prim
	children []*prim
	sensor   *tactile.ContactSensorSpec
}

// load is an external contact force applied at a sensor path.
type load struct {
	force     float64
	amplitude float64
	period    time.Duration
}

func (l load) at(t time.Duration) float64 {
	if l.period <= 0 || l.amplitude == 0 {
		return l.force
	}
	phase := 2 * math.Pi * float64(t) / float64(l.period)
	return l.force + l.amplitude*math.Sin(phase)
}

// Stage is not safe for concurrent use.
type Stage struct {
	root    *prim
	prims   map[string]*prim
	loads   map[string]load
	playing bool
	simTime time.Duration
	logger  *logrus.Entry
}

func New(logger logrus.FieldLogger) *Stage {
	root := &prim{path: sep}
	return &Stage{
		root:   root,
		prims:  map[string]*prim{sep: root},
		loads:  make(map[string]load),
		logger: logger.WithField("module", "stage"),
	}
}

func validPath(path string) bool {
	if path == sep {
		return true
	}
	if !strings.HasPrefix(path, sep) || strings.HasSuffix(path, sep) {
		return false
	}
	for _, elem := range strings.Split(path[1:], sep) {
		if elem == "" {
			return false
		}
	}
	return true
}

func (s *Stage) addChild(parent *prim, name string) *prim {
	path := parent.path + sep + name
	if parent == s.root {
		path = sep + name
	}
	p := &prim{name: name, path: path, parent: parent}
	parent.children = append(parent.children, p)
	s.prims[path] = p
	return p
}

// Define creates the prim at path along with any missing ancestors.
func (s *Stage) Define(path string) error {
	if !validPath(path) {
		return errors.Errorf("invalid prim path %q", path)
	}
	cur := s.root
	if path == sep {
		return nil
	}
	for _, name := range strings.Split(path[1:], sep) {
		var next *prim
		for _, c := range cur.children {
			if c.name == name {
				next = c
				break
			}
		}
		if next == nil {
			next = s.addChild(cur, name)
		}
		cur = next
	}
	return nil
}

func (s *Stage) PathExists(path string) bool {
	_, ok := s.prims[path]
	return ok
}

// Children returns the names of the direct children of path in creation
// order.
func (s *Stage) Children(path string) ([]string, error) {
	p, ok := s.prims[path]
	if !ok {
		return nil, errors.Errorf("no prim at %s", path)
	}
	names := make([]string, len(p.children))
	for i, c := range p.children {
		names[i] = c.name
	}
	return names, nil
}

func (s *Stage) CreateContactSensor(spec tactile.ContactSensorSpec) error {
	parent, ok := s.prims[spec.Parent]
	if !ok {
		return errors.Errorf("no prim at %s", spec.Parent)
	}
	name := strings.TrimPrefix(spec.Name, sep)
	if name == "" || strings.Contains(name, sep) {
		return errors.Errorf("invalid sensor name %q", spec.Name)
	}
	if spec.Radius <= 0 {
		return errors.Errorf("sensor %s: radius must be positive", name)
	}
	for _, c := range parent.children {
		if c.name == name {
			return errors.Errorf("prim %s already exists under %s", name, spec.Parent)
		}
	}
	p := s.addChild(parent, name)
	sensor := spec
	p.sensor = &sensor
	s.logger.Debugf("created contact sensor %s", p.path)
	return nil
}

// DeletePrims removes each path and everything below it. It stops at the
// first path that does not exist.
func (s *Stage) DeletePrims(paths []string) error {
	for _, path := range paths {
		p, ok := s.prims[path]
		if !ok {
			return errors.Errorf("no prim at %s", path)
		}
		if p == s.root {
			return errors.New("cannot delete the pseudo-root")
		}
		siblings := p.parent.children
		for i, c := range siblings {
			if c == p {
				p.parent.children = append(siblings[:i:i], siblings[i+1:]...)
				break
			}
		}
		s.forget(p)
		s.logger.Debugf("deleted %s", path)
	}
	return nil
}

func (s *Stage) forget(p *prim) {
	delete(s.prims, p.path)
	for _, c := range p.children {
		s.forget(c)
	}
}

// SetForce applies a constant contact force at path. The sensor need not
// exist yet.
func (s *Stage) SetForce(path string, newtons float64) {
	s.loads[path] = load{force: newtons}
}

// SetOscillatingForce applies force + amplitude*sin(2*pi*t/period).
func (s *Stage) SetOscillatingForce(path string, force, amplitude float64, period time.Duration) {
	s.loads[path] = load{force: force, amplitude: amplitude, period: period}
}

// Step advances simulation time and starts playback.
func (s *Stage) Step(dt time.Duration) {
	s.playing = true
	s.simTime += dt
}

// Stop halts playback. Readings are invalid while stopped.
func (s *Stage) Stop() {
	s.playing = false
}

func (s *Stage) SimTime() time.Duration { return s.simTime }

// SensorReading returns the thresholded force at a contact sensor.
func (s *Stage) SensorReading(path string) tactile.Reading {
	if !s.playing {
		return tactile.Reading{}
	}
	p, ok := s.prims[path]
	if !ok || p.sensor == nil {
		return tactile.Reading{}
	}
	f := s.loads[path].at(s.simTime)
	switch {
	case f < p.sensor.MinThreshold:
		f = 0
	case f > p.sensor.MaxThreshold:
		f = p.sensor.MaxThreshold
	}
	return tactile.Reading{Value: f, IsValid: true}
}
