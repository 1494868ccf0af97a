package tactile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

// fakeScene is a flat scene graph keyed by path.
type fakeScene struct {
	prims     map[string][]string
	created   []ContactSensorSpec
	deleted   []string
	brokenDir string
	// onCreate, when set, runs before each sensor is created.
	onCreate func(spec ContactSensorSpec)
}

func newFakeScene(paths ...string) *fakeScene {
	s := &fakeScene{prims: make(map[string][]string)}
	for _, p := range paths {
		s.prims[p] = nil
	}
	return s
}

func (s *fakeScene) PathExists(path string) bool {
	_, ok := s.prims[path]
	return ok
}

func (s *fakeScene) Children(path string) ([]string, error) {
	if path == s.brokenDir {
		return nil, errors.New("stage is locked")
	}
	children, ok := s.prims[path]
	if !ok {
		return nil, errors.Errorf("no prim at %s", path)
	}
	return append([]string(nil), children...), nil
}

func (s *fakeScene) CreateContactSensor(spec ContactSensorSpec) error {
	if _, ok := s.prims[spec.Parent]; !ok {
		return errors.Errorf("no prim at %s", spec.Parent)
	}
	if s.onCreate != nil {
		s.onCreate(spec)
	}
	name := strings.TrimPrefix(spec.Name, "/")
	s.prims[spec.Parent] = append(s.prims[spec.Parent], name)
	s.prims[spec.Parent+"/"+name] = nil
	s.created = append(s.created, spec)
	return nil
}

func (s *fakeScene) DeletePrims(paths []string) error {
	for _, p := range paths {
		if _, ok := s.prims[p]; !ok {
			return errors.Errorf("no prim at %s", p)
		}
		delete(s.prims, p)
		parent, name := p[:strings.LastIndex(p, "/")], p[strings.LastIndex(p, "/")+1:]
		children := s.prims[parent]
		for i, c := range children {
			if c == name {
				s.prims[parent] = append(children[:i], children[i+1:]...)
				break
			}
		}
		s.deleted = append(s.deleted, p)
	}
	return nil
}

// markedChildren counts the sensor prims directly under path.
func (s *fakeScene) markedChildren(path string) int {
	n := 0
	for _, c := range s.prims[path] {
		if strings.Contains(c, SensorMarker) {
			n++
		}
	}
	return n
}

type fakeReader map[string]Reading

func (r fakeReader) SensorReading(path string) Reading {
	return r[path]
}

type fakeGauge struct {
	name  string
	value float64
	sets  int
}

func (g *fakeGauge) SetValue(v float64) {
	g.value = v
	g.sets++
}

type fakeDisplay struct {
	status   string
	gauges   []*fakeGauge
	rebuilds int
}

func (d *fakeDisplay) SetStatusText(text string) { d.status = text }

func (d *fakeDisplay) Rebuild(names []string) []Gauge {
	d.rebuilds++
	d.gauges = nil
	out := make([]Gauge, len(names))
	for i, n := range names {
		g := &fakeGauge{name: n}
		d.gauges = append(d.gauges, g)
		out[i] = g
	}
	return out
}

func (d *fakeDisplay) names() []string {
	var out []string
	for _, g := range d.gauges {
		out = append(out, g.name)
	}
	return out
}

func writeTable(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensors.csv")
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}
	return path
}

const header = "name,x,y,z,radius,parent"
