// Package config loads the tactile simulator settings file.
package config

import (
	"io/ioutil"
	"path/filepath"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ROS holds the settings of the optional ROS topic output.
type ROS struct {
	Enabled     bool
	NodeName    string
	TopicPrefix string
}

type Config struct {
	// SensorFile is the sensor CSV imported on start.
	SensorFile string
	// StageFile describes the scene the sensors are attached to.
	StageFile string
	// MetersPerUnit scales raw readings before they are displayed.
	MetersPerUnit float64
	PhysicsHz     float64
	// Watch re-imports SensorFile whenever it changes.
	Watch    bool
	LogLevel string
	ROS      ROS
}

func Default() Config {
	return Config{
		MetersPerUnit: 1.0,
		PhysicsHz:     60,
		LogLevel:      "info",
		ROS: ROS{
			NodeName:    "tactile_sim",
			TopicPrefix: "/tactile",
		},
	}
}

// Load reads a JSON settings file. Relative file paths in it are taken
// relative to the settings file.
//
//	{
//	  "sensor_file": "sensors.csv",
//	  "stage_file": "stage.json",
//	  "meters_per_unit": 1.0,
//	  "physics_hz": 60,
//	  "watch": true,
//	  "log_level": "info",
//	  "ros": {"enabled": true, "node_name": "tactile_sim", "topic_prefix": "/tactile"}
//	}
func Load(path string) (Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	dir := filepath.Dir(path)
	c.SensorFile = relativeTo(dir, c.SensorFile)
	c.StageFile = relativeTo(dir, c.StageFile)
	return c, nil
}

// Parse decodes settings on top of Default. Missing keys keep their
// defaults.
func Parse(data []byte) (Config, error) {
	err := jsonparser.ObjectEach(data, func(_, _ []byte, _ jsonparser.ValueType, _ int) error {
		return nil
	})
	if err != nil {
		return Config{}, errors.Wrap(err, "malformed config")
	}

	c := Default()
	steps := []struct {
		keys []string
		kind jsonparser.ValueType
		set  func([]byte) error
	}{
		{[]string{"sensor_file"}, jsonparser.String, stringInto(&c.SensorFile)},
		{[]string{"stage_file"}, jsonparser.String, stringInto(&c.StageFile)},
		{[]string{"meters_per_unit"}, jsonparser.Number, floatInto(&c.MetersPerUnit)},
		{[]string{"physics_hz"}, jsonparser.Number, floatInto(&c.PhysicsHz)},
		{[]string{"watch"}, jsonparser.Boolean, boolInto(&c.Watch)},
		{[]string{"log_level"}, jsonparser.String, stringInto(&c.LogLevel)},
		{[]string{"ros", "enabled"}, jsonparser.Boolean, boolInto(&c.ROS.Enabled)},
		{[]string{"ros", "node_name"}, jsonparser.String, stringInto(&c.ROS.NodeName)},
		{[]string{"ros", "topic_prefix"}, jsonparser.String, stringInto(&c.ROS.TopicPrefix)},
	}
	for _, step := range steps {
		value, kind, _, err := jsonparser.Get(data, step.keys...)
		if err == jsonparser.KeyPathNotFoundError {
			continue
		}
		if err != nil {
			return Config{}, errors.Wrap(err, "malformed config")
		}
		if kind != step.kind {
			return Config{}, errors.Errorf("%s: expected %s, got %s", joinKeys(step.keys), step.kind, kind)
		}
		if err := step.set(value); err != nil {
			return Config{}, errors.Wrapf(err, "%s", joinKeys(step.keys))
		}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if c.MetersPerUnit <= 0 {
		return errors.Errorf("meters_per_unit must be positive, got %v", c.MetersPerUnit)
	}
	if c.PhysicsHz <= 0 {
		return errors.Errorf("physics_hz must be positive, got %v", c.PhysicsHz)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	if c.ROS.Enabled && c.ROS.NodeName == "" {
		return errors.New("ros.node_name must not be empty")
	}
	return nil
}

func stringInto(dst *string) func([]byte) error {
	return func(value []byte) error {
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return err
		}
		*dst = s
		return nil
	}
}

func floatInto(dst *float64) func([]byte) error {
	return func(value []byte) error {
		f, err := jsonparser.ParseFloat(value)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func boolInto(dst *bool) func([]byte) error {
	return func(value []byte) error {
		b, err := jsonparser.ParseBoolean(value)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func joinKeys(keys []string) string {
	s := keys[0]
	for _, k := range keys[1:] {
		s += "." + k
	}
	return s
}

func relativeTo(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
