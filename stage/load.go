package stage

import (
	"io/ioutil"
	"time"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Load reads a stage description from a JSON file:
//
//	{
//	  "prims": ["/Robot/Leg1", "/Robot/Leg2"],
//	  "contacts": [
//	    {"path": "/Robot/Leg1/tact_sensor_A", "force": 3.2},
//	    {"path": "/Robot/Leg2/tact_sensor_B", "force": 5, "amplitude": 4, "period_s": 2}
//	  ]
//	}
func Load(path string, logger logrus.FieldLogger) (*Stage, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read stage file")
	}
	s, err := Parse(data, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "stage file %s", path)
	}
	return s, nil
}

// Parse builds a stage from a JSON description.
func Parse(data []byte, logger logrus.FieldLogger) (*Stage, error) {
	s := New(logger)

	var cbErr error
	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if cbErr != nil {
			return
		}
		if dataType != jsonparser.String {
			cbErr = errors.Errorf("prim entry %s is not a string", value)
			return
		}
		path, err := jsonparser.ParseString(value)
		if err != nil {
			cbErr = err
			return
		}
		cbErr = s.Define(path)
	}, "prims")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return nil, errors.Wrap(err, "prims")
	}
	if cbErr != nil {
		return nil, errors.Wrap(cbErr, "prims")
	}

	_, err = jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if cbErr != nil {
			return
		}
		cbErr = s.parseContact(value)
	}, "contacts")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return nil, errors.Wrap(err, "contacts")
	}
	if cbErr != nil {
		return nil, errors.Wrap(cbErr, "contacts")
	}
	return s, nil
}

func (s *Stage) parseContact(value []byte) error {
	path, err := jsonparser.GetString(value, "path")
	if err != nil {
		return errors.Wrap(err, "contact path")
	}
	force, err := optionalFloat(value, "force")
	if err != nil {
		return errors.Wrapf(err, "contact %s", path)
	}
	amplitude, err := optionalFloat(value, "amplitude")
	if err != nil {
		return errors.Wrapf(err, "contact %s", path)
	}
	period, err := optionalFloat(value, "period_s")
	if err != nil {
		return errors.Wrapf(err, "contact %s", path)
	}
	if period < 0 {
		return errors.Errorf("contact %s: negative period", path)
	}
	s.SetOscillatingForce(path, force, amplitude, time.Duration(period*float64(time.Second)))
	return nil
}

func optionalFloat(data []byte, key string) (float64, error) {
	v, err := jsonparser.GetFloat(data, key)
	if err == jsonparser.KeyPathNotFoundError {
		return 0, nil
	}
	return v, err
}
