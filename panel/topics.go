package panel

import (
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/cKohl10/TactileSim/msgs/std_msgs"
	"github.com/cKohl10/TactileSim/ros"
	"github.com/cKohl10/TactileSim/tactile"
)

// PublisherNode is the part of ros.Node the topic display needs.
type PublisherNode interface {
	NewPublisher(topic string, msgType ros.MessageType) (ros.Publisher, error)
}

type topicGauge struct {
	pub ros.Publisher
}

func (g topicGauge) SetValue(v float64) {
	g.pub.Publish(&std_msgs.Float32{Data: float32(v)})
}

type discardGauge struct{}

func (discardGauge) SetValue(float64) {}

// Topics publishes every gauge as a std_msgs/Float32 topic named after its
// sensor under a common prefix.
type Topics struct {
	node   PublisherNode
	prefix string
	logger *logrus.Entry
	pubs   []ros.Publisher
}

func NewTopics(node PublisherNode, prefix string, logger logrus.FieldLogger) *Topics {
	return &Topics{
		node:   node,
		prefix: strings.TrimRight(prefix, "/"),
		logger: logger.WithField("module", "panel"),
	}
}

// SetStatusText is a no-op; status is only shown on local displays.
func (t *Topics) SetStatusText(string) {}

func (t *Topics) Rebuild(names []string) []tactile.Gauge {
	t.Close()
	gauges := make([]tactile.Gauge, len(names))
	for i, name := range names {
		topic := t.Topic(name)
		pub, err := t.node.NewPublisher(topic, std_msgs.MsgFloat32)
		if err != nil {
			t.logger.WithError(err).Errorf("could not advertise %s", topic)
			gauges[i] = discardGauge{}
			continue
		}
		t.logger.Debugf("advertised %s", topic)
		t.pubs = append(t.pubs, pub)
		gauges[i] = topicGauge{pub}
	}
	return gauges
}

// Topic returns the topic a sensor's readings are published on.
func (t *Topics) Topic(sensor string) string {
	return t.prefix + "/" + topicName(sensor)
}

// Close shuts down every publisher created by the last Rebuild.
func (t *Topics) Close() {
	for _, pub := range t.pubs {
		pub.Shutdown()
	}
	t.pubs = nil
}

// topicName turns a sensor name into a valid graph resource name: word
// characters only, starting with a letter.
func topicName(sensor string) string {
	name := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return r
		}
		return '_'
	}, sensor)
	if name == "" || !unicode.IsLetter(rune(name[0])) {
		name = "sensor_" + name
	}
	return name
}
