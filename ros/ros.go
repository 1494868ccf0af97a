// Package ros is a publisher-side ROS1 client: it registers topics with a
// ROS master and streams messages to subscribers over TCPROS.
package ros

import (
	"github.com/sirupsen/logrus"
)

type Node interface {
	// NewPublisher registers topic with the master. Publishing the same
	// topic twice returns the existing publisher.
	NewPublisher(topic string, msgType MessageType) (Publisher, error)

	OK() bool
	// Spin blocks until the node is shut down or interrupted.
	Spin()
	Shutdown()

	Name() string
	Logger() *logrus.Entry
	NonRosArgs() []string
}

// NodeOption configures a node.
type NodeOption func(*nodeOptions)

type nodeOptions struct {
	logger *logrus.Logger
}

// WithLogger makes the node log to logger instead of DefaultLogger().
func WithLogger(logger *logrus.Logger) NodeOption {
	return func(o *nodeOptions) {
		o.logger = logger
	}
}

// NewNode starts a node. args are the process arguments; ROS remappings
// (from:=to), private parameters (_name:=value) and special keys
// (__name, __ns, __master, __hostname, __ip) are consumed and the rest are
// returned by NonRosArgs.
func NewNode(name string, args []string, opts ...NodeOption) (Node, error) {
	o := nodeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = DefaultLogger()
	}
	return newDefaultNode(name, args, o.logger)
}

type Publisher interface {
	Publish(msg Message)
	GetNumSubscribers() int
	Shutdown()
}
