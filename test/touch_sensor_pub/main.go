// Command touch_sensor_pub publishes a random touch sensor value once a
// second, for exercising subscribers without a simulator.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/cKohl10/TactileSim/msgs/std_msgs"
	"github.com/cKohl10/TactileSim/ros"
)

const (
	maxTouchValue = 100.0
	publishPeriod = time.Second
)

type touchPublisher struct {
	pub    ros.Publisher
	rng    *rand.Rand
	logger logrus.FieldLogger
}

func (t *touchPublisher) publish() float32 {
	var msg std_msgs.Float32
	msg.Data = float32(t.rng.Float64() * maxTouchValue)
	t.pub.Publish(&msg)
	t.logger.Infof("Published touch sensor value: %v", msg.Data)
	return msg.Data
}

// run publishes once per cycle of rate while ok reports true.
func (t *touchPublisher) run(ok func() bool, rate *ros.Rate) {
	for ok() {
		t.publish()
		rate.Sleep()
	}
}

func main() {
	node, err := ros.NewNode("touch_sensor_publisher", os.Args[1:])
	if err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
	defer node.Shutdown()

	pub, err := node.NewPublisher("touch_sensor_val", std_msgs.MsgFloat32)
	if err != nil {
		node.Logger().Error(err)
		return
	}
	t := &touchPublisher{
		pub:    pub,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: node.Logger(),
	}
	clk := clock.New()
	t.run(node.OK, ros.CycleTime(clk, publishPeriod))
}
