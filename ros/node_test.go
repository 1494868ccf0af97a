package ros

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"net"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/cKohl10/TactileSim/xmlrpc"
)

func TestLoadJsonFromString(t *testing.T) {
	value, err := loadParamFromString("42")
	if err != nil {
		t.Error(err)
	}
	i, ok := value.(float64)
	if !ok {
		t.Fail()
	}
	if i != 42.0 {
		t.Error(i)
	}

	if _, err := loadParamFromString("not json"); err == nil {
		t.Error("expected an error for a bare word")
	}
}

type float32Type struct{}

func (float32Type) Text() string        { return "float32 data\n" }
func (float32Type) MD5Sum() string      { return "73fcbf46b49191e672908e50842a83d4" }
func (float32Type) Name() string        { return "std_msgs/Float32" }
func (float32Type) NewMessage() Message { return &float32Msg{} }

type float32Msg struct {
	Data float32
}

func (m *float32Msg) Type() MessageType { return float32Type{} }

func (m *float32Msg) Serialize(buf *bytes.Buffer) error {
	return binary.Write(buf, binary.LittleEndian, m.Data)
}

func (m *float32Msg) Deserialize(buf *bytes.Reader) error {
	return binary.Read(buf, binary.LittleEndian, &m.Data)
}

// fakeMaster records the master API calls a node makes.
type fakeMaster struct {
	mu    sync.Mutex
	calls [][]string
}

func (m *fakeMaster) record(call ...string) (interface{}, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	return buildRosAPIResult(APIStatusSuccess, "", []interface{}{}), nil
}

func (m *fakeMaster) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.calls...)
}

func startFakeMaster(t *testing.T) (*fakeMaster, string) {
	m := &fakeMaster{}
	server := httptest.NewServer(xmlrpc.NewHandler(map[string]xmlrpc.Method{
		"registerPublisher": func(callerID, topic, msgType, uri string) (interface{}, error) {
			return m.record("registerPublisher", callerID, topic, msgType)
		},
		"unregisterPublisher": func(callerID, topic, uri string) (interface{}, error) {
			return m.record("unregisterPublisher", callerID, topic)
		},
		"setParam": func(callerID, key string, value interface{}) (interface{}, error) {
			return m.record("setParam", callerID, key, strconv.Quote(toString(value)))
		},
	}))
	t.Cleanup(server.Close)
	return m, server.URL
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int32:
		return strconv.Itoa(int(x))
	}
	return ""
}

func newTestNode(t *testing.T, name string, args ...string) (*defaultNode, *fakeMaster) {
	t.Setenv("ROS_HOSTNAME", "127.0.0.1")
	t.Setenv("ROS_NAMESPACE", "")
	master, uri := startFakeMaster(t)
	logger := NewLogger()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	node, err := NewNode(name, append(args, "__master:="+uri), WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	return node.(*defaultNode), master
}

func subscribe(t *testing.T, node *defaultNode, topic string, md5sum string) (net.Conn, map[string]string, error) {
	t.Helper()
	result, err := callRosAPI(node.xmlrpcURI, "requestTopic", "/listener", topic,
		[]interface{}{[]interface{}{"TCPROS"}})
	if err != nil {
		t.Fatal(err)
	}
	proto := result.([]interface{})
	if len(proto) != 3 || proto[0] != "TCPROS" {
		t.Fatalf("unexpected protocol params %v", proto)
	}
	host, port := proto[1].(string), proto[2].(int32)
	conn, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	err = writeConnectionHeader([]header{
		{"callerid", "/listener"},
		{"topic", topic},
		{"md5sum", md5sum},
		{"type", "std_msgs/Float32"},
	}, conn)
	if err != nil {
		t.Fatal(err)
	}
	headers, err := readConnectionHeader(conn)
	if err != nil {
		return conn, nil, err
	}
	return conn, headerMap(headers), nil
}

func readFrame(r io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	_, err := io.ReadFull(r, buf)
	return buf, err
}

func TestPublishOverTCPROS(t *testing.T) {
	node, master := newTestNode(t, "/touch_sensor_publisher")
	defer node.Shutdown()

	pub, err := node.NewPublisher("touch_sensor_val", float32Type{})
	if err != nil {
		t.Fatal(err)
	}
	again, err := node.NewPublisher("/touch_sensor_val", float32Type{})
	if err != nil || again != pub {
		t.Errorf("second NewPublisher = %v, %v; want the existing publisher", again, err)
	}

	conn, headers, err := subscribe(t, node, "/touch_sensor_val", "*")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"message_definition": "float32 data\n",
		"callerid":           "/touch_sensor_publisher",
		"latching":           "0",
		"md5sum":             "73fcbf46b49191e672908e50842a83d4",
		"topic":              "/touch_sensor_val",
		"type":               "std_msgs/Float32",
	}
	if diff := cmp.Diff(want, headers); diff != "" {
		t.Errorf("response header (-want +got):\n%s", diff)
	}
	if n := pub.GetNumSubscribers(); n != 1 {
		t.Errorf("GetNumSubscribers() = %d", n)
	}

	for _, v := range []float32{3.2, 0, 97.5} {
		pub.Publish(&float32Msg{Data: v})
		frame, err := readFrame(conn)
		if err != nil {
			t.Fatal(err)
		}
		if got := math.Float32frombits(binary.LittleEndian.Uint32(frame)); got != v {
			t.Errorf("received %v, want %v", got, v)
		}
	}

	node.Shutdown()
	if _, err := readFrame(conn); err == nil {
		t.Error("connection still open after shutdown")
	}

	wantCalls := [][]string{
		{"registerPublisher", "/touch_sensor_publisher", "/touch_sensor_val", "std_msgs/Float32"},
		{"unregisterPublisher", "/touch_sensor_publisher", "/touch_sensor_val"},
	}
	if diff := cmp.Diff(wantCalls, master.Calls()); diff != "" {
		t.Errorf("master calls (-want +got):\n%s", diff)
	}
	if node.OK() {
		t.Error("node still OK after shutdown")
	}
}

func TestPublisherRejectsWrongChecksum(t *testing.T) {
	node, _ := newTestNode(t, "pub")
	defer node.Shutdown()

	if _, err := node.NewPublisher("chatter", float32Type{}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := subscribe(t, node, "/chatter", "0123456789abcdef0123456789abcdef"); err == nil {
		t.Error("handshake succeeded with a mismatched md5sum")
	}
}

func TestRequestUnknownTopic(t *testing.T) {
	node, _ := newTestNode(t, "pub")
	defer node.Shutdown()

	_, err := callRosAPI(node.xmlrpcURI, "requestTopic", "/listener", "/nothing",
		[]interface{}{[]interface{}{"TCPROS"}})
	if err == nil {
		t.Error("requestTopic succeeded for an unpublished topic")
	}
}

func TestPublisherShutdownUnregisters(t *testing.T) {
	node, master := newTestNode(t, "/sim/tactile_sim")
	defer node.Shutdown()

	pub, err := node.NewPublisher("A", float32Type{})
	if err != nil {
		t.Fatal(err)
	}
	pub.Shutdown()
	pub.Shutdown()

	publications, err := callRosAPI(node.xmlrpcURI, "getPublications", "/listener")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(publications.([]interface{})); n != 0 {
		t.Errorf("%d publications left after shutdown", n)
	}
	wantCalls := [][]string{
		{"registerPublisher", "/sim/tactile_sim", "/sim/A", "std_msgs/Float32"},
		{"unregisterPublisher", "/sim/tactile_sim", "/sim/A"},
	}
	if diff := cmp.Diff(wantCalls, master.Calls()); diff != "" {
		t.Errorf("master calls (-want +got):\n%s", diff)
	}
}

func TestPrivateParamsAreSet(t *testing.T) {
	node, master := newTestNode(t, "tactile_sim", "_rate:=10", "_frame:=base", "topic:=/remapped", "extra")
	defer node.Shutdown()

	calls := master.Calls()
	got := map[string]string{}
	for _, c := range calls {
		if c[0] == "setParam" {
			got[c[2]] = c[3]
		}
	}
	want := map[string]string{
		"/tactile_sim/rate":  strconv.Quote("10"),
		"/tactile_sim/frame": strconv.Quote("base"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("setParam calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"extra"}, node.NonRosArgs()); diff != "" {
		t.Errorf("non-ROS args (-want +got):\n%s", diff)
	}
	if got := node.nameResolver.remap("topic"); got != "/remapped" {
		t.Errorf("remap(topic) = %q", got)
	}
}
