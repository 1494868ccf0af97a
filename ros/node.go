package ros

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/cKohl10/TactileSim/xmlrpc"
)

const defaultMasterURI = "http://localhost:11311"

// defaultNode implements Node.
type defaultNode struct {
	name           string
	namespace      string
	qualifiedName  string
	masterURI      string
	xmlrpcURI      string
	xmlrpcListener net.Listener
	xmlrpcHandler  *xmlrpc.Handler
	publishers     map[string]*defaultPublisher
	pubMutex       sync.Mutex
	interruptChan  chan os.Signal
	logger         *logrus.Entry
	ok             bool
	okMutex        sync.RWMutex
	waitGroup      sync.WaitGroup
	hostname       string
	listenIP       string
	nameResolver   *NameResolver
	nonRosArgs     []string
	shutdownOnce   sync.Once
}

func newDefaultNode(name string, args []string, logger *logrus.Logger) (*defaultNode, error) {
	node := new(defaultNode)

	namespace, nodeName, err := qualifyNodeName(name)
	if err != nil {
		return nil, err
	}
	remapping, params, specials, rest := processArguments(args)

	node.name = nodeName
	if value, ok := specials["__name"]; ok {
		node.name = value
	}
	node.namespace = namespace
	if ns := os.Getenv("ROS_NAMESPACE"); len(ns) > 0 {
		node.namespace = ns
	}
	if value, ok := specials["__ns"]; ok {
		node.namespace = value
	}
	node.namespace = canonicalizeName(GlobalNS + node.namespace)
	if ns := node.namespace; ns != GlobalNS && !isValidNamespace(ns+Sep) {
		return nil, errors.Errorf("invalid namespace %q", ns)
	}

	var onlyLocalhost bool
	node.hostname, onlyLocalhost = determineHost()
	if value, ok := specials["__hostname"]; ok {
		node.hostname = value
		onlyLocalhost = value == "localhost"
	} else if value, ok := specials["__ip"]; ok {
		node.hostname = value
		onlyLocalhost = isLoopback(value)
	}
	node.listenIP = "0.0.0.0"
	if onlyLocalhost {
		node.listenIP = "127.0.0.1"
	}

	node.masterURI = os.Getenv("ROS_MASTER_URI")
	if value, ok := specials["__master"]; ok {
		node.masterURI = value
	}
	if node.masterURI == "" {
		node.masterURI = defaultMasterURI
	}

	node.nameResolver = newNameResolver(node.namespace, node.name, remapping)
	node.nonRosArgs = rest
	node.qualifiedName = canonicalizeName(node.namespace + Sep + node.name)
	node.publishers = make(map[string]*defaultPublisher)
	node.ok = true
	node.logger = logger.WithFields(logrus.Fields{"module": "ros", "node": node.qualifiedName})
	node.logger.Debugf("Master URI = %s", node.masterURI)

	for k, v := range params {
		value, err := loadParamFromString(v)
		if err != nil {
			value = v
		}
		key := node.nameResolver.resolve(PrivateNS + k)
		if _, err := callRosAPI(node.masterURI, "setParam", node.qualifiedName, key, value); err != nil {
			return nil, errors.Wrapf(err, "set parameter %s", key)
		}
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(node.listenIP, "0"))
	if err != nil {
		return nil, errors.Wrap(err, "listen for slave API")
	}
	_, port, err := net.SplitHostPort(listener.Addr().String())
	if err != nil {
		listener.Close()
		return nil, err
	}
	node.xmlrpcURI = fmt.Sprintf("http://%s/", net.JoinHostPort(node.hostname, port))
	node.xmlrpcListener = listener
	node.logger.Debugf("listen on http://%s", listener.Addr().String())

	node.xmlrpcHandler = xmlrpc.NewHandler(map[string]xmlrpc.Method{
		"getBusStats":      func(callerID string) (interface{}, error) { return node.getBusStats(callerID) },
		"getBusInfo":       func(callerID string) (interface{}, error) { return node.getBusInfo(callerID) },
		"getMasterUri":     func(callerID string) (interface{}, error) { return node.getMasterURI(callerID) },
		"shutdown":         func(callerID string, msg string) (interface{}, error) { return node.shutdown(callerID, msg) },
		"getPid":           func(callerID string) (interface{}, error) { return node.getPid(callerID) },
		"getSubscriptions": func(callerID string) (interface{}, error) { return node.getSubscriptions(callerID) },
		"getPublications":  func(callerID string) (interface{}, error) { return node.getPublications(callerID) },
		"paramUpdate": func(callerID string, key string, value interface{}) (interface{}, error) {
			return node.paramUpdate(callerID, key, value)
		},
		"publisherUpdate": func(callerID string, topic string, publishers []interface{}) (interface{}, error) {
			return node.publisherUpdate(callerID, topic, publishers)
		},
		"requestTopic": func(callerID string, topic string, protocols []interface{}) (interface{}, error) {
			return node.requestTopic(callerID, topic, protocols)
		},
	})
	go http.Serve(node.xmlrpcListener, node.xmlrpcHandler)

	node.interruptChan = make(chan os.Signal, 1)
	signal.Notify(node.interruptChan, os.Interrupt)
	go func() {
		if _, ok := <-node.interruptChan; ok {
			node.logger.Info("Interrupted")
			node.setOK(false)
		}
	}()

	node.logger.Debugf("Started %s", node.qualifiedName)
	return node, nil
}

func (node *defaultNode) OK() bool {
	node.okMutex.RLock()
	defer node.okMutex.RUnlock()
	return node.ok
}

func (node *defaultNode) setOK(ok bool) {
	node.okMutex.Lock()
	node.ok = ok
	node.okMutex.Unlock()
}

func (node *defaultNode) Name() string {
	return node.qualifiedName
}

func (node *defaultNode) Logger() *logrus.Entry {
	return node.logger
}

func (node *defaultNode) NonRosArgs() []string {
	return node.nonRosArgs
}

func (node *defaultNode) getBusStats(callerID string) (interface{}, error) {
	return buildRosAPIResult(APIStatusError, "Not implemented", 0), nil
}

func (node *defaultNode) getBusInfo(callerID string) (interface{}, error) {
	return buildRosAPIResult(APIStatusError, "Not implemented", 0), nil
}

func (node *defaultNode) getMasterURI(callerID string) (interface{}, error) {
	return buildRosAPIResult(APIStatusSuccess, "Success", node.masterURI), nil
}

func (node *defaultNode) shutdown(callerID string, msg string) (interface{}, error) {
	node.logger.Infof("shutdown requested by %s: %s", callerID, msg)
	node.setOK(false)
	return buildRosAPIResult(APIStatusSuccess, "Success", 0), nil
}

func (node *defaultNode) getPid(callerID string) (interface{}, error) {
	return buildRosAPIResult(APIStatusSuccess, "Success", os.Getpid()), nil
}

func (node *defaultNode) getSubscriptions(callerID string) (interface{}, error) {
	return buildRosAPIResult(APIStatusSuccess, "Success", []interface{}{}), nil
}

func (node *defaultNode) getPublications(callerID string) (interface{}, error) {
	node.pubMutex.Lock()
	defer node.pubMutex.Unlock()
	result := []interface{}{}
	for topic, pub := range node.publishers {
		result = append(result, []interface{}{topic, pub.msgType.Name()})
	}
	return buildRosAPIResult(APIStatusSuccess, "Success", result), nil
}

func (node *defaultNode) paramUpdate(callerID string, key string, value interface{}) (interface{}, error) {
	return buildRosAPIResult(APIStatusError, "Not implemented", 0), nil
}

func (node *defaultNode) publisherUpdate(callerID string, topic string, publishers []interface{}) (interface{}, error) {
	node.logger.Debug("publisherUpdate() called on a node without subscribers")
	return buildRosAPIResult(APIStatusFailure, "No such topic", 0), nil
}

func (node *defaultNode) requestTopic(callerID string, topic string, protocols []interface{}) (interface{}, error) {
	node.logger.Debugf("Slave API requestTopic(%s, %s, ...) called.", callerID, topic)
	node.pubMutex.Lock()
	pub, ok := node.publishers[topic]
	node.pubMutex.Unlock()
	if !ok {
		return buildRosAPIResult(APIStatusFailure, "No such topic", 0), nil
	}

	for _, v := range protocols {
		params, ok := v.([]interface{})
		if !ok || len(params) == 0 {
			continue
		}
		if name, _ := params[0].(string); name != "TCPROS" {
			continue
		}
		host, port, err := pub.hostAndPort()
		if err != nil {
			return nil, err
		}
		return buildRosAPIResult(APIStatusSuccess, "Success", []interface{}{"TCPROS", host, port}), nil
	}
	return buildRosAPIResult(APIStatusFailure, "No supported protocol", []interface{}{}), nil
}

func (node *defaultNode) NewPublisher(topic string, msgType MessageType) (Publisher, error) {
	name := node.nameResolver.remap(topic)
	node.pubMutex.Lock()
	defer node.pubMutex.Unlock()
	if pub, ok := node.publishers[name]; ok {
		return pub, nil
	}

	pub, err := newDefaultPublisher(node, name, msgType)
	if err != nil {
		return nil, err
	}
	if _, err := callRosAPI(node.masterURI, "registerPublisher",
		node.qualifiedName, name, msgType.Name(), node.xmlrpcURI); err != nil {
		pub.listener.Close()
		return nil, errors.Wrapf(err, "register publisher %s", name)
	}
	node.publishers[name] = pub
	node.waitGroup.Add(1)
	go pub.start(&node.waitGroup)
	return pub, nil
}

// removePublisher forgets a publisher that shut itself down.
func (node *defaultNode) removePublisher(pub *defaultPublisher) {
	node.pubMutex.Lock()
	if node.publishers[pub.topic] == pub {
		delete(node.publishers, pub.topic)
	}
	node.pubMutex.Unlock()
}

func (node *defaultNode) Spin() {
	for node.OK() {
		time.Sleep(100 * time.Millisecond)
	}
}

func (node *defaultNode) Shutdown() {
	node.shutdownOnce.Do(func() {
		node.logger.Debug("Shutting node down")
		node.setOK(false)
		signal.Stop(node.interruptChan)
		close(node.interruptChan)

		node.pubMutex.Lock()
		pubs := make([]*defaultPublisher, 0, len(node.publishers))
		for _, p := range node.publishers {
			pubs = append(pubs, p)
		}
		node.pubMutex.Unlock()
		var errs error
		for _, p := range pubs {
			errs = multierr.Append(errs, p.stop())
		}
		node.waitGroup.Wait()

		errs = multierr.Append(errs, node.xmlrpcListener.Close())
		if errs != nil {
			node.logger.WithError(errs).Warn("unclean shutdown")
		}
		node.xmlrpcHandler.WaitForShutdown()
		node.logger.Debug("Shutting node down completed")
	})
}

// loadParamFromString decodes a parameter given on the command line as
// JSON, so _rate:=10 sets a number rather than a string.
func loadParamFromString(s string) (interface{}, error) {
	decoder := json.NewDecoder(strings.NewReader(s))
	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}

func portNumber(addr net.Addr) (int, error) {
	_, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
