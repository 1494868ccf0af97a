package ros

import (
	"bytes"
	"container/list"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// sessionQueueSize is how many messages a slow subscriber may lag
	// behind before the oldest are dropped.
	sessionQueueSize = 100
	writeTimeout     = time.Second
)

type remoteSubscriberSessionError struct {
	session *remoteSubscriberSession
	err     error
}

func (e *remoteSubscriberSessionError) Error() string {
	return fmt.Sprintf("remoteSubscriberSession %s error: %v", e.session.subscriber, e.err)
}

type defaultPublisher struct {
	node             *defaultNode
	topic            string
	msgType          MessageType
	msgChan          chan []byte
	shutdownChan     chan struct{}
	done             chan struct{}
	sessions         *list.List
	sessionChan      chan *remoteSubscriberSession
	sessionErrorChan chan error
	listenerErrChan  chan error
	listener         net.Listener
	numSubscribers   int32
	logger           *logrus.Entry
	stopOnce         sync.Once
	stopErr          error
}

func newDefaultPublisher(node *defaultNode, topic string, msgType MessageType) (*defaultPublisher, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort(node.listenIP, "0"))
	if err != nil {
		return nil, errors.Wrapf(err, "listen for %s subscribers", topic)
	}
	return &defaultPublisher{
		node:             node,
		topic:            topic,
		msgType:          msgType,
		msgChan:          make(chan []byte, 10),
		shutdownChan:     make(chan struct{}),
		done:             make(chan struct{}),
		sessions:         list.New(),
		sessionChan:      make(chan *remoteSubscriberSession, 10),
		sessionErrorChan: make(chan error, 10),
		listenerErrChan:  make(chan error, 1),
		listener:         listener,
		logger:           node.logger.WithField("topic", topic),
	}, nil
}

func (pub *defaultPublisher) start(wg *sync.WaitGroup) {
	logger := pub.logger
	logger.Debug("publisher goroutine started")
	defer func() {
		pub.node.removePublisher(pub)
		close(pub.done)
		logger.Debug("publisher goroutine exit")
		wg.Done()
	}()

	go pub.listenRemoteSubscriber()

	for {
		select {
		case msg := <-pub.msgChan:
			for e := pub.sessions.Front(); e != nil; e = e.Next() {
				e.Value.(*remoteSubscriberSession).enqueue(msg)
			}
		case err := <-pub.listenerErrChan:
			logger.Debugf("Listener closed unexpectedly: %s", err)
			pub.closeSessions()
			pub.stopErr = pub.unregister()
			return
		case s := <-pub.sessionChan:
			pub.sessions.PushBack(s)
			atomic.AddInt32(&pub.numSubscribers, 1)
			go s.start()
		case err := <-pub.sessionErrorChan:
			logger.Debug(err)
			if sessionError, ok := err.(*remoteSubscriberSessionError); ok {
				for e := pub.sessions.Front(); e != nil; e = e.Next() {
					if e.Value == sessionError.session {
						pub.sessions.Remove(e)
						atomic.AddInt32(&pub.numSubscribers, -1)
						break
					}
				}
			}
		case <-pub.shutdownChan:
			logger.Debug("publisher received shutdown")
			pub.listener.Close()
			pub.closeSessions()
			pub.stopErr = pub.unregister()
			return
		}
	}
}

func (pub *defaultPublisher) closeSessions() {
	for e := pub.sessions.Front(); e != nil; e = e.Next() {
		close(e.Value.(*remoteSubscriberSession).quitChan)
	}
	pub.sessions.Init()
	atomic.StoreInt32(&pub.numSubscribers, 0)
}

func (pub *defaultPublisher) unregister() error {
	_, err := callRosAPI(pub.node.masterURI, "unregisterPublisher",
		pub.node.qualifiedName, pub.topic, pub.node.xmlrpcURI)
	if err != nil {
		pub.logger.Warn(err)
		return errors.Wrapf(err, "unregister publisher %s", pub.topic)
	}
	return nil
}

func (pub *defaultPublisher) listenRemoteSubscriber() {
	for {
		conn, err := pub.listener.Accept()
		if err != nil {
			pub.listenerErrChan <- err
			return
		}
		pub.logger.Debugf("Connected %s", conn.RemoteAddr().String())
		session := newRemoteSubscriberSession(pub, conn)
		select {
		case pub.sessionChan <- session:
		case <-pub.done:
			conn.Close()
			return
		}
	}
}

func (pub *defaultPublisher) Publish(msg Message) {
	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		pub.logger.WithError(err).Error("failed to serialize message")
		return
	}
	select {
	case pub.msgChan <- buf.Bytes():
	case <-pub.done:
	}
}

func (pub *defaultPublisher) GetNumSubscribers() int {
	return int(atomic.LoadInt32(&pub.numSubscribers))
}

func (pub *defaultPublisher) Shutdown() {
	pub.stop()
}

// stop shuts the publisher down, waits for its goroutine and returns the
// unregistration error, if any.
func (pub *defaultPublisher) stop() error {
	pub.stopOnce.Do(func() {
		close(pub.shutdownChan)
	})
	<-pub.done
	return pub.stopErr
}

func (pub *defaultPublisher) hostAndPort() (string, int, error) {
	port, err := portNumber(pub.listener.Addr())
	if err != nil {
		return "", 0, err
	}
	return pub.node.hostname, port, nil
}

type remoteSubscriberSession struct {
	conn       net.Conn
	pub        *defaultPublisher
	subscriber string
	quitChan   chan struct{}
	msgChan    chan []byte
	logger     *logrus.Entry
}

func newRemoteSubscriberSession(pub *defaultPublisher, conn net.Conn) *remoteSubscriberSession {
	return &remoteSubscriberSession{
		conn:       conn,
		pub:        pub,
		subscriber: conn.RemoteAddr().String(),
		quitChan:   make(chan struct{}),
		msgChan:    make(chan []byte, sessionQueueSize),
		logger:     pub.logger.WithField("remote", conn.RemoteAddr().String()),
	}
}

// enqueue hands a message to the session, dropping the oldest queued one
// when the subscriber is not keeping up.
func (session *remoteSubscriberSession) enqueue(msg []byte) {
	for {
		select {
		case session.msgChan <- msg:
			return
		default:
		}
		select {
		case <-session.msgChan:
		default:
		}
	}
}

func (session *remoteSubscriberSession) start() {
	err := session.serve()
	session.conn.Close()
	select {
	case session.pub.sessionErrorChan <- &remoteSubscriberSessionError{session, err}:
	case <-session.pub.done:
	}
}

func (session *remoteSubscriberSession) serve() error {
	logger := session.logger
	pub := session.pub

	// 1. Read connection header
	session.conn.SetReadDeadline(time.Now().Add(writeTimeout))
	headers, err := readConnectionHeader(session.conn)
	if err != nil {
		return errors.Wrap(err, "failed to read connection header")
	}
	session.conn.SetReadDeadline(time.Time{})
	hm := headerMap(headers)
	for _, h := range headers {
		logger.Debugf("  `%s` = `%s`", h.key, h.value)
	}
	if callerID, ok := hm["callerid"]; ok {
		session.subscriber = callerID
	}
	if hm["type"] != pub.msgType.Name() && hm["type"] != "*" {
		return errors.Errorf("incompatible message type for topic %s: %s vs %s",
			pub.topic, pub.msgType.Name(), hm["type"])
	}
	if hm["md5sum"] != pub.msgType.MD5Sum() && hm["md5sum"] != "*" {
		return errors.Errorf("incompatible message md5 for topic %s: %s vs %s",
			pub.topic, pub.msgType.MD5Sum(), hm["md5sum"])
	}

	// 2. Return response header
	resHeaders := []header{
		{"message_definition", pub.msgType.Text()},
		{"callerid", pub.node.qualifiedName},
		{"latching", "0"},
		{"md5sum", pub.msgType.MD5Sum()},
		{"topic", pub.topic},
		{"type", pub.msgType.Name()},
	}
	session.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := writeConnectionHeader(resHeaders, session.conn); err != nil {
		return errors.Wrap(err, "failed to write response header")
	}

	// 3. Start sending messages
	logger.Debugf("subscriber %s connected", session.subscriber)
	for {
		select {
		case <-session.quitChan:
			return nil
		case msg := <-session.msgChan:
			var frame bytes.Buffer
			binary.Write(&frame, binary.LittleEndian, uint32(len(msg)))
			frame.Write(msg)
			session.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := frame.WriteTo(session.conn); err != nil {
				return errors.Wrap(err, "write message")
			}
		}
	}
}
