// Package mqtt carries L1 packets over an MQTT broker.
//
// A controller named type/id publishes its metadata retained on
// type/id/meta, receives commands on type/id/cmd and publishes replies
// and events on type/id/msg. All topics are under the prefix taken from
// the path of the broker URL.
package mqtt

import (
	"container/list"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// Handler is the callback when a message is received.
type Handler func(topic string, payload []byte)

// ConnectHandler is to handle connect/disconnect events.
type ConnectHandler func(*Queue)

// Queue wraps MQTT client and dispatches received messages to
// subscriptions by topic.
type Queue struct {
	Client       paho.Client
	TopicPrefix  string
	OnConnect    ConnectHandler
	OnDisconnect ConnectHandler

	subsLock sync.RWMutex
	// exact topics and wildcard patterns, each to a list of *Subscription.
	subs     map[string]*list.List
	patterns map[string]*list.List
}

// Subscription is a subscribed topic.
type Subscription struct {
	Token paho.Token

	queue   *Queue
	elm     *list.Element
	topic   string
	handler Handler
}

// IsWildcard determines if the topic filter contains wildcards.
func IsWildcard(topic string) bool {
	return strings.Contains(topic, "+") || strings.HasSuffix(topic, "#")
}

// MatchTopic matches topic with pattern.
func MatchTopic(topic, pattern string) bool {
	levels, filters := strings.Split(topic, "/"), strings.Split(pattern, "/")
	for i, filter := range filters {
		if filter == "#" && i+1 == len(filters) {
			return true
		}
		if i >= len(levels) {
			return false
		}
		if filter != "+" && filter != levels[i] {
			return false
		}
	}
	return len(levels) == len(filters)
}

// ClientOptionsFromURL creates ClientOptions from URL, returning the topic
// prefix from the path. Supported query parameters:
//
//	client-id   the MQTT client ID
//	keepalive   keep alive interval in seconds
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	var scheme string
	switch u.Scheme {
	case "", "mqtt":
		scheme = "tcp"
	case "mqtts":
		scheme = "ssl"
	default:
		scheme = u.Scheme
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	query := u.Query()
	if clientID := query.Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	if val := query.Get("keepalive"); val != "" {
		secs, err := strconv.Atoi(val)
		if err != nil {
			return nil, "", err
		}
		opts.SetKeepAlive(time.Duration(secs) * time.Second)
	}

	return opts, strings.TrimPrefix(u.Path, "/"), nil
}

// NewQueue creates Queue.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{
		TopicPrefix: topicPrefix,
		subs:        make(map[string]*list.List),
		patterns:    make(map[string]*list.List),
	}
	options.SetOnConnectHandler(q.OnConnectHandler)
	options.SetConnectionLostHandler(q.ConnectionLostHandler)
	q.Client = paho.NewClient(options)
	return q
}

// NewQueueFromURL creates Queue from URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, topicPrefix), nil
}

// Connect connects the client.
func (q *Queue) Connect() paho.Token {
	return q.Client.Connect()
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Client.Disconnect(250)
	return nil
}

// Sub subscribes a topic. The broker subscription is shared by all
// handlers of the same topic.
func (q *Queue) Sub(topic string, handler Handler) *Subscription {
	sub := &Subscription{queue: q, topic: topic, handler: handler}
	q.subsLock.Lock()
	subs := q.subsOf(topic)
	lst := subs[topic]
	first := lst == nil
	if first {
		lst = list.New()
		subs[topic] = lst
	}
	sub.elm = lst.PushBack(sub)
	q.subsLock.Unlock()

	if first {
		glog.V(2).Infof("SUB %q", q.TopicPrefix+topic)
		sub.Token = q.Client.Subscribe(q.TopicPrefix+topic, 0, q.dispatch)
	} else {
		sub.Token = &paho.DummyToken{}
	}
	return sub
}

// Pub publishes to a topic.
func (q *Queue) Pub(topic string, payload []byte) paho.Token {
	return q.PubWith(topic, payload, 0, false)
}

// PubWith publishes with QoS and retain settings.
func (q *Queue) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	return q.Client.Publish(q.TopicPrefix+topic, qos, retain, payload)
}

// Resubscribe subscribes all existing topics after a reconnection.
func (q *Queue) Resubscribe() paho.Token {
	filters := make(map[string]byte)
	q.subsLock.RLock()
	for _, subs := range []map[string]*list.List{q.subs, q.patterns} {
		for topic := range subs {
			filters[q.TopicPrefix+topic] = 0
		}
	}
	q.subsLock.RUnlock()
	if len(filters) == 0 {
		return &paho.DummyToken{}
	}
	if glog.V(2) {
		for key := range filters {
			glog.Infof("SUB %q", key)
		}
	}
	return q.Client.SubscribeMultiple(filters, q.dispatch)
}

// OnConnectHandler is the default implementation of paho.OnConnectHandler.
func (q *Queue) OnConnectHandler(paho.Client) {
	glog.Info("connected")
	q.Resubscribe()
	if h := q.OnConnect; h != nil {
		h(q)
	}
}

// ConnectionLostHandler is the default implementation of paho.ConnectionLostHandler.
func (q *Queue) ConnectionLostHandler(c paho.Client, err error) {
	glog.Warningf("connection lost: %v", err)
	if h := q.OnDisconnect; h != nil {
		h(q)
	}
}

func (q *Queue) subsOf(topic string) map[string]*list.List {
	if IsWildcard(topic) {
		return q.patterns
	}
	return q.subs
}

// handlers collects the handlers interested in topic (without prefix).
func (q *Queue) handlers(topic string) []Handler {
	var handlers []Handler
	appendAll := func(lst *list.List) {
		for elm := lst.Front(); elm != nil; elm = elm.Next() {
			handlers = append(handlers, elm.Value.(*Subscription).handler)
		}
	}
	q.subsLock.RLock()
	defer q.subsLock.RUnlock()
	if lst := q.subs[topic]; lst != nil {
		appendAll(lst)
	}
	for pattern, lst := range q.patterns {
		if MatchTopic(topic, pattern) {
			appendAll(lst)
		}
	}
	return handlers
}

func (q *Queue) dispatch(c paho.Client, msg paho.Message) {
	topic := msg.Topic()
	if !strings.HasPrefix(topic, q.TopicPrefix) {
		return
	}
	glog.V(2).Infof("RCV %q", topic)
	topic = topic[len(q.TopicPrefix):]
	payload := msg.Payload()
	for _, h := range q.handlers(topic) {
		h(topic, payload)
	}
}

// Close unsubscribes the handler. The broker subscription is removed
// with the last handler of the topic.
func (s *Subscription) Close() error {
	q := s.queue
	q.subsLock.Lock()
	subs := q.subsOf(s.topic)
	lst := subs[s.topic]
	var last bool
	if lst != nil {
		lst.Remove(s.elm)
		if last = lst.Len() == 0; last {
			delete(subs, s.topic)
		}
	}
	q.subsLock.Unlock()
	if !last {
		return nil
	}
	glog.V(2).Infof("UNSUB %q", s.topic)
	token := q.Client.Unsubscribe(q.TopicPrefix + s.topic)
	token.Wait()
	return token.Error()
}
