package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Message is the wire envelope pushed to subscribed clients. Topic-addressed
// messages fan out to every subscriber of that topic; To-addressed messages go
// to all connections of one user.
type Message struct {
	Type      string `json:"type"`
	Topic     string `json:"topic,omitempty"`
	To        string `json:"to,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Hub tracks connections, per-user connection sets and per-topic
// subscriptions, and fans out messages through a small worker pool.
type Hub struct {
	connections map[string]*Connection
	userConns   map[string]map[string]bool
	topicConns  map[string]map[string]bool

	broadcast  chan *Message
	register   chan *Connection
	unregister chan *Connection

	jobs chan fanoutJob

	config *Config
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

type fanoutJob struct {
	conn *Connection
	data []byte
}

type Config struct {
	MaxConnections    int64
	HeartbeatInterval time.Duration
	ConnectionTimeout time.Duration
	MessageBufferSize int
	ReadBufferSize    int
	WriteBufferSize   int
	MaxMessageSize    int64
	MessageQueueSize  int
	FanoutWorkerCount int
	DropOnFull        bool
}

func DefaultConfig() *Config {
	return &Config{
		MaxConnections:    10000,
		HeartbeatInterval: 30 * time.Second,
		ConnectionTimeout: 60 * time.Second,
		MessageBufferSize: 256,
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		MaxMessageSize:    4096,
		MessageQueueSize:  1000,
		FanoutWorkerCount: 8,
		DropOnFull:        true,
	}
}

func NewHub(config *Config) *Hub {
	if config == nil {
		config = DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())

	hub := &Hub{
		connections: make(map[string]*Connection),
		userConns:   make(map[string]map[string]bool),
		topicConns:  make(map[string]map[string]bool),
		broadcast:   make(chan *Message, config.MessageQueueSize),
		register:    make(chan *Connection, 256),
		unregister:  make(chan *Connection, 256),
		jobs:        make(chan fanoutJob, config.MessageQueueSize),
		config:      config,
		ctx:         ctx,
		cancel:      cancel,
	}

	workers := config.FanoutWorkerCount
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		go hub.fanoutWorker()
	}

	go hub.run()
	return hub
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case conn := <-h.register:
			h.registerConnection(conn)
		case conn := <-h.unregister:
			h.unregisterConnection(conn)
		case message := <-h.broadcast:
			h.dispatch(message)
		}
	}
}

// dispatch serializes once and enqueues a job per target connection.
func (h *Hub) dispatch(message *Message) {
	if message.Timestamp == 0 {
		message.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("websocket: marshal failed: %v", err)
		return
	}

	h.mu.RLock()
	var targets map[string]bool
	switch {
	case message.To != "":
		targets = h.userConns[message.To]
	case message.Topic != "":
		targets = h.topicConns[message.Topic]
	default:
		targets = make(map[string]bool, len(h.connections))
		for id := range h.connections {
			targets[id] = true
		}
	}
	conns := make([]*Connection, 0, len(targets))
	for id := range targets {
		if c, ok := h.connections[id]; ok {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range conns {
		select {
		case h.jobs <- fanoutJob{conn: c, data: data}:
		default:
			logrus.Warn("websocket: fanout queue full, dropping message")
		}
	}
}

func (h *Hub) fanoutWorker() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case job := <-h.jobs:
			job.conn.enqueue(job.data, h.config.DropOnFull)
		}
	}
}

func (h *Hub) registerConnection(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if int64(len(h.connections)) >= h.config.MaxConnections {
		logrus.Warnf("websocket: connection limit reached, rejecting %s", conn.ID)
		conn.close()
		return
	}
	h.connections[conn.ID] = conn
	if h.userConns[conn.UserID] == nil {
		h.userConns[conn.UserID] = make(map[string]bool)
	}
	h.userConns[conn.UserID][conn.ID] = true
}

func (h *Hub) unregisterConnection(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if set := h.userConns[conn.UserID]; set != nil {
		delete(set, conn.ID)
		if len(set) == 0 {
			delete(h.userConns, conn.UserID)
		}
	}
	for topic, set := range h.topicConns {
		delete(set, conn.ID)
		if len(set) == 0 {
			delete(h.topicConns, topic)
		}
	}
	conn.close()
}

// Subscribe adds a connection to a topic feed.
func (h *Hub) Subscribe(conn *Connection, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.topicConns[topic] == nil {
		h.topicConns[topic] = make(map[string]bool)
	}
	h.topicConns[topic][conn.ID] = true
}

func (h *Hub) Unsubscribe(conn *Connection, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.topicConns[topic]; set != nil {
		delete(set, conn.ID)
		if len(set) == 0 {
			delete(h.topicConns, topic)
		}
	}
}

// Publish queues a message for delivery. Non-blocking; drops when the hub
// queue is saturated.
func (h *Hub) Publish(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		logrus.Warn("websocket: broadcast queue full, dropping message")
	}
}

// SendToUser delivers to every connection of one user.
func (h *Hub) SendToUser(userID string, msgType string, data any) {
	h.Publish(&Message{Type: msgType, To: userID, Data: data})
}

// BroadcastTopic delivers to every subscriber of a topic.
func (h *Hub) BroadcastTopic(topic string, msgType string, data any) {
	h.Publish(&Message{Type: msgType, Topic: topic, Data: data})
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) UserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID])
}

func (h *Hub) TopicSubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topicConns[topic])
}

// Shutdown stops the hub loop and closes every connection.
func (h *Hub) Shutdown() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.connections {
		c.close()
	}
	h.connections = make(map[string]*Connection)
	h.userConns = make(map[string]map[string]bool)
	h.topicConns = make(map[string]map[string]bool)
}
