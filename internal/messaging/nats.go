// Package messaging provides a NATS client wrapper for the outbound event
// feed. The socket server publishes presence changes and message-relay
// outcomes; sibling services (the notifier worker, scoring pipeline) consume
// them. The feed is observational only — real-time delivery never routes
// through NATS.
package messaging

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects published by the socket server.
const (
	SubjectPresence = "venturelink.presence" // online/offline transitions
	SubjectMessages = "venturelink.messages" // relay outcomes and read receipts
)

// Presence event types carried on SubjectPresence.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

// Message event types carried on SubjectMessages.
const (
	MessageRelayed = "relayed"
	MessageRead    = "read"
)

// PresenceEvent records one user going online or offline on a server
// instance.
type PresenceEvent struct {
	Type   string `json:"type"` // online | offline
	UserID string `json:"userId"`
	Server string `json:"server"`
	Ts     int64  `json:"ts"`
}

// MessageEvent records the outcome of one relay operation or a read receipt.
type MessageEvent struct {
	Type       string `json:"type"` // relayed | read
	MessageID  string `json:"messageId,omitempty"`
	ChatID     string `json:"chatId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Delivered  bool   `json:"delivered"`
	Ts         int64  `json:"ts"`
}

// NATSClient wraps the NATS connection with helper methods for the event
// feed.
type NATSClient struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "venturelink",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NewNATSClient connects to NATS with the given config and returns a ready
// client. It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &NATSClient{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// Publish sends data to the given NATS subject.
func (c *NATSClient) Publish(subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

// PublishPresence publishes a presence transition to the feed.
func (c *NATSClient) PublishPresence(data []byte) error {
	return c.Publish(SubjectPresence, data)
}

// PublishMessageEvent publishes a relay outcome or read receipt to the feed.
func (c *NATSClient) PublishMessageEvent(data []byte) error {
	return c.Publish(SubjectMessages, data)
}

// SubscribePresence registers a handler for presence transitions.
func (c *NATSClient) SubscribePresence(handler func(data []byte)) error {
	return c.subscribe(SubjectPresence, handler)
}

// SubscribeMessageEvents registers a handler for relay outcomes and read
// receipts.
func (c *NATSClient) SubscribeMessageEvents(handler func(data []byte)) error {
	return c.subscribe(SubjectMessages, handler)
}

// subscribe registers a handler for the given subject and stores the
// subscription for cleanup on Close.
func (c *NATSClient) subscribe(subject string, handler func(data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()
	return nil
}

// Close drains all active subscriptions and closes the NATS connection.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", subject, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}

	log.Printf("[nats] client closed")
}
