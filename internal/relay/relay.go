// Package relay implements the presence coordinator and the message,
// typing, and read-receipt relays. Every operation is a lookup against the
// presence registry followed by a best-effort, at-most-once forward; nothing
// here persists state or retries. Durable history is written by the caller
// through the REST API, independently of real-time relay.
package relay

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/venture-link/messaging/internal/messaging"
	"github.com/venture-link/messaging/internal/metrics"
	"github.com/venture-link/messaging/internal/presence"
	"github.com/venture-link/messaging/internal/protocol"
)

// EventPublisher receives presence transitions and relay outcomes for the
// outbound feed. The NATS client satisfies it; a nil publisher disables the
// feed.
type EventPublisher interface {
	PublishPresence(data []byte) error
	PublishMessageEvent(data []byte) error
}

// SessionMirror mirrors presence transitions into shared storage for other
// services to read. The Redis session store satisfies it; nil disables
// mirroring. Mirror failures are logged and never affect relay decisions.
type SessionMirror interface {
	MarkOnline(ctx context.Context, userID, connID string) error
	MarkOffline(ctx context.Context, userID, connID string) error
	Touch(ctx context.Context, userID string) error
}

// mirrorTimeout bounds how long a presence mirror write may block a frame
// worker.
const mirrorTimeout = 3 * time.Second

// Coordinator owns the presence registry and routes all client events. It is
// safe for concurrent use by the server's frame workers.
type Coordinator struct {
	registry   *presence.Registry
	mirror     SessionMirror
	feed       EventPublisher
	serverName string
}

// NewCoordinator creates a Coordinator around the given registry. The mirror
// and feed may be nil.
func NewCoordinator(registry *presence.Registry, mirror SessionMirror, feed EventPublisher, serverName string) *Coordinator {
	return &Coordinator{
		registry:   registry,
		mirror:     mirror,
		feed:       feed,
		serverName: serverName,
	}
}

// Registry exposes the presence registry for read-side consumers.
func (c *Coordinator) Registry() *presence.Registry {
	return c.registry
}

// AddUser registers the connection's owner and broadcasts the updated
// presence snapshot to every registered client, the new one included.
func (c *Coordinator) AddUser(h presence.Handle, m protocol.AddUserMsg) {
	c.registry.Register(m.UserID, h)
	metrics.OnlineUsers.Set(float64(c.registry.Count()))
	log.Printf("relay: user online userId=%s conn=%s (online=%d)", m.UserID, h.Key(), c.registry.Count())

	if c.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		if err := c.mirror.MarkOnline(ctx, m.UserID, h.Key()); err != nil {
			log.Printf("relay: presence mirror online userId=%s: %v", m.UserID, err)
		}
		cancel()
	}
	c.publishPresence(messaging.PresenceOnline, m.UserID)
	c.broadcastPresence()
}

// Disconnect removes the connection's mapping, if it still owns one, and
// broadcasts the shrunken presence set. A connection that never registered,
// or whose registration was superseded by a reconnect, produces no broadcast.
func (c *Coordinator) Disconnect(h presence.Handle) {
	userID := c.registry.Remove(h)
	if userID == "" {
		return
	}
	metrics.OnlineUsers.Set(float64(c.registry.Count()))
	log.Printf("relay: user offline userId=%s conn=%s (online=%d)", userID, h.Key(), c.registry.Count())

	if c.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		if err := c.mirror.MarkOffline(ctx, userID, h.Key()); err != nil {
			log.Printf("relay: presence mirror offline userId=%s: %v", userID, err)
		}
		cancel()
	}
	c.publishPresence(messaging.PresenceOffline, userID)
	c.broadcastPresence()
}

// Typing forwards a typing or stopTyping signal to the counterpart. An
// offline receiver means the signal is silently dropped — a typing hint has
// no value once the moment has passed, so there is no queue and no retry.
func (c *Coordinator) Typing(m protocol.TypingMsg) {
	receiver, ok := c.registry.Lookup(m.ReceiverID)
	if !ok {
		metrics.TypingSignals.WithLabelValues("dropped").Inc()
		return
	}

	data, err := protocol.NewServerMessage(m.Type, protocol.PartnerTypingMsg{
		ChatID:   m.ChatID,
		SenderID: m.SenderID,
	})
	if err != nil {
		log.Printf("relay: build %s event chat=%s: %v", m.Type, m.ChatID, err)
		return
	}
	if err := receiver.WriteMessage(data); err != nil {
		log.Printf("relay: forward %s to userId=%s: %v", m.Type, m.ReceiverID, err)
		metrics.TypingSignals.WithLabelValues("dropped").Inc()
		return
	}
	metrics.TypingSignals.WithLabelValues("forwarded").Inc()
}

// SendMessage constructs the transient envelope, forwards it to the receiver
// when online, and always acknowledges the sender on its own connection with
// the delivery outcome. The envelope is not retained afterward.
func (c *Coordinator) SendMessage(sender presence.Handle, m protocol.SendMessageMsg) {
	start := time.Now()

	env := protocol.MessageEnvelope{
		MessageID:  uuid.New().String(),
		ChatID:     m.ChatID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Text,
		CreatedAt:  start.UnixMilli(),
	}

	if receiver, ok := c.registry.Lookup(m.ReceiverID); ok {
		data, err := protocol.NewServerMessage(protocol.TypeReceiveMessage, env)
		if err != nil {
			log.Printf("relay: build receiveMessage chat=%s: %v", m.ChatID, err)
		} else if err := receiver.WriteMessage(data); err != nil {
			// The transport send is fire-and-forget; a failed write is
			// indistinguishable from an offline receiver for the sender.
			log.Printf("relay: deliver messageId=%s to userId=%s: %v", env.MessageID, m.ReceiverID, err)
		} else {
			env.Delivered = true
		}
	}

	ack, err := protocol.NewServerMessage(protocol.TypeMessageDelivered, env)
	if err != nil {
		log.Printf("relay: build messageDelivered chat=%s: %v", m.ChatID, err)
	} else if err := sender.WriteMessage(ack); err != nil {
		log.Printf("relay: ack messageId=%s to sender userId=%s: %v", env.MessageID, m.SenderID, err)
	}

	outcome := "undelivered"
	if env.Delivered {
		outcome = "delivered"
	}
	metrics.MessagesRelayed.WithLabelValues(outcome).Inc()
	metrics.RelayLatency.Observe(time.Since(start).Seconds())

	// Sending a message proves the sender's session is alive; refresh the
	// mirror TTL so long-lived idle-then-active connections do not expire.
	if c.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		if err := c.mirror.Touch(ctx, m.SenderID); err != nil {
			log.Printf("relay: presence mirror touch userId=%s: %v", m.SenderID, err)
		}
		cancel()
	}

	c.publishMessageEvent(messaging.MessageEvent{
		Type:       messaging.MessageRelayed,
		MessageID:  env.MessageID,
		ChatID:     env.ChatID,
		SenderID:   env.SenderID,
		ReceiverID: env.ReceiverID,
		Delivered:  env.Delivered,
		Ts:         env.CreatedAt,
	})
}

// MessageRead forwards a read acknowledgement to the original sender of the
// messages now viewed (the event's receiverId). At-most-once, no ack of the
// ack.
func (c *Coordinator) MessageRead(m protocol.MessageReadMsg) {
	receiver, ok := c.registry.Lookup(m.ReceiverID)
	if !ok {
		metrics.ReadReceipts.WithLabelValues("dropped").Inc()
		return
	}

	data, err := protocol.NewServerMessage(protocol.TypeMessageRead, protocol.MessageReadNotice{
		ChatID:   m.ChatID,
		SenderID: m.SenderID,
	})
	if err != nil {
		log.Printf("relay: build messageRead chat=%s: %v", m.ChatID, err)
		return
	}
	if err := receiver.WriteMessage(data); err != nil {
		log.Printf("relay: forward messageRead to userId=%s: %v", m.ReceiverID, err)
		metrics.ReadReceipts.WithLabelValues("dropped").Inc()
		return
	}
	metrics.ReadReceipts.WithLabelValues("forwarded").Inc()

	c.publishMessageEvent(messaging.MessageEvent{
		Type:       messaging.MessageRead,
		ChatID:     m.ChatID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Ts:         time.Now().UnixMilli(),
	})
}

// broadcastPresence pushes the current snapshot to every registered
// connection. Individual write failures are ignored; dead connections are
// evicted by the transport's own read/heartbeat paths.
func (c *Coordinator) broadcastPresence() {
	data, err := protocol.NewServerMessage(protocol.TypeOnlineUsers, protocol.OnlineUsersMsg{
		Users: c.registry.Snapshot(),
	})
	if err != nil {
		log.Printf("relay: build getOnlineUsers: %v", err)
		return
	}
	for _, h := range c.registry.Handles() {
		_ = h.WriteMessage(data)
	}
}

func (c *Coordinator) publishPresence(eventType, userID string) {
	if c.feed == nil {
		return
	}
	data, _ := json.Marshal(messaging.PresenceEvent{
		Type:   eventType,
		UserID: userID,
		Server: c.serverName,
		Ts:     time.Now().UnixMilli(),
	})
	if err := c.feed.PublishPresence(data); err != nil {
		log.Printf("relay: publish presence event userId=%s: %v", userID, err)
	}
}

func (c *Coordinator) publishMessageEvent(event messaging.MessageEvent) {
	if c.feed == nil {
		return
	}
	data, _ := json.Marshal(event)
	if err := c.feed.PublishMessageEvent(data); err != nil {
		log.Printf("relay: publish message event chat=%s: %v", event.ChatID, err)
	}
}
