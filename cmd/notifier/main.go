package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/venture-link/messaging/internal/messaging"
	"github.com/venture-link/messaging/internal/notify"
)

const opTimeout = 3 * time.Second

func main() {
	log.Println("Starting Venture Link notifier service...")

	// Redis setup.
	redisAddr := "localhost:6379"
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		redisAddr = v
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(ctx).Err(); err != nil {
		cancel()
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	cancel()

	store := notify.NewStore(rdb)

	// NATS setup.
	natsConfig := messaging.DefaultNATSConfig()
	if v := os.Getenv("NATS_URL"); v != "" {
		natsConfig.URL = v
	}
	natsConfig.Name = "venturelink-notifier"

	natsClient, err := messaging.NewNATSClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	// Unread counters track messages that never reached an online receiver,
	// and read receipts clear them.
	err = natsClient.SubscribeMessageEvents(func(data []byte) {
		var ev messaging.MessageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("[notifier] failed to unmarshal message event: %v", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		switch ev.Type {
		case messaging.MessageRelayed:
			if ev.Delivered {
				return
			}
			if err := store.IncrUnread(ctx, ev.ReceiverID, ev.ChatID); err != nil {
				log.Printf("[notifier] failed to bump unread userId=%s chat=%s: %v",
					ev.ReceiverID, ev.ChatID, err)
				return
			}
			log.Printf("[notifier] unread+1 userId=%s chat=%s", ev.ReceiverID, ev.ChatID)
		case messaging.MessageRead:
			// The reader is the sender of the messageRead event.
			if err := store.ClearUnread(ctx, ev.SenderID, ev.ChatID); err != nil {
				log.Printf("[notifier] failed to clear unread userId=%s chat=%s: %v",
					ev.SenderID, ev.ChatID, err)
			}
		}
	})
	if err != nil {
		log.Fatalf("failed to subscribe to message events: %v", err)
	}

	// Offline transitions stamp a last-seen time for the chat list UI.
	err = natsClient.SubscribePresence(func(data []byte) {
		var ev messaging.PresenceEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("[notifier] failed to unmarshal presence event: %v", err)
			return
		}
		if ev.Type != messaging.PresenceOffline {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		if err := store.SetLastSeen(ctx, ev.UserID, time.UnixMilli(ev.Ts)); err != nil {
			log.Printf("[notifier] failed to set last seen userId=%s: %v", ev.UserID, err)
		}
	})
	if err != nil {
		log.Fatalf("failed to subscribe to presence events: %v", err)
	}

	log.Printf("Venture Link notifier service running")
	log.Printf("  redis_addr: %s", redisAddr)
	log.Printf("  nats_url:   %s", natsConfig.URL)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	natsClient.Close()
	rdb.Close()
}
