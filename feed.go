package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/eurotz/tzgate/pkg/log"
)

const (
	feedWriteTimeout = 5 * time.Second
	feedSinkSize     = 16
)

// FeedEvent is the message pushed to feed subscribers.
type FeedEvent struct {
	Type string          `json:"type"`
	Data SignatureRecord `json:"data"`
}

type feedSubscriber struct {
	id     string
	signer string
	sink   chan []byte
}

// SignatureFeed pushes every stored signature to websocket subscribers. A
// subscriber may pass ?signer=<address> to only receive that signer's records.
type SignatureFeed struct {
	upgrader websocket.Upgrader
	metrics  *Metrics
	logger   log.Logger

	mu          sync.RWMutex
	subscribers map[string]*feedSubscriber
	closed      chan struct{}
	closeOnce   sync.Once
}

func NewSignatureFeed(metrics *Metrics, logger log.Logger) *SignatureFeed {
	return &SignatureFeed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		metrics:     metrics,
		logger:      logger.WithName("feed"),
		subscribers: make(map[string]*feedSubscriber),
		closed:      make(chan struct{}),
	}
}

// Publish queues record for every matching subscriber. Subscribers whose queue
// is full miss the record.
func (f *SignatureFeed) Publish(record SignatureRecord) {
	msg, err := json.Marshal(FeedEvent{Type: "signature", Data: record})
	if err != nil {
		f.logger.Error("failed to encode feed event", "error", err)
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sub := range f.subscribers {
		if sub.signer != "" && sub.signer != record.Signer {
			continue
		}
		select {
		case sub.sink <- msg:
		default:
			f.logger.Warn("feed subscriber is too slow, dropping event", "subscriberID", sub.id)
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (f *SignatureFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

// Close disconnects every subscriber.
func (f *SignatureFeed) Close() {
	f.closeOnce.Do(func() { close(f.closed) })
}

// HandleConnection upgrades r to a websocket and streams events until either
// side closes.
func (f *SignatureFeed) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Error("failed to upgrade to websocket", "error", err)
		return
	}

	sub := &feedSubscriber{
		id:     uuid.NewString(),
		signer: r.URL.Query().Get("signer"),
		sink:   make(chan []byte, feedSinkSize),
	}
	logger := f.logger.WithKV("subscriberID", sub.id)

	f.register(sub)
	defer f.unregister(sub)
	logger.Info("feed subscriber connected", "signer", sub.signer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The read loop only detects the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
					logger.Warn("feed connection closed with unexpected reason", "error", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			logger.Info("feed subscriber disconnected")
			return
		case <-f.closed:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(feedWriteTimeout))
			conn.Close()
			return
		case msg := <-sub.sink:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("error writing feed event", "error", err)
				conn.Close()
				return
			}
		}
	}
}

func (f *SignatureFeed) register(sub *feedSubscriber) {
	f.mu.Lock()
	f.subscribers[sub.id] = sub
	f.mu.Unlock()
	if f.metrics != nil {
		f.metrics.WSSubscribers.Inc()
	}
}

func (f *SignatureFeed) unregister(sub *feedSubscriber) {
	f.mu.Lock()
	delete(f.subscribers, sub.id)
	f.mu.Unlock()
	if f.metrics != nil {
		f.metrics.WSSubscribers.Dec()
	}
}
