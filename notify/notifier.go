// Package notify delivers block-sealed notifications to replication and
// SIEM-forwarding collaborators. Delivery is best-effort: a failed webhook
// is logged and dropped, it never blocks sealing or local durability.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"veritas/config"
)

// BlockSealed is the event emitted on every block seal.
type BlockSealed struct {
	Index      uint64    `json:"index"`
	Hash       string    `json:"hash"`
	EntryCount int       `json:"entry_count"`
	SealedAt   time.Time `json:"sealed_at"`
}

// Subscriber receives sealed-block events in-process. Subscribers run on
// the notifier's dispatch goroutine and must not block.
type Subscriber func(BlockSealed)

// Notifier fans sealed-block events out to in-process subscribers and
// configured webhooks.
type Notifier struct {
	webhooks    []config.WebhookConfig
	logger      *zap.SugaredLogger
	client      *http.Client
	subscribers []Subscriber
	mu          sync.RWMutex

	events chan BlockSealed
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewNotifier creates a notifier. Call Start before publishing and Stop
// during shutdown.
func NewNotifier(webhooks []config.WebhookConfig, logger *zap.SugaredLogger) *Notifier {
	return &Notifier{
		webhooks: webhooks,
		logger:   logger,
		client:   &http.Client{Timeout: 10 * time.Second},
		events:   make(chan BlockSealed, 256),
		done:     make(chan struct{}),
	}
}

// Subscribe registers an in-process subscriber for sealed-block events.
func (n *Notifier) Subscribe(sub Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribers = append(n.subscribers, sub)
}

// Start launches the dispatch goroutine.
func (n *Notifier) Start() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for {
			select {
			case event := <-n.events:
				n.dispatch(event)
			case <-n.done:
				// Drain anything published before shutdown
				for {
					select {
					case event := <-n.events:
						n.dispatch(event)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop drains pending events and stops the dispatch goroutine.
func (n *Notifier) Stop() {
	close(n.done)
	n.wg.Wait()
}

// Publish enqueues a sealed-block event. When the queue is full the event
// is dropped with a warning rather than blocking the seal path.
func (n *Notifier) Publish(event BlockSealed) {
	select {
	case n.events <- event:
	default:
		n.logger.Warnw("notification queue full, dropping event",
			"block_index", event.Index, "block_hash", event.Hash)
	}
}

func (n *Notifier) dispatch(event BlockSealed) {
	n.mu.RLock()
	subs := make([]Subscriber, len(n.subscribers))
	copy(subs, n.subscribers)
	n.mu.RUnlock()

	for _, sub := range subs {
		sub(event)
	}

	for _, hook := range n.webhooks {
		if !hook.Enabled {
			continue
		}
		if err := n.sendWebhook(hook, event); err != nil {
			n.logger.Errorw("webhook delivery failed",
				"url", hook.URL, "block_index", event.Index, "error", err)
		}
	}
}

func (n *Notifier) sendWebhook(hook config.WebhookConfig, event BlockSealed) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	method := hook.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequest(method, hook.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hook.Headers {
		req.Header.Set(k, v)
	}

	client := n.client
	if hook.Timeout > 0 {
		client = &http.Client{Timeout: hook.Timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
