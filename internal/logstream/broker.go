package logstream

import "sync"

// LogBroker manages log streams for runs
type LogBroker struct {
	subscribers map[uint]map[chan string]bool // runID -> set of subscriber channels
	mu          sync.RWMutex
}

// NewBroker creates a new log broker
func NewBroker() *LogBroker {
	return &LogBroker{
		subscribers: make(map[uint]map[chan string]bool),
	}
}

// Subscribe creates a new subscription for a run's logs
func (b *LogBroker) Subscribe(runID uint) chan string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan string, 100) // Buffered channel to prevent blocking

	if b.subscribers[runID] == nil {
		b.subscribers[runID] = make(map[chan string]bool)
	}
	b.subscribers[runID][ch] = true

	return ch
}

// Unsubscribe removes a subscription
func (b *LogBroker) Unsubscribe(runID uint, ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, exists := b.subscribers[runID]; exists {
		delete(subs, ch)
		close(ch)

		// Clean up if no more subscribers for this run
		if len(subs) == 0 {
			delete(b.subscribers, runID)
		}
	}
}

// Publish sends a log line to all subscribers of a run
func (b *LogBroker) Publish(runID uint, line string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if subs, exists := b.subscribers[runID]; exists {
		for ch := range subs {
			// Non-blocking send - drop if channel is full
			select {
			case ch <- line:
			default:
				// Channel full, log is dropped
			}
		}
	}
}

// Close closes all subscriptions for a run
func (b *LogBroker) Close(runID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, exists := b.subscribers[runID]; exists {
		for ch := range subs {
			close(ch)
		}
		delete(b.subscribers, runID)
	}
}

// HasSubscribers returns true if there are active subscribers for a run
func (b *LogBroker) HasSubscribers(runID uint) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs, exists := b.subscribers[runID]
	return exists && len(subs) > 0
}
