// Package price serves the NEAR/USD spot price over plain GET and as a
// websocket stream pushed on every scheduled refresh.
package price

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Source resolves the current price, implemented by the failover oracle
// client.
type Source interface {
	NearPrice(ctx context.Context) (float64, error)
}

// Update is one streamed price point.
type Update struct {
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// Service owns the price subscription hub.
type Service struct {
	source Source
	log    zerolog.Logger

	mu   sync.Mutex
	subs map[chan Update]struct{}
	last *Update
}

// NewService creates the price service.
func NewService(source Source, log zerolog.Logger) *Service {
	return &Service{
		source: source,
		log:    log.With().Str("service", "price").Logger(),
		subs:   make(map[chan Update]struct{}),
	}
}

// Current returns the spot price, cached by the underlying oracle.
func (s *Service) Current(ctx context.Context) (float64, error) {
	return s.source.NearPrice(ctx)
}

// Refresh fetches a fresh price and pushes it to every stream subscriber.
// Called by the scheduler.
func (s *Service) Refresh(ctx context.Context) error {
	price, err := s.source.NearPrice(ctx)
	if err != nil {
		return err
	}
	update := Update{Price: price, Timestamp: time.Now().UnixMilli()}

	s.mu.Lock()
	s.last = &update
	for ch := range s.subs {
		select {
		case ch <- update:
		default:
			// Subscriber is not draining; drop rather than block the refresh.
		}
	}
	n := len(s.subs)
	s.mu.Unlock()

	s.log.Debug().Float64("price", price).Int("subscribers", n).Msg("Price refreshed")
	return nil
}

// Subscribe registers a stream consumer. The returned cancel must be called
// when the consumer goes away. A known last price is delivered immediately.
func (s *Service) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 8)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	if s.last != nil {
		ch <- *s.last
	}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
	return ch, cancel
}
