// Package cache provides the shared reference snapshot cache on Redis with
// pub/sub invalidation across instances.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"formdesk/internal/domain/catalog"
	"formdesk/pkg/logger"
)

const (
	keyPrefix         = "formdesk:reference:"
	invalidateChannel = "formdesk:reference:invalidate"
)

// Compile-time check that Snapshots implements catalog.SnapshotStore.
var _ catalog.SnapshotStore = (*Snapshots)(nil)

// Connect creates a Redis client and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return client, nil
}

// InvalidationListener is called with the kind another instance invalidated.
type InvalidationListener func(kind catalog.Kind)

// Snapshots stores encoded reference lists in Redis.
type Snapshots struct {
	client *redis.Client

	listeners   []InvalidationListener
	listenersMu sync.RWMutex

	// Lifecycle
	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewSnapshots creates a snapshot store on client.
func NewSnapshots(client *redis.Client) *Snapshots {
	return &Snapshots{client: client}
}

// Ping checks the Redis connection.
func (s *Snapshots) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func key(kind catalog.Kind) string { return keyPrefix + string(kind) }

// Get returns the snapshot of kind; ok is false on a miss.
func (s *Snapshots) Get(ctx context.Context, kind catalog.Kind) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key(kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put stores the snapshot of kind for ttl.
func (s *Snapshots) Put(ctx context.Context, kind catalog.Kind, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key(kind), data, ttl).Err()
}

// Invalidate deletes the snapshot and announces it to every subscriber.
func (s *Snapshots) Invalidate(ctx context.Context, kind catalog.Kind) error {
	if err := s.client.Del(ctx, key(kind)).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if err := s.client.Publish(ctx, invalidateChannel, string(kind)).Err(); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// OnInvalidate registers a listener for invalidation messages.
func (s *Snapshots) OnInvalidate(l InvalidationListener) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()
}

// Start subscribes to invalidation messages. It returns once the
// subscription is confirmed.
func (s *Snapshots) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.started {
		return nil
	}

	lctx, cancel := context.WithCancel(ctx)
	sub := s.client.Subscribe(lctx, invalidateChannel)
	if _, err := sub.Receive(lctx); err != nil {
		cancel()
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	s.cancel = cancel
	s.started = true

	s.wg.Add(1)
	go s.listenLoop(lctx, sub)
	logger.Info(ctx, "reference invalidation listener started")
	return nil
}

// Stop ends the subscription and waits for the listener to return.
func (s *Snapshots) Stop() {
	s.lifecycleMu.Lock()
	if !s.started {
		s.lifecycleMu.Unlock()
		return
	}
	cancel := s.cancel
	s.started = false
	s.cancel = nil
	s.lifecycleMu.Unlock()

	cancel()
	s.wg.Wait()
	logger.Info(context.Background(), "reference invalidation listener stopped")
}

func (s *Snapshots) listenLoop(ctx context.Context, sub *redis.PubSub) {
	defer s.wg.Done()
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handle(ctx, msg.Payload)
		}
	}
}

// handle notifies listeners, recovering from listener panics.
func (s *Snapshots) handle(ctx context.Context, payload string) {
	kind, ok := catalog.ParseKind(strings.TrimSpace(payload))
	if !ok {
		logger.Debug(ctx, "ignoring invalidation of unknown kind", "payload", payload)
		return
	}

	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, listener := range s.listeners {
		func(l InvalidationListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(ctx, "invalidation listener panic recovered", "kind", kind, "panic", r)
				}
			}()
			l(kind)
		}(listener)
	}
}
