package orgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/funnelhq/funnel/pkg/api"
)

// Key suffixes under the configured prefix. External consumers must not
// write these keys directly.
const (
	keyActiveID      = "active_id"
	keyOrganizations = "organizations"
	keyActive        = "active"
	switchChannel    = "switch"
)

// RedisStore persists organization context in Redis and broadcasts switches
// over a pub/sub channel, so every process pointed at the same Redis observes
// the same active organization. Used for shared and CI setups where a local
// state file would not be visible to all consumers.
type RedisStore struct {
	client *redis.Client
	prefix string

	mu    sync.Mutex
	state snapshot
	subs  []chan Event

	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisStore loads current state from Redis and subscribes to the switch
// channel. The prefix namespaces all keys, e.g. "funnel:org".
func NewRedisStore(ctx context.Context, client *redis.Client, prefix string) (*RedisStore, error) {
	if prefix == "" {
		prefix = "funnel:org"
	}
	s := &RedisStore{
		client: client,
		prefix: prefix,
		done:   make(chan struct{}),
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	s.pubsub = client.Subscribe(ctx, s.key(switchChannel))
	go s.listen()

	return s, nil
}

func (s *RedisStore) key(suffix string) string {
	return s.prefix + ":" + suffix
}

func (s *RedisStore) load(ctx context.Context) error {
	vals, err := s.client.MGet(ctx, s.key(keyActiveID), s.key(keyOrganizations), s.key(keyActive)).Result()
	if err != nil {
		return fmt.Errorf("failed to load org state: %w", err)
	}

	var st snapshot
	if v, ok := vals[0].(string); ok {
		st.ActiveID = v
	}
	if v, ok := vals[1].(string); ok {
		if err := json.Unmarshal([]byte(v), &st.Organizations); err != nil {
			return fmt.Errorf("corrupt organization list: %w", err)
		}
	}
	if v, ok := vals[2].(string); ok {
		var org api.Organization
		if err := json.Unmarshal([]byte(v), &org); err != nil {
			return fmt.Errorf("corrupt active organization: %w", err)
		}
		st.Active = &org
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

func (s *RedisStore) listen() {
	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			if err := s.load(ctx); err != nil {
				cancel()
				continue
			}
			cancel()

			s.mu.Lock()
			subs := make([]chan Event, len(s.subs))
			copy(subs, s.subs)
			s.mu.Unlock()
			notify(subs, Event{ActiveID: msg.Payload})
		}
	}
}

// persistAll writes id, list, and record in one pipeline. Caller holds the
// lock.
func (s *RedisStore) persistAll(ctx context.Context) error {
	orgsJSON, err := json.Marshal(s.state.Organizations)
	if err != nil {
		return fmt.Errorf("failed to marshal organization list: %w", err)
	}
	activeJSON := []byte("")
	if s.state.Active != nil {
		activeJSON, err = json.Marshal(s.state.Active)
		if err != nil {
			return fmt.Errorf("failed to marshal active organization: %w", err)
		}
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(keyActiveID), s.state.ActiveID, 0)
	pipe.Set(ctx, s.key(keyOrganizations), orgsJSON, 0)
	if s.state.Active != nil {
		pipe.Set(ctx, s.key(keyActive), activeJSON, 0)
	} else {
		pipe.Del(ctx, s.key(keyActive))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to persist org state: %w", err)
	}
	return nil
}

// ActiveID implements Store
func (s *RedisStore) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveID
}

// Active implements Store
func (s *RedisStore) Active() (api.Organization, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Active == nil {
		return api.Organization{}, false
	}
	return *s.state.Active, true
}

// Organizations implements Store
func (s *RedisStore) Organizations() []api.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Organization, len(s.state.Organizations))
	copy(out, s.state.Organizations)
	return out
}

// SetOrganizationList implements Store
func (s *RedisStore) SetOrganizationList(ctx context.Context, orgs []api.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Organizations = append([]api.Organization(nil), orgs...)
	if s.state.ActiveID == "" && len(orgs) > 0 {
		first := orgs[0]
		s.state.ActiveID = first.ID
		s.state.Active = &first
	}
	return s.persistAll(ctx)
}

// SetActive implements Store
func (s *RedisStore) SetActive(ctx context.Context, org api.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActiveID = org.ID
	s.state.Active = &org
	return s.persistAll(ctx)
}

// SwitchActive implements Store
func (s *RedisStore) SwitchActive(ctx context.Context, id string) bool {
	s.mu.Lock()
	org, ok := s.state.find(id)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.state.ActiveID = org.ID
	s.state.Active = &org
	err := s.persistAll(ctx)
	subs := make([]chan Event, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	if err == nil {
		s.client.Publish(ctx, s.key(switchChannel), org.ID)
		notify(subs, Event{ActiveID: org.ID})
	}
	return true
}

// Clear implements Store
func (s *RedisStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = snapshot{}
	if err := s.client.Del(ctx, s.key(keyActiveID), s.key(keyOrganizations), s.key(keyActive)).Err(); err != nil {
		return fmt.Errorf("failed to clear org state: %w", err)
	}
	return nil
}

// Subscribe implements Store
func (s *RedisStore) Subscribe() <-chan Event {
	ch := make(chan Event, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// Close implements Store
func (s *RedisStore) Close() error {
	close(s.done)
	return s.pubsub.Close()
}
