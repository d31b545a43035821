// Package registry keeps track of the topics and partitions that fetched
// batches have shown, so a client can offer them as browse contexts.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coffersTech/topicview/internal/model"
)

// DefaultTTL is how long a topic stays listed after its last message.
const DefaultTTL = 24 * time.Hour

// Topic represents one topic seen in fetched batches.
type Topic struct {
	Name          string  `json:"name"`
	Partitions    []int32 `json:"partitions"`
	Messages      int64   `json:"messages"`
	LastTimestamp int64   `json:"last_timestamp"` // newest record timestamp, epoch millis
	RegisteredAt  int64   `json:"registered_at"`
	LastSeenAt    int64   `json:"last_seen_at"`
}

// Store handles the in-memory topic list.
type Store struct {
	mu     sync.RWMutex
	topics map[string]*Topic
	now    func() time.Time
}

// NewStore creates a new registry store.
func NewStore() *Store {
	return &Store{
		topics: make(map[string]*Topic),
		now:    time.Now,
	}
}

// Observe records the topics and partitions of a batch. Records without a
// topic are ignored.
func (s *Store) Observe(records []model.RawRecord) {
	if len(records) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Unix()
	for _, rec := range records {
		if rec.Topic == "" {
			continue
		}
		t, ok := s.topics[rec.Topic]
		if !ok {
			t = &Topic{Name: rec.Topic, RegisteredAt: now}
			s.topics[rec.Topic] = t
		}
		t.Messages++
		t.LastSeenAt = now
		if rec.TimestampMillis > t.LastTimestamp {
			t.LastTimestamp = rec.TimestampMillis
		}
		t.Partitions = insertPartition(t.Partitions, rec.Partition)
	}
}

func insertPartition(parts []int32, p int32) []int32 {
	i := sort.Search(len(parts), func(i int) bool { return parts[i] >= p })
	if i < len(parts) && parts[i] == p {
		return parts
	}
	parts = append(parts, 0)
	copy(parts[i+1:], parts[i:])
	parts[i] = p
	return parts
}

// GetTopic retrieves a topic by name.
func (s *Store) GetTopic(name string) (Topic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.topics[name]
	if !ok {
		return Topic{}, false
	}
	return t.copy(), true
}

// ListTopics returns every topic ordered by name.
func (s *Store) ListTopics() []Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]Topic, 0, len(s.topics))
	for _, t := range s.topics {
		list = append(list, t.copy())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func (t *Topic) copy() Topic {
	c := *t
	c.Partitions = append([]int32(nil), t.Partitions...)
	return c
}

// PruneStaleTopics removes topics that haven't been seen for a duration.
func (s *Store) PruneStaleTopics(timeout time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().Unix()
	count := 0
	timeoutSec := int64(timeout.Seconds())

	for name, t := range s.topics {
		if now-t.LastSeenAt > timeoutSec {
			delete(s.topics, name)
			count++
		}
	}
	return count
}

// StartCleanupLoop starts a background goroutine to prune stale topics.
func (s *Store) StartCleanupLoop(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.PruneStaleTopics(timeout)
			case <-ctx.Done():
				return
			}
		}
	}()
}
