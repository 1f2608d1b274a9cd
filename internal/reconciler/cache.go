package reconciler

import (
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/relaychat/internal/domain"
)

// Cache is the local view of one conversation. Messages live in exactly
// one of confirmed (seen in a fetch or a relay broadcast) or pending (sent
// from here, not yet seen in a fetch). Deleted IDs are remembered so that a
// later fetch or broadcast cannot bring them back.
type Cache struct {
	mu        sync.Mutex
	confirmed map[uuid.UUID]domain.Message
	pending   map[uuid.UUID]domain.Message
	deleted   map[uuid.UUID]struct{}
}

func NewCache() *Cache {
	return &Cache{
		confirmed: make(map[uuid.UUID]domain.Message),
		pending:   make(map[uuid.UUID]domain.Message),
		deleted:   make(map[uuid.UUID]struct{}),
	}
}

// Merge folds a fetched message list into the cache. It is a union by ID:
// fetched copies replace cached ones, pending entries that were fetched are
// promoted, and nothing missing from fetched is dropped.
func (c *Cache) Merge(fetched []domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range fetched {
		if _, gone := c.deleted[m.ID]; gone {
			continue
		}
		delete(c.pending, m.ID)
		c.confirmed[m.ID] = m
	}
}

// AddPending records a message sent from this client.
func (c *Cache) AddPending(m domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, gone := c.deleted[m.ID]; gone {
		return
	}
	if _, ok := c.confirmed[m.ID]; ok {
		return
	}
	c.pending[m.ID] = m
}

// Observe adds a message seen on the relay. It reports false when the
// message was already known or has been deleted.
func (c *Cache) Observe(m domain.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, gone := c.deleted[m.ID]; gone {
		return false
	}
	if _, ok := c.confirmed[m.ID]; ok {
		return false
	}
	if _, ok := c.pending[m.ID]; ok {
		return false
	}
	c.confirmed[m.ID] = m
	return true
}

// Remove drops ids from the view and remembers them as deleted. It reports
// whether any visible message was removed.
func (c *Cache) Remove(ids ...uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := false
	for _, id := range ids {
		if _, ok := c.confirmed[id]; ok {
			removed = true
		}
		if _, ok := c.pending[id]; ok {
			removed = true
		}
		delete(c.confirmed, id)
		delete(c.pending, id)
		c.deleted[id] = struct{}{}
	}
	return removed
}

// Update applies fn to the cached copy of id, wherever it lives.
func (c *Cache) Update(id uuid.UUID, fn func(*domain.Message)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, set := range []map[uuid.UUID]domain.Message{c.confirmed, c.pending} {
		if m, ok := set[id]; ok {
			fn(&m)
			set[id] = m
			return true
		}
	}
	return false
}

// Replace overwrites the cached copy of m if it is still visible.
func (c *Cache) Replace(m domain.Message) {
	c.Update(m.ID, func(cur *domain.Message) { *cur = m })
}

func (c *Cache) Get(id uuid.UUID) (domain.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.confirmed[id]; ok {
		return m, true
	}
	m, ok := c.pending[id]
	return m, ok
}

func (c *Cache) IsPending(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

func (c *Cache) IsDeleted(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.deleted[id]
	return ok
}

// Messages returns the visible messages ordered by creation time, then ID.
func (c *Cache) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := make([]domain.Message, 0, len(c.confirmed)+len(c.pending))
	for _, m := range c.confirmed {
		msgs = append(msgs, m)
	}
	for _, m := range c.pending {
		msgs = append(msgs, m)
	}
	slices.SortFunc(msgs, func(a, b domain.Message) int {
		if n := a.CreatedAt.Compare(b.CreatedAt); n != 0 {
			return n
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return msgs
}
