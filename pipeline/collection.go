// ABOUTME: Injectable client-side cache of the deal collection
// ABOUTME: Holds deals plus the transient dragging selection used by the board
package pipeline

import (
	"sync"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/models"
)

// Collection is the local copy of the deal list. It is authoritative only
// until the next Replace from a refetch. All reads return copies.
type Collection struct {
	mu       sync.RWMutex
	deals    []models.Deal
	dragging *uuid.UUID
}

// NewCollection seeds a collection.
func NewCollection(deals []models.Deal) *Collection {
	c := &Collection{}
	c.Replace(deals)
	return c
}

// Replace swaps the whole collection for deals. An id listed twice keeps its
// last copy in the position of its first.
func (c *Collection) Replace(deals []models.Deal) {
	next := make([]models.Deal, 0, len(deals))
	at := make(map[uuid.UUID]int, len(deals))
	for _, d := range deals {
		if i, ok := at[d.ID]; ok {
			next[i] = d.Clone()
			continue
		}
		at[d.ID] = len(next)
		next = append(next, d.Clone())
	}

	c.mu.Lock()
	c.deals = next
	c.mu.Unlock()
}

// Deals returns a deep copy of the current collection.
func (c *Collection) Deals() []models.Deal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Deal, len(c.deals))
	for i, d := range c.deals {
		out[i] = d.Clone()
	}
	return out
}

// Get returns a copy of the deal with id.
func (c *Collection) Get(id uuid.UUID) (models.Deal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, d := range c.deals {
		if d.ID == id {
			return d.Clone(), true
		}
	}
	return models.Deal{}, false
}

// Put overwrites the entry whose id matches deal.ID, keeping its position.
// It reports false when no entry matched.
func (c *Collection) Put(deal models.Deal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.deals {
		if c.deals[i].ID == deal.ID {
			c.deals[i] = deal.Clone()
			return true
		}
	}
	return false
}

// Len returns the number of deals held.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.deals)
}

// SetDragging marks id as the deal currently being dragged.
func (c *Collection) SetDragging(id uuid.UUID) {
	c.mu.Lock()
	c.dragging = &id
	c.mu.Unlock()
}

// Dragging returns the deal currently being dragged, if any.
func (c *Collection) Dragging() (uuid.UUID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.dragging == nil {
		return uuid.Nil, false
	}
	return *c.dragging, true
}

// ClearDraggingIf drops the dragging selection only while it still names id,
// so a move finishing late cannot clear a drag started on another deal.
func (c *Collection) ClearDraggingIf(id uuid.UUID) {
	c.mu.Lock()
	if c.dragging != nil && *c.dragging == id {
		c.dragging = nil
	}
	c.mu.Unlock()
}
