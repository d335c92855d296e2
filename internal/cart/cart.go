package cart

import (
	"sync"

	"patrol-service/internal/domain/patrol"
)

// AddResult splits a candidate batch into what entered the cart and what was
// rejected because an item with the same description was already present.
type AddResult struct {
	Added      []patrol.OffenseLineItem `json:"added"`
	Duplicates []patrol.OffenseLineItem `json:"duplicates"`
}

// Summary is the cart snapshot rendered to the officer.
type Summary struct {
	Items []patrol.OffenseLineItem `json:"items"`
	Total int64                    `json:"total"`
}

// Cart accumulates the offenses of one vehicle stop. Items are unique by exact
// description and kept in insertion order. Safe for concurrent use.
type Cart struct {
	mu    sync.Mutex
	items []patrol.OffenseLineItem
	index map[string]struct{}
}

func New() *Cart {
	return &Cart{index: make(map[string]struct{})}
}

// AddItems appends every candidate whose description is not yet in the cart.
// Duplicates inside the batch itself are caught too: the first occurrence wins.
func (c *Cart) AddItems(candidates []patrol.OffenseLineItem) AddResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index == nil {
		c.index = make(map[string]struct{})
	}

	result := AddResult{
		Added:      make([]patrol.OffenseLineItem, 0, len(candidates)),
		Duplicates: make([]patrol.OffenseLineItem, 0),
	}
	for _, item := range candidates {
		if _, exists := c.index[item.Description]; exists {
			result.Duplicates = append(result.Duplicates, item)
			continue
		}
		c.index[item.Description] = struct{}{}
		c.items = append(c.items, item)
		result.Added = append(result.Added, item)
	}
	return result
}

func (c *Cart) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalLocked()
}

// Items returns a copy of the current line items.
func (c *Cart) Items() []patrol.OffenseLineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cart) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Summary{Items: c.copyLocked(), Total: c.totalLocked()}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.index = make(map[string]struct{})
}

func (c *Cart) totalLocked() int64 {
	var total int64
	for _, item := range c.items {
		total += item.Fine
	}
	return total
}

func (c *Cart) copyLocked() []patrol.OffenseLineItem {
	items := make([]patrol.OffenseLineItem, len(c.items))
	copy(items, c.items)
	return items
}
