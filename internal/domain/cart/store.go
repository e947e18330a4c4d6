package cart

import "sync"

// Store holds the cart contents and the drawer flag of one session. All
// mutation goes through its methods; readers get copies.
//
// Every operation is total: invalid input and stale references are no-ops,
// never errors.
type Store struct {
	mu     sync.Mutex
	items  []LineItem
	isOpen bool
}

// NewStore returns an empty store with the drawer closed.
func NewStore() *Store {
	return &Store{}
}

// AddItem merges item into the line with the same key, or appends it. The
// incoming quantity is clamped to [MinQuantity, MaxQuantity] and so is the
// merged quantity. The drawer is opened unconditionally.
func (s *Store) AddItem(item LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.Quantity = ClampQuantity(item.Quantity)
	s.isOpen = true

	if i := s.indexOf(item.Key()); i >= 0 {
		s.items[i].Quantity = ClampQuantity(s.items[i].Quantity + item.Quantity)
		return
	}
	s.items = append(s.items, item)
}

// UpdateQuantity sets the quantity of the matching line. Quantities outside
// [MinQuantity, MaxQuantity] are rejected. It reports whether a line changed.
func (s *Store) UpdateQuantity(productID string, variant Variant, quantity int) bool {
	if !ValidQuantity(quantity) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(Key{ProductID: productID, Variant: variant})
	if i < 0 {
		return false
	}
	s.items[i].Quantity = quantity
	return true
}

// RemoveItem deletes the matching line, keeping the order of the rest. It
// reports whether a line was removed.
func (s *Store) RemoveItem(productID string, variant Variant) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(Key{ProductID: productID, Variant: variant})
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	return true
}

// Open shows the cart drawer.
func (s *Store) Open() {
	s.mu.Lock()
	s.isOpen = true
	s.mu.Unlock()
}

// Close hides the cart drawer.
func (s *Store) Close() {
	s.mu.Lock()
	s.isOpen = false
	s.mu.Unlock()
}

// Clear drops every line item. The drawer flag is left as is.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

// Deduct takes the quantities of ordered off the matching lines and drops
// lines that reach zero. Lines not in ordered, or added to since, keep the
// remainder.
func (s *Store) Deduct(ordered []LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range ordered {
		i := s.indexOf(o.Key())
		if i < 0 {
			continue
		}
		if left := s.items[i].Quantity - o.Quantity; left > 0 {
			s.items[i].Quantity = left
			continue
		}
		s.items = append(s.items[:i:i], s.items[i+1:]...)
	}
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of line items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// IsOpen reports whether the cart drawer is shown.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

// Snapshot returns the items and drawer flag read under one lock.
func (s *Store) Snapshot() ([]LineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out, s.isOpen
}

// indexOf must be called with s.mu held.
func (s *Store) indexOf(k Key) int {
	for i := range s.items {
		if s.items[i].Key() == k {
			return i
		}
	}
	return -1
}
