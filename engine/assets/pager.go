package assets

// pagerEntry records the slot a key occupies and when it was last touched.
type pagerEntry struct {
	index   int
	touched uint64
}

// Pager hands out a fixed number of slot indices to keys and reclaims the least recently
// touched slot when all of them are in use. It is the bookkeeping half of an LRU cache:
// callers keep their payloads in a slice indexed by the returned slot.
//
// A Pager is not safe for concurrent use; owners guard it with their own lock.
type Pager[K comparable] struct {
	entries   map[K]pagerEntry
	available []int
	clock     uint64
	size      int
}

// NewPager creates a Pager with the given number of slots.
//
// Parameters:
//   - size: the number of slots, must be positive
//
// Returns:
//   - *Pager[K]: the pager
func NewPager[K comparable](size int) *Pager[K] {
	if size <= 0 {
		panic("assets: pager size must be positive")
	}
	p := &Pager[K]{size: size}
	p.Clear()
	return p
}

// Size returns the number of slots.
func (p *Pager[K]) Size() int {
	return p.size
}

// Len returns the number of keys currently holding a slot.
func (p *Pager[K]) Len() int {
	return len(p.entries)
}

// Contains reports whether key holds a slot, without touching it.
func (p *Pager[K]) Contains(key K) bool {
	_, ok := p.entries[key]
	return ok
}

// Add assigns a slot to key. If every slot is taken the least recently touched key is
// evicted first and returned so the caller can drop its payload. Adding a key that already
// holds a slot only touches it.
//
// Parameters:
//   - key: the key to page in
//
// Returns:
//   - int: the slot index assigned to key
//   - K: the evicted key (only meaningful when the bool is true)
//   - bool: true if a key was evicted to make room
func (p *Pager[K]) Add(key K) (int, K, bool) {
	var evicted K
	if e, ok := p.entries[key]; ok {
		p.touch(key, e)
		return e.index, evicted, false
	}

	didEvict := false
	if len(p.available) == 0 {
		evicted = p.oldest()
		p.Remove(evicted)
		didEvict = true
	}

	index := p.available[len(p.available)-1]
	p.available = p.available[:len(p.available)-1]
	p.clock++
	p.entries[key] = pagerEntry{index: index, touched: p.clock}
	return index, evicted, didEvict
}

// Get returns the slot held by key and marks it as most recently used.
//
// Parameters:
//   - key: the key to look up
//
// Returns:
//   - int: the slot index
//   - bool: false if key holds no slot
func (p *Pager[K]) Get(key K) (int, bool) {
	e, ok := p.entries[key]
	if !ok {
		return 0, false
	}
	p.touch(key, e)
	return e.index, true
}

// Remove releases the slot held by key. It is a no-op for unknown keys.
func (p *Pager[K]) Remove(key K) {
	e, ok := p.entries[key]
	if !ok {
		return
	}
	delete(p.entries, key)
	p.available = append(p.available, e.index)
}

// Clear releases every slot.
func (p *Pager[K]) Clear() {
	p.entries = make(map[K]pagerEntry, p.size)
	p.available = make([]int, 0, p.size)
	for i := p.size - 1; i >= 0; i-- {
		p.available = append(p.available, i)
	}
}

func (p *Pager[K]) touch(key K, e pagerEntry) {
	p.clock++
	e.touched = p.clock
	p.entries[key] = e
}

func (p *Pager[K]) oldest() K {
	var key K
	var best uint64
	first := true
	for k, e := range p.entries {
		if first || e.touched < best {
			key, best, first = k, e.touched, false
		}
	}
	return key
}
