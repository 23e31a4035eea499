package clip

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/engine/assets"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// poseKey identifies a cached pose. Poses with and without root translation differ,
// so the flag is part of the key.
type poseKey struct {
	frame  int
	rooted bool
}

// poseCache memoizes evaluated poses per frame for one clip.
// Unbounded caches keep every pose in a map; bounded caches store poses in fixed slots
// handed out by a Pager.
type poseCache struct {
	mu sync.Mutex

	entries map[poseKey]skeleton.Pose

	pager *assets.Pager[poseKey]
	slots []skeleton.Pose

	hits, misses, evictions uint64
}

func newPoseCache(limit int) *poseCache {
	pc := &poseCache{}
	if limit > 0 {
		pc.pager = assets.NewPager[poseKey](limit)
		pc.slots = make([]skeleton.Pose, limit)
	} else {
		pc.entries = make(map[poseKey]skeleton.Pose)
	}
	return pc
}

func (pc *poseCache) load(key poseKey) (skeleton.Pose, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.pager != nil {
		if idx, ok := pc.pager.Get(key); ok {
			pc.hits++
			return pc.slots[idx], true
		}
		pc.misses++
		return skeleton.Pose{}, false
	}

	p, ok := pc.entries[key]
	if ok {
		pc.hits++
	} else {
		pc.misses++
	}
	return p, ok
}

func (pc *poseCache) store(key poseKey, p skeleton.Pose) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.pager != nil {
		idx, _, evicted := pc.pager.Add(key)
		if evicted {
			pc.evictions++
		}
		pc.slots[idx] = p
		return
	}
	pc.entries[key] = p
}

func (pc *poseCache) stats() CacheStats {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	s := CacheStats{Hits: pc.hits, Misses: pc.misses, Evictions: pc.evictions}
	if pc.pager != nil {
		s.Entries = pc.pager.Len()
	} else {
		s.Entries = len(pc.entries)
	}
	return s
}

func (pc *poseCache) clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.pager != nil {
		pc.pager.Clear()
		return
	}
	pc.entries = make(map[poseKey]skeleton.Pose)
}
