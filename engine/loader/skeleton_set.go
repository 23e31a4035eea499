package loader

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// SkeletonSet interns live skeletons by fingerprint. A ClipCodec holding a set binds decoded
// clips to the registered skeleton with the recorded bone table instead of rebuilding one.
type SkeletonSet struct {
	mu      sync.RWMutex
	byPrint map[string]skeleton.Skeleton
}

// NewSkeletonSet creates an empty set.
//
// Returns:
//   - *SkeletonSet: the set
func NewSkeletonSet() *SkeletonSet {
	return &SkeletonSet{byPrint: make(map[string]skeleton.Skeleton)}
}

// Add registers skel unless a skeleton with the same fingerprint is already present.
//
// Parameters:
//   - skel: the skeleton to register
//
// Returns:
//   - skeleton.Skeleton: the registered skeleton for skel's fingerprint
func (s *SkeletonSet) Add(skel skeleton.Skeleton) skeleton.Skeleton {
	fp := skel.Fingerprint()
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.byPrint[fp]; ok {
		return prev
	}
	s.byPrint[fp] = skel
	return skel
}

// Get returns the skeleton registered under a fingerprint.
//
// Parameters:
//   - fingerprint: the bone table fingerprint
//
// Returns:
//   - skeleton.Skeleton: the registered skeleton
//   - bool: false if none is registered
func (s *SkeletonSet) Get(fingerprint string) (skeleton.Skeleton, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	skel, ok := s.byPrint[fingerprint]
	return skel, ok
}

// Len returns the number of registered skeletons.
func (s *SkeletonSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPrint)
}
