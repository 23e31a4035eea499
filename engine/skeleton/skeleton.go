package skeleton

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Errors returned by Build when a bone table violates the hierarchy invariants.
var (
	ErrEmptyTable     = errors.New("bone table is empty")
	ErrTooManyBones   = errors.New("bone table exceeds pose capacity")
	ErrRootCount      = errors.New("bone table must have exactly one root")
	ErrDanglingParent = errors.New("bone references a parent that is not in the table")
	ErrBoneID         = errors.New("bone ids must be unique and dense")
	ErrDuplicateName  = errors.New("bone names must be unique ignoring case")
	ErrCycle          = errors.New("bone hierarchy contains a cycle")
)

// skeleton is the implementation of the Skeleton interface.
type skeleton struct {
	bones       []Bone
	byName      map[string]int
	root        int
	fingerprint string
}

// Skeleton is the immutable bone hierarchy of a skinned model.
//
// A Skeleton is built once from a BoneTable when a model loads and is then shared
// read-only with every animation clip attached to that model. Bones are stored by ID,
// so Bone(id) is a constant-time lookup and Bones() is ordered by ID.
type Skeleton interface {
	// Root returns the single bone that has no parent.
	//
	// Returns:
	//   - Bone: the root bone
	Root() Bone

	// Bone returns the bone occupying the given pose slot.
	//
	// Parameters:
	//   - id: the bone ID
	//
	// Returns:
	//   - Bone: the bone with that ID
	//   - bool: false if no bone has that ID
	Bone(id int) (Bone, bool)

	// Lookup finds a bone by name, ignoring case.
	//
	// Parameters:
	//   - name: the bone name
	//
	// Returns:
	//   - Bone: the matching bone
	//   - bool: false if no bone matches
	Lookup(name string) (Bone, bool)

	// Has reports whether a bone with the given name exists, ignoring case.
	//
	// Parameters:
	//   - name: the bone name
	//
	// Returns:
	//   - bool: true if the bone exists
	Has(name string) bool

	// Bones returns a copy of all bones ordered by ID.
	//
	// Returns:
	//   - []Bone: the bones
	Bones() []Bone

	// Count returns the number of bones.
	//
	// Returns:
	//   - int: the bone count
	Count() int

	// Table converts the hierarchy back into the BoneTable it was built from.
	//
	// Returns:
	//   - BoneTable: the bone table
	Table() BoneTable

	// Fingerprint identifies the bone table the skeleton was built from. Skeletons built from
	// equal tables share a fingerprint.
	//
	// Returns:
	//   - string: the table fingerprint
	Fingerprint() string
}

var _ Skeleton = &skeleton{}

// Build resolves a BoneTable into an immutable Skeleton.
// Each bone gains the names of its direct children, found by reverse lookup of ParentName.
// The table is validated: there must be exactly one root, every parent must exist, IDs must
// be unique and dense in [0, len(table)), and every bone must be reachable from the root.
//
// Parameters:
//   - table: the bone table produced by a mesh/animation source
//
// Returns:
//   - Skeleton: the resolved hierarchy
//   - error: a wrapped sentinel error describing the first violated invariant
func Build(table BoneTable) (Skeleton, error) {
	if len(table) == 0 {
		return nil, ErrEmptyTable
	}
	if len(table) > MaxBones {
		return nil, fmt.Errorf("%w: %d bones, capacity %d", ErrTooManyBones, len(table), MaxBones)
	}

	s := &skeleton{
		bones:  make([]Bone, len(table)),
		byName: make(map[string]int, len(table)),
		root:   -1,
	}
	seen := make([]bool, len(table))

	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := table[name]
		if entry.ID < 0 || entry.ID >= len(table) {
			return nil, fmt.Errorf("%w: bone %q has id %d, expected [0, %d)", ErrBoneID, name, entry.ID, len(table))
		}
		if seen[entry.ID] {
			return nil, fmt.Errorf("%w: id %d is used more than once (bone %q)", ErrBoneID, entry.ID, name)
		}
		seen[entry.ID] = true

		key := strings.ToUpper(name)
		if _, dup := s.byName[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		s.byName[key] = entry.ID

		s.bones[entry.ID] = Bone{
			Name:       name,
			ParentName: entry.ParentName,
			ID:         entry.ID,
			Offset:     entry.Offset,
		}
	}

	// walking by ID keeps every Children list ordered by ID
	for i := range s.bones {
		b := &s.bones[i]
		if b.IsRoot() {
			if s.root >= 0 {
				return nil, fmt.Errorf("%w: %q and %q both have no parent", ErrRootCount, s.bones[s.root].Name, b.Name)
			}
			s.root = i
			continue
		}
		parent, ok := s.byName[strings.ToUpper(b.ParentName)]
		if !ok {
			return nil, fmt.Errorf("%w: %q -> %q", ErrDanglingParent, b.Name, b.ParentName)
		}
		s.bones[parent].Children = append(s.bones[parent].Children, b.Name)
	}
	if s.root < 0 {
		return nil, fmt.Errorf("%w: no bone is parentless", ErrRootCount)
	}

	if err := s.checkReachable(); err != nil {
		return nil, err
	}
	s.fingerprint = table.Fingerprint()
	return s, nil
}

// checkReachable walks the hierarchy from the root and fails if a bone is visited twice
// or never visited. With a single root and no dangling parents, an unreachable bone can
// only sit on a parent cycle.
func (s *skeleton) checkReachable() error {
	visited := make([]bool, len(s.bones))
	stack := []int{s.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			return fmt.Errorf("%w: bone %q reached twice", ErrCycle, s.bones[id].Name)
		}
		visited[id] = true
		for _, child := range s.bones[id].Children {
			stack = append(stack, s.byName[strings.ToUpper(child)])
		}
	}
	for id, ok := range visited {
		if !ok {
			return fmt.Errorf("%w: bone %q is not reachable from %q", ErrCycle, s.bones[id].Name, s.bones[s.root].Name)
		}
	}
	return nil
}

func (s *skeleton) Root() Bone {
	return s.bones[s.root].clone()
}

func (s *skeleton) Bone(id int) (Bone, bool) {
	if id < 0 || id >= len(s.bones) {
		return Bone{}, false
	}
	return s.bones[id].clone(), true
}

func (s *skeleton) Lookup(name string) (Bone, bool) {
	id, ok := s.byName[strings.ToUpper(name)]
	if !ok {
		return Bone{}, false
	}
	return s.bones[id].clone(), true
}

func (s *skeleton) Has(name string) bool {
	_, ok := s.byName[strings.ToUpper(name)]
	return ok
}

func (s *skeleton) Bones() []Bone {
	out := make([]Bone, len(s.bones))
	for i, b := range s.bones {
		out[i] = b.clone()
	}
	return out
}

func (s *skeleton) Count() int {
	return len(s.bones)
}

func (s *skeleton) Table() BoneTable {
	t := make(BoneTable, len(s.bones))
	for _, b := range s.bones {
		t[b.Name] = BoneEntry{ID: b.ID, ParentName: b.ParentName, Offset: b.Offset}
	}
	return t
}

func (s *skeleton) Fingerprint() string {
	return s.fingerprint
}
