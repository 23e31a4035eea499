package skeleton

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxBones is the fixed capacity of a pose. Bone IDs must fall in [0, MaxBones).
const MaxBones = 60

// RootBoneName is the conventional name of the skeleton root.
const RootBoneName = "Hips"

// Pose is the full array of per-bone skinning matrices for one instant in time.
// It is an array, not a slice, so assigning a Pose always copies it.
type Pose [MaxBones]mgl32.Mat4

// IdentityPose returns a Pose with every slot set to the identity matrix.
//
// Returns:
//   - Pose: the identity pose
func IdentityPose() Pose {
	var p Pose
	for i := range p {
		p[i] = mgl32.Ident4()
	}
	return p
}

// BoneEntry is the loader-facing description of a single bone, keyed by name in a BoneTable.
type BoneEntry struct {
	// ID is the bone's slot in the pose array.
	ID int `yaml:"id"`

	// ParentName is the name of the parent bone, empty for the root.
	ParentName string `yaml:"parent,omitempty"`

	// Offset is the inverse bind-pose matrix (column-major).
	Offset mgl32.Mat4 `yaml:"offset,flow"`
}

// BoneTable maps bone names to their entries as produced by a mesh/animation source.
type BoneTable map[string]BoneEntry

// Fingerprint hashes the table's names, IDs, parents and offsets. Entry order does not matter.
//
// Returns:
//   - string: a short hex digest
func (t BoneTable) Fingerprint() string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		e := t[name]
		fmt.Fprintf(h, "%s|%d|%s|%v;", name, e.ID, e.ParentName, e.Offset)
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}

// Bone is a resolved node of the hierarchy.
type Bone struct {
	// Name is the bone's identifier as it appears in the source data.
	Name string

	// ParentName is the name of the parent bone, empty for the root.
	ParentName string

	// ID is the bone's slot in the pose array.
	ID int

	// Children are the names of the direct children, ordered by ID.
	Children []string

	// Offset is the inverse bind-pose matrix (column-major).
	Offset mgl32.Mat4
}

func (b Bone) clone() Bone {
	b.Children = slices.Clone(b.Children)
	return b
}

// IsRoot reports whether the bone has no parent.
func (b Bone) IsRoot() bool {
	return b.ParentName == ""
}
