package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfRig is the bone table of a skin plus the lookups needed to bind animation channels to it.
type gltfRig struct {
	table     skeleton.BoneTable
	jointName map[int]string // node index -> bone name
	rest      map[string]gltfRestPose
}

// gltfRestPose is the local transform of a joint node when no channel animates it.
type gltfRestPose struct {
	translation mgl32.Vec3
	rotation    mgl32.Quat
}

// extractRig converts a skin into a bone table. Bone IDs follow the skin's joint order and
// offsets are the skin's inverse bind matrices.
func (p *gltfParser) extractRig(skinIndex int) (*gltfRig, error) {
	doc := p.document
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return nil, fmt.Errorf("skin index %d out of range", skinIndex)
	}
	skin := &doc.Skins[skinIndex]

	var inverseBind []mgl32.Mat4
	if skin.InverseBindMatrices != nil {
		var err error
		if inverseBind, err = p.readMat4s(*skin.InverseBindMatrices); err != nil {
			return nil, fmt.Errorf("failed to read inverse bind matrices: %w", err)
		}
	}

	rig := &gltfRig{
		table:     make(skeleton.BoneTable, len(skin.Joints)),
		jointName: make(map[int]string, len(skin.Joints)),
		rest:      make(map[string]gltfRestPose, len(skin.Joints)),
	}
	for i, nodeIndex := range skin.Joints {
		if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
			return nil, fmt.Errorf("joint %d: invalid node index %d", i, nodeIndex)
		}
		node := &doc.Nodes[nodeIndex]
		name := node.Name
		if name == "" {
			name = fmt.Sprintf("bone_%d", i)
		}
		if _, dup := rig.table[name]; dup {
			return nil, fmt.Errorf("joint %d: duplicate bone name %q", i, name)
		}

		offset := mgl32.Ident4()
		if i < len(inverseBind) {
			offset = inverseBind[i]
		}
		rig.table[name] = skeleton.BoneEntry{ID: i, Offset: offset}
		rig.jointName[nodeIndex] = name
		rig.rest[name] = gltfNodeRestPose(node)
	}

	// a joint's parent is the joint node listing it as a child
	for parentNode, parentName := range rig.jointName {
		for _, child := range doc.Nodes[parentNode].Children {
			childName, ok := rig.jointName[child]
			if !ok {
				continue
			}
			entry := rig.table[childName]
			entry.ParentName = parentName
			rig.table[childName] = entry
		}
	}
	return rig, nil
}

func gltfNodeRestPose(node *gltfNode) gltfRestPose {
	rest := gltfRestPose{rotation: mgl32.QuatIdent()}
	if node.Matrix != nil {
		m := mgl32.Mat4(*node.Matrix)
		rest.translation = m.Col(3).Vec3()
		rest.rotation = mgl32.Mat4ToQuat(gltfRotationPart(m))
		return rest
	}
	if node.Translation != nil {
		rest.translation = *node.Translation
	}
	if node.Rotation != nil {
		r := *node.Rotation
		rest.rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	}
	return rest
}

// gltfRotationPart strips translation and per-axis scale from a node matrix, assuming no shear.
func gltfRotationPart(m mgl32.Mat4) mgl32.Mat4 {
	out := mgl32.Ident4()
	for c := 0; c < 3; c++ {
		col := m.Col(c).Vec3()
		if l := col.Len(); l > 1e-4 {
			col = col.Mul(1 / l)
		}
		out.SetCol(c, col.Vec4(0))
	}
	return out
}
