package pose

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

func buildSkeleton(t testing.TB, table skeleton.BoneTable) skeleton.Skeleton {
	t.Helper()
	skel, err := skeleton.Build(table)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return skel
}

func staticTrack() clip.Track {
	return clip.Track{
		Positions: []mgl32.Vec3{{0, 0, 0}},
		Rotations: []mgl32.Quat{mgl32.QuatIdent()},
	}
}

func TestTwoBoneIdentity(t *testing.T) {
	hipsOffset := mgl32.Translate3D(0, -1, 0)
	spineOffset := mgl32.Translate3D(0, -2, 0).Mul4(mgl32.Scale3D(2, 2, 2))
	skel := buildSkeleton(t, skeleton.BoneTable{
		"Hips":  {ID: 0, Offset: hipsOffset},
		"Spine": {ID: 1, ParentName: "Hips", Offset: spineOffset},
	})
	c, err := clip.NewSkeletal(skel, map[string]clip.Track{
		"Hips":  staticTrack(),
		"Spine": staticTrack(),
	}, clip.WithFPS(1), clip.WithFrameCount(1), clip.WithLooping(true))
	if err != nil {
		t.Fatalf("NewSkeletal: %v", err)
	}

	p := NewEvaluator().Evaluate(c, skel, 0.5, true)
	if !p[0].ApproxEqual(hipsOffset) {
		t.Errorf("Hips = %v, want offset %v", p[0], hipsOffset)
	}
	if !p[1].ApproxEqual(spineOffset) {
		t.Errorf("Spine = %v, want offset %v", p[1], spineOffset)
	}
	for i := 2; i < skeleton.MaxBones; i++ {
		if p[i] != mgl32.Ident4() {
			t.Fatalf("slot %d = %v, want identity", i, p[i])
		}
	}
}

func TestChildInheritsParentTransform(t *testing.T) {
	skel := buildSkeleton(t, skeleton.BoneTable{
		"Hips":  {ID: 0, Offset: mgl32.Ident4()},
		"Spine": {ID: 1, ParentName: "Hips", Offset: mgl32.Ident4()},
		"Head":  {ID: 2, ParentName: "Spine", Offset: mgl32.Ident4()},
	})
	turn := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	c, err := clip.NewSkeletal(skel, map[string]clip.Track{
		"Hips":  {Positions: []mgl32.Vec3{{0, 0, 5}}, Rotations: []mgl32.Quat{turn}},
		"Spine": {Positions: []mgl32.Vec3{{1, 0, 0}}, Rotations: []mgl32.Quat{mgl32.QuatIdent()}},
	}, clip.WithFPS(1))
	if err != nil {
		t.Fatalf("NewSkeletal: %v", err)
	}

	e := NewEvaluator()
	rooted := e.Evaluate(c, nil, 0, true)
	spinePos := rooted[1].Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	if want := (mgl32.Vec3{0, 0, 4}); !spinePos.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("spine origin = %v, want %v", spinePos, want)
	}
	// Head has no track: it rides on Spine's accumulated transform with Spine's offset
	if !rooted[2].ApproxEqualThreshold(rooted[1], 1e-5) {
		t.Errorf("trackless head = %v, want spine transform %v", rooted[2], rooted[1])
	}

	unrooted := e.Evaluate(c, nil, 0, false)
	hipsPos := unrooted[0].Col(3).Vec3()
	if !hipsPos.ApproxEqual(mgl32.Vec3{}) {
		t.Errorf("root translation applied while suppressed: %v", hipsPos)
	}
	spinePos = unrooted[1].Col(3).Vec3()
	if want := (mgl32.Vec3{0, 0, -1}); !spinePos.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("non-root bones must keep their translation, spine = %v want %v", spinePos, want)
	}
}

func TestRootOffsetMatchesRootTranslation(t *testing.T) {
	skel := buildSkeleton(t, skeleton.BoneTable{
		"Hips": {ID: 0, Offset: mgl32.Ident4()},
		"Leg":  {ID: 1, ParentName: "Hips", Offset: mgl32.Ident4()},
	})
	track := clip.Track{}
	for i := 0; i < 8; i++ {
		track.Positions = append(track.Positions, mgl32.Vec3{float32(i), 0.5, float32(-i)})
		track.Rotations = append(track.Rotations, mgl32.QuatRotate(float32(i)*0.3, mgl32.Vec3{0, 1, 0}))
	}
	c, err := clip.NewSkeletal(skel, map[string]clip.Track{"Hips": track}, clip.WithFPS(4))
	if err != nil {
		t.Fatalf("NewSkeletal: %v", err)
	}

	e := NewEvaluator()
	for _, tm := range []float64{0, 0.25, 0.6, 1.0, 1.75, 2.3} {
		p := e.Evaluate(c, skel, tm, true)
		got := p[skel.Root().ID].Col(3).Vec3()
		want := e.RootOffset(c, tm)
		if !got.ApproxEqualThreshold(want, 1e-5) {
			t.Errorf("t=%v: root translation %v, RootOffset %v", tm, got, want)
		}
	}
}

func TestProxyPose(t *testing.T) {
	c, err := clip.NewProxy(
		clip.WithFPS(1),
		clip.WithFrameCount(4),
		clip.WithEndPosition(mgl32.Vec3{0, 0, 10}),
		clip.WithEndRotation(90),
	)
	if err != nil {
		t.Fatalf("NewProxy: %v", err)
	}
	e := NewEvaluator()

	if got := e.RootOffset(c, 2); !got.ApproxEqual(mgl32.Vec3{0, 0, 5}) {
		t.Errorf("RootOffset(2) = %v, want (0,0,5)", got)
	}

	p := e.Evaluate(c, nil, 2, true)
	want := common.YawMatrix(45)
	want[14] = 5
	for i := range p {
		if !p[i].ApproxEqualThreshold(want, 1e-5) {
			t.Fatalf("slot %d = %v, want %v", i, p[i], want)
		}
	}

	p = e.Evaluate(c, nil, 2, false)
	if got := p[0].Col(3).Vec3(); !got.ApproxEqual(mgl32.Vec3{}) {
		t.Errorf("proxy translation applied while suppressed: %v", got)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	skel := buildSkeleton(t, skeleton.BoneTable{
		"Hips": {ID: 0, Offset: mgl32.Translate3D(1, 2, 3)},
		"Arm":  {ID: 1, ParentName: "Hips", Offset: mgl32.Ident4()},
	})
	c, err := clip.NewSkeletal(skel, map[string]clip.Track{
		"Hips": {Positions: []mgl32.Vec3{{1, 0, 0}, {2, 0, 0}}, Rotations: []mgl32.Quat{mgl32.QuatIdent(), mgl32.QuatRotate(1, mgl32.Vec3{1, 0, 0})}},
		"Arm":  {Positions: []mgl32.Vec3{{0, 1, 0}}, Rotations: []mgl32.Quat{mgl32.QuatRotate(0.5, mgl32.Vec3{0, 0, 1})}},
	}, clip.WithFPS(2))
	if err != nil {
		t.Fatalf("NewSkeletal: %v", err)
	}

	e := NewEvaluator()
	first := e.Evaluate(c, skel, 0.5, true)
	first[0] = mgl32.Mat4{}
	second := e.Evaluate(c, skel, 0.5, true)
	third := e.Evaluate(c, skel, 0.5, true)
	if second != third {
		t.Fatalf("repeated evaluation differs")
	}
	if second[0] == (mgl32.Mat4{}) {
		t.Fatalf("mutating a returned pose leaked into the cache")
	}

	uncached := NewEvaluator(WithCaching(false)).Evaluate(c, skel, 0.5, true)
	if uncached != second {
		t.Fatalf("cached and uncached evaluation differ")
	}

	if s := c.CacheStats(); s.Hits != 2 || s.Entries != 1 {
		t.Errorf("cache stats = %+v, want 2 hits and 1 entry", s)
	}
}

func TestDegenerateQuaternion(t *testing.T) {
	skel := buildSkeleton(t, skeleton.BoneTable{
		"Hips": {ID: 0, Offset: mgl32.Ident4()},
	})
	c, err := clip.NewSkeletal(skel, map[string]clip.Track{
		"Hips": {Positions: []mgl32.Vec3{{3, 0, 0}}, Rotations: []mgl32.Quat{{W: 0, V: mgl32.Vec3{0, 0, 0}}}},
	}, clip.WithFPS(1))
	if err != nil {
		t.Fatalf("NewSkeletal: %v", err)
	}
	p := NewEvaluator(WithDegenerateLogging(false)).Evaluate(c, skel, 0, true)
	if !p[0].ApproxEqual(mgl32.Translate3D(3, 0, 0)) {
		t.Errorf("degenerate rotation = %v, want translation only", p[0])
	}
}

func TestEmptyKeyArrays(t *testing.T) {
	skel := buildSkeleton(t, skeleton.BoneTable{
		"Hips":  {ID: 0, Offset: mgl32.Ident4()},
		"Spine": {ID: 1, ParentName: "Hips", Offset: mgl32.Translate3D(0, 1, 0)},
	})
	c, err := clip.NewSkeletal(skel, map[string]clip.Track{
		"Hips":  {},
		"Spine": {Positions: []mgl32.Vec3{{0, 2, 0}}},
	}, clip.WithFPS(1), clip.WithFrameCount(3))
	if err != nil {
		t.Fatalf("NewSkeletal: %v", err)
	}
	p := NewEvaluator().Evaluate(c, skel, 1, true)
	if !p[0].ApproxEqual(mgl32.Ident4()) {
		t.Errorf("root with no keys = %v, want identity", p[0])
	}
	if !p[1].ApproxEqual(mgl32.Translate3D(0, 3, 0)) {
		t.Errorf("spine = %v, want translate (0,3,0)", p[1])
	}
}

func BenchmarkEvaluate(b *testing.B) {
	table := skeleton.BoneTable{"Hips": {ID: 0, Offset: mgl32.Ident4()}}
	tracks := map[string]clip.Track{}
	parent := "Hips"
	for i := 1; i < skeleton.MaxBones; i++ {
		name := "Bone" + string(rune('A'+i%26)) + string(rune('a'+i/26))
		table[name] = skeleton.BoneEntry{ID: i, ParentName: parent, Offset: mgl32.Translate3D(0, -1, 0)}
		tracks[name] = clip.Track{
			Positions: []mgl32.Vec3{{0, 1, 0}},
			Rotations: []mgl32.Quat{mgl32.QuatRotate(0.1, mgl32.Vec3{0, 0, 1})},
		}
		if i%3 == 0 {
			parent = name
		}
	}
	skel := buildSkeleton(b, table)
	c, err := clip.NewSkeletal(skel, tracks, clip.WithFPS(30), clip.WithFrameCount(30))
	if err != nil {
		b.Fatalf("NewSkeletal: %v", err)
	}
	e := NewEvaluator(WithCaching(false))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Evaluate(c, skel, float64(i%30)/30, true)
	}
}
