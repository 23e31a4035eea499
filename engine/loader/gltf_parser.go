package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
)

// gltfParser reads a glTF or GLB document and decodes float accessors from its buffers.
type gltfParser struct {
	baseDir  string
	document *gltfDocument
	binChunk []byte
}

func newGLTFParser() *gltfParser {
	return &gltfParser{}
}

func (p *gltfParser) parse(path string) error {
	p.baseDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".glb") || (len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic) {
		return p.parseGLB(data)
	}
	return p.parseJSON(data)
}

func (p *gltfParser) parseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	if isGLB {
		return p.parseGLB(data)
	}
	return p.parseJSON(data)
}

func (p *gltfParser) parseJSON(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}
	p.document = &doc
	return nil
}

// parseGLB splits a GLB container into its JSON and BIN chunks.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParser) parseGLB(data []byte) error {
	if len(data) < 12 {
		return errors.New("GLB file too small")
	}
	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return errInvalidGLBVersion
	}

	var jsonData []byte
	for {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read chunk header: %w", err)
		}
		body := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return fmt.Errorf("failed to read chunk data: %w", err)
		}
		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = body
		case gltfGLBChunkBIN:
			p.binChunk = body
		}
	}
	if jsonData == nil {
		return errMissingJSONChunk
	}
	return p.parseJSON(jsonData)
}

func (p *gltfParser) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && p.binChunk != nil:
			buf.Data = p.binChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		case strings.HasPrefix(buf.URI, "data:"):
			data, err := decodeDataURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		default:
			data, err := os.ReadFile(filepath.Join(p.baseDir, buf.URI))
			if err != nil {
				return fmt.Errorf("buffer %d: failed to load %q: %w", i, buf.URI, err)
			}
			buf.Data = data
		}
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// decodeDataURI decodes data:[<mediatype>][;base64],<data>.
func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, errInvalidBufferURI
	}
	header := uri[len("data:"):comma]
	if !strings.Contains(header, "base64") {
		return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
	}
	data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

// readFloats returns the accessor's elements flattened into float32 components.
func (p *gltfParser) readFloats(index int, wantType string, components int) ([]float32, error) {
	doc := p.document
	if doc == nil {
		return nil, errors.New("no document loaded")
	}
	if index < 0 || index >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", index)
	}
	acc := &doc.Accessors[index]
	if acc.Type != wantType || acc.ComponentType != gltfComponentTypeFloat {
		return nil, fmt.Errorf("accessor %d is %s/%d, want %s FLOAT", index, acc.Type, acc.ComponentType, wantType)
	}
	if acc.Sparse != nil {
		return nil, fmt.Errorf("accessor %d: sparse accessors are not supported", index)
	}
	if acc.BufferView == nil || *acc.BufferView >= len(doc.BufferViews) {
		return nil, fmt.Errorf("accessor %d has no bufferView", index)
	}

	bv := &doc.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, fmt.Errorf("bufferView %d references missing buffer %d", *acc.BufferView, bv.Buffer)
	}
	data := doc.Buffers[bv.Buffer].Data

	elemSize := 4 * components
	stride := elemSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	base := bv.ByteOffset + acc.ByteOffset
	if acc.Count > 0 && base+(acc.Count-1)*stride+elemSize > len(data) {
		return nil, fmt.Errorf("accessor %d: %w", index, errBufferSizeMismatch)
	}

	out := make([]float32, acc.Count*components)
	for i := 0; i < acc.Count; i++ {
		off := base + i*stride
		for c := 0; c < components; c++ {
			bits := binary.LittleEndian.Uint32(data[off+4*c:])
			out[i*components+c] = math.Float32frombits(bits)
		}
	}
	return out, nil
}

func (p *gltfParser) readScalars(index int) ([]float32, error) {
	return p.readFloats(index, gltfAccessorTypeScalar, 1)
}

func (p *gltfParser) readVec3s(index int) ([]mgl32.Vec3, error) {
	f, err := p.readFloats(index, gltfAccessorTypeVec3, 3)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Vec3, len(f)/3)
	for i := range out {
		out[i] = mgl32.Vec3{f[3*i], f[3*i+1], f[3*i+2]}
	}
	return out, nil
}

// readQuats converts glTF's x, y, z, w rotation order.
func (p *gltfParser) readQuats(index int) ([]mgl32.Quat, error) {
	f, err := p.readFloats(index, gltfAccessorTypeVec4, 4)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Quat, len(f)/4)
	for i := range out {
		out[i] = mgl32.Quat{W: f[4*i+3], V: mgl32.Vec3{f[4*i], f[4*i+1], f[4*i+2]}}
	}
	return out, nil
}

func (p *gltfParser) readMat4s(index int) ([]mgl32.Mat4, error) {
	f, err := p.readFloats(index, gltfAccessorTypeMat4, 16)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Mat4, len(f)/16)
	for i := range out {
		copy(out[i][:], f[16*i:16*i+16])
	}
	return out, nil
}
