package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

const (
	// componentsPerVertex is the number of float32 components in one vertex (x, y, z).
	componentsPerVertex = 3

	// VertexStride is the byte size of one vertex: 3 float32 components.
	VertexStride = componentsPerVertex * 4
)

// VertexBuffer is an immutable GPU buffer holding x,y,z float32 vertices.
// Its size is always a non-zero multiple of VertexStride.
type VertexBuffer struct {
	device hal.Device
	buffer hal.Buffer
	size   uint64
}

// ParseVertices parses comma-separated decimal numbers into float32 values
// in source order.
//
// Each comma-separated segment is trimmed and parsed as a 32-bit float.
// Empty segments after the last number (a trailing comma or trailing
// whitespace) are ignored; an empty segment anywhere else is an error.
// Only decimal notation is accepted (no hex floats, no underscores).
// Non-finite values are rejected, and the number of values must be a
// non-zero multiple of three.
func ParseVertices(text string) ([]float32, error) {
	segments := strings.Split(text, ",")

	// Drop empty trailing segments: "1,2,3," and "1,2,3,\n" are fine.
	for len(segments) > 0 && strings.TrimSpace(segments[len(segments)-1]) == "" {
		segments = segments[:len(segments)-1]
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no values", ErrParse)
	}

	values := make([]float32, 0, len(segments))
	for i, seg := range segments {
		tok := strings.TrimSpace(seg)
		if tok == "" {
			return nil, fmt.Errorf("%w: value %d is empty", ErrParse, i)
		}
		if !isDecimal(tok) {
			return nil, fmt.Errorf("%w: value %d %q is not a decimal number", ErrParse, i, tok)
		}
		v, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d %q is not a number", ErrParse, i, tok)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: value %d %q is not finite", ErrParse, i, tok)
		}
		values = append(values, float32(v))
	}

	if len(values)%componentsPerVertex != 0 {
		return nil, fmt.Errorf("%w: %d values is not a whole number of x,y,z vertices",
			ErrParse, len(values))
	}
	return values, nil
}

// isDecimal rejects the Go literal forms strconv accepts beyond plain
// decimal notation: hex mantissas and digit-separating underscores.
func isDecimal(tok string) bool {
	if strings.ContainsRune(tok, '_') {
		return false
	}
	unsigned := strings.TrimLeft(tok, "+-")
	return !strings.HasPrefix(unsigned, "0x") && !strings.HasPrefix(unsigned, "0X")
}

// BuildVertexBuffer parses text with ParseVertices and uploads the values to
// a new vertex buffer of len(values)*4 bytes.
//
// The buffer is created mapped, filled in source order, then unmapped so the
// GPU can read it. Parsing finishes before anything is allocated, so a parse
// error never creates a buffer; a mapping error destroys the buffer before
// returning.
func BuildVertexBuffer(device hal.Device, text string) (*VertexBuffer, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	values, err := ParseVertices(text)
	if err != nil {
		return nil, err
	}
	return NewVertexBuffer(device, values)
}

// NewVertexBuffer uploads already parsed x,y,z values.
func NewVertexBuffer(device hal.Device, values []float32) (*VertexBuffer, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if len(values) == 0 || len(values)%componentsPerVertex != 0 {
		return nil, fmt.Errorf("%w: %d values is not a whole number of x,y,z vertices",
			ErrParse, len(values))
	}

	size := uint64(len(values)) * 4
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label:            "shape_vertices",
		Size:             size,
		Usage:            gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
		MappedAtCreation: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create vertex buffer: %w", err)
	}

	if err := writeMapped(device, buf, values); err != nil {
		device.DestroyBuffer(buf)
		return nil, err
	}

	slogger().Debug("gpu: vertex buffer uploaded",
		"bytes", size,
		"vertices", size/VertexStride)

	return &VertexBuffer{device: device, buffer: buf, size: size}, nil
}

// writeMapped copies values into the mapped range of buf and unmaps it.
func writeMapped(device hal.Device, buf hal.Buffer, values []float32) error {
	size := uint64(len(values)) * 4
	mapping, err := device.MapBuffer(buf, 0, size)
	if err != nil {
		return fmt.Errorf("map vertex buffer: %w", err)
	}
	if mapping.Ptr == nil {
		_ = device.UnmapBuffer(buf)
		return fmt.Errorf("map vertex buffer: %w", hal.ErrInvalidMapRange)
	}

	dst := unsafe.Slice((*byte)(mapping.Ptr), size)
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}

	if err := device.UnmapBuffer(buf); err != nil {
		return fmt.Errorf("unmap vertex buffer: %w", err)
	}
	return nil
}

// Buffer returns the underlying HAL buffer, or nil after Destroy.
func (b *VertexBuffer) Buffer() hal.Buffer { return b.buffer }

// Size returns the buffer size in bytes.
func (b *VertexBuffer) Size() uint64 { return b.size }

// VertexCount returns the number of vertices to draw: Size() / VertexStride.
func (b *VertexBuffer) VertexCount() uint32 {
	return uint32(b.size / VertexStride) //nolint:gosec // vertex count is bounded by max buffer size
}

// Destroy releases the GPU buffer. Safe to call multiple times.
func (b *VertexBuffer) Destroy() {
	if b.buffer == nil {
		return
	}
	b.device.DestroyBuffer(b.buffer)
	b.buffer = nil
}
