// Package gpu holds the WGSL escape-time kernel and its SPIR-V compilation.
//
// The kernel evaluates one tile per dispatch with one invocation per pixel,
// writing the same counts as the CPU evaluator (in float32).
package gpu

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/fractal/internal/parallel"
	"github.com/gogpu/naga"
)

//go:embed shaders/escape.wgsl
var escapeShaderWGSL string

// WorkgroupSize is the kernel's workgroup edge length in invocations.
const WorkgroupSize = 8

// ParamsSize is the byte size of the uniform block.
const ParamsSize = 32

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic = 0x07230203

// ErrInvalidSPIRV is returned when compiled output is not a SPIR-V module.
var ErrInvalidSPIRV = errors.New("gpu: invalid SPIR-V output")

// Source returns the WGSL source of the escape kernel.
func Source() string {
	return escapeShaderWGSL
}

// Params is the kernel's uniform block for one tile.
type Params struct {
	XMin, YMin float32
	Dx, Dy     float32
	Width      uint32
	Height     uint32
	MaxIter    uint32
}

// TileParams returns the uniforms that evaluate t.
// The plane origin is moved to the tile's first pixel.
func TileParams(t *parallel.Tile) Params {
	x0, y0 := t.Point(t.WPMin, t.HPMin)
	return Params{
		XMin:    float32(x0),
		YMin:    float32(y0),
		Dx:      float32(t.Dx),
		Dy:      float32(t.Dy),
		Width:   uint32(t.Width()),         //nolint:gosec // positive
		Height:  uint32(t.Height()),        //nolint:gosec // positive
		MaxIter: uint32(max(t.MaxIter, 0)), //nolint:gosec // clamped
	}
}

// Bytes encodes p in the std140 layout of the uniform block.
func (p Params) Bytes() []byte {
	buf := make([]byte, 0, ParamsSize)
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(p.XMin))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(p.YMin))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(p.Dx))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(p.Dy))
	buf = binary.LittleEndian.AppendUint32(buf, p.Width)
	buf = binary.LittleEndian.AppendUint32(buf, p.Height)
	buf = binary.LittleEndian.AppendUint32(buf, p.MaxIter)
	buf = binary.LittleEndian.AppendUint32(buf, 0) // pad
	return buf
}

// Workgroups returns the dispatch size covering p.Width x p.Height pixels.
func (p Params) Workgroups() (x, y uint32) {
	return (p.Width + WorkgroupSize - 1) / WorkgroupSize,
		(p.Height + WorkgroupSize - 1) / WorkgroupSize
}

// OutputSize returns the byte size of the counts storage buffer.
func (p Params) OutputSize() int {
	return int(p.Width) * int(p.Height) * 4
}

// CompileBytes compiles the kernel to a SPIR-V binary.
func CompileBytes() ([]byte, error) {
	spirv, err := naga.Compile(escapeShaderWGSL)
	if err != nil {
		return nil, fmt.Errorf("gpu: compile escape kernel: %w", err)
	}
	if len(spirv) < 4 || len(spirv)%4 != 0 || binary.LittleEndian.Uint32(spirv) != SPIRVMagic {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSPIRV, len(spirv))
	}
	return spirv, nil
}

// Compile compiles the kernel to SPIR-V words.
func Compile() ([]uint32, error) {
	spirv, err := CompileBytes()
	if err != nil {
		return nil, err
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	return words, nil
}
