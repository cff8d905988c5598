package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Pipeline owns the shader module, the derived pipeline layout and the
// triangle-strip render pipeline built from them. It is immutable and is
// reused by every frame.
type Pipeline struct {
	device hal.Device

	shader   hal.ShaderModule
	layout   hal.PipelineLayout
	pipeline hal.RenderPipeline

	format gputypes.TextureFormat
	info   *ShaderInfo
}

// shapeVertexLayout is the single vertex buffer layout: slot 0, 12-byte
// stride, one float32x3 position at offset 0, shader location 0.
func shapeVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: VertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{
					Format:         gputypes.VertexFormatFloat32x3,
					Offset:         0,
					ShaderLocation: 0,
				},
			},
		},
	}
}

// BuildPipeline compiles shaderSource and assembles the render pipeline that
// draws into colorFormat.
//
// The source is reflected first (see ReflectShader). Shader module or
// pipeline creation errors from the device are returned wrapped in
// ErrCompile with the device message intact. Objects created before a
// failure are destroyed.
func BuildPipeline(device hal.Device, shaderSource string, colorFormat gputypes.TextureFormat) (*Pipeline, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	info, err := ReflectShader(shaderSource)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{device: device, format: colorFormat, info: info}
	if err := p.create(shaderSource); err != nil {
		p.Destroy()
		return nil, err
	}

	slogger().Debug("gpu: render pipeline created",
		"format", colorFormat.String(),
		"topology", gputypes.PrimitiveTopologyTriangleStrip.String(),
		"stride", VertexStride)
	return p, nil
}

func (p *Pipeline) create(source string) error {
	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "shape_shader",
		Source: hal.ShaderSource{WGSL: source},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCompile, err)
	}
	p.shader = shader

	// The shader declares no resources, so the derived layout has no groups.
	layout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "shape_pipe_layout",
	})
	if err != nil {
		return fmt.Errorf("%w: create pipeline layout: %w", ErrCompile, err)
	}
	p.layout = layout

	pipeline, err := p.device.CreateRenderPipeline(p.descriptor())
	if err != nil {
		return fmt.Errorf("%w: create render pipeline: %w", ErrCompile, err)
	}
	p.pipeline = pipeline
	return nil
}

// descriptor returns the fixed render pipeline description.
func (p *Pipeline) descriptor() *hal.RenderPipelineDescriptor {
	return &hal.RenderPipelineDescriptor{
		Label:  "shape_pipeline",
		Layout: p.layout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: VertexEntryPoint,
			Buffers:    shapeVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: FragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    p.format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
}

// RenderPipeline returns the HAL pipeline, or nil after Destroy.
func (p *Pipeline) RenderPipeline() hal.RenderPipeline { return p.pipeline }

// Format returns the color target format the pipeline was built for.
func (p *Pipeline) Format() gputypes.TextureFormat { return p.format }

// ShaderInfo returns the reflection data gathered while building.
func (p *Pipeline) ShaderInfo() *ShaderInfo { return p.info }

// Destroy releases pipeline resources in reverse creation order.
// Safe to call multiple times.
func (p *Pipeline) Destroy() {
	if p.device == nil {
		return
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.layout != nil {
		p.device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
