package gpu

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// Entry point names the shader source must expose.
const (
	VertexEntryPoint   = "vertexMain"
	FragmentEntryPoint = "fragmentMain"
)

// ShaderInfo is what the pipeline builder learns from the WGSL source
// before handing it to the device.
type ShaderInfo struct {
	// EntryPoints maps entry point names to their stage.
	EntryPoints map[string]ir.ShaderStage

	// VertexInputs is the number of arguments vertexMain takes.
	VertexInputs int
}

// ReflectShader parses, lowers and validates WGSL source and checks that it
// fits the fixed pipeline: a vertex entry point named vertexMain, a fragment
// entry point named fragmentMain, and no resource bindings (the pipeline
// layout is derived automatically and has no bind groups).
//
// All failures wrap ErrCompile.
func ReflectShader(source string) (*ShaderInfo, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	if len(verrs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrCompile, verrs[0])
	}

	info := &ShaderInfo{EntryPoints: make(map[string]ir.ShaderStage, len(module.EntryPoints))}
	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		info.EntryPoints[ep.Name] = ep.Stage
		if ep.Name == VertexEntryPoint {
			info.VertexInputs = len(ep.Function.Arguments)
		}
	}

	if err := requireEntryPoint(info, VertexEntryPoint, ir.StageVertex, "vertex"); err != nil {
		return nil, err
	}
	if err := requireEntryPoint(info, FragmentEntryPoint, ir.StageFragment, "fragment"); err != nil {
		return nil, err
	}

	for _, gv := range module.GlobalVariables {
		if gv.Binding != nil {
			return nil, fmt.Errorf("%w: resource %q at @group(%d) @binding(%d) has no bind group in the auto layout",
				ErrCompile, gv.Name, gv.Binding.Group, gv.Binding.Binding)
		}
	}
	return info, nil
}

func requireEntryPoint(info *ShaderInfo, name string, stage ir.ShaderStage, stageName string) error {
	got, ok := info.EntryPoints[name]
	if !ok {
		return fmt.Errorf("%w: missing %s entry point %q", ErrCompile, stageName, name)
	}
	if got != stage {
		return fmt.Errorf("%w: entry point %q is not a %s shader", ErrCompile, name, stageName)
	}
	return nil
}
