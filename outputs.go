package nodemat

import (
	"github.com/soypat/nodemat/glbuild"
	"github.com/soypat/nodemat/glbuild/glsllib"
)

type vertexOutput struct {
	inputs [1]Node
	posTyp glbuild.Type
}

// VertexOutput returns the terminal vertex node writing the clip space position.
// A vec3 position is extended with w=1.
func (bld *Builder) VertexOutput(position Node) Node {
	bld.checkType("VertexOutput", "position", position, glbuild.TypeVector3, glbuild.TypeVector4)
	v := &vertexOutput{inputs: [1]Node{position}}
	if position != nil {
		v.posTyp = position.Type()
	}
	return v
}

func (v *vertexOutput) VariablePrefix() string { return "vertexOutput" }
func (v *vertexOutput) Target() Target         { return TargetVertex }
func (v *vertexOutput) Type() glbuild.Type     { return glbuild.TypeUndefined }
func (v *vertexOutput) ForEachInput(userData any, fn func(userData any, input *Node) error) error {
	return forEachInput(v.inputs[:], userData, fn)
}

func (v *vertexOutput) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	state.Shared.Checks.EmitVertex = true
	state.Bodyf("gl_Position = %s;\n", swizzle(inputs[0], v.posTyp, glbuild.TypeVector4))
	return "", nil
}

// FragmentOutputOptions configures [Builder.FragmentOutput].
type FragmentOutputOptions struct {
	// Alpha overrides the alpha channel of the color. Must be a float node.
	Alpha Node
	// ConvertToGamma converts the linear space color to gamma space before writing it.
	ConvertToGamma bool
}

type fragmentOutput struct {
	// inputs holds the color and, if set, the alpha.
	inputs   []Node
	colorTyp glbuild.Type
	gamma    bool
}

// FragmentOutput returns the terminal fragment node writing color to the render target.
// color must be an RGB or RGBA value. RGB colors are written with alpha 1 unless opts.Alpha is set.
func (bld *Builder) FragmentOutput(color Node, opts FragmentOutputOptions) Node {
	bld.checkType("FragmentOutput", "color", color,
		glbuild.TypeColor3, glbuild.TypeColor4, glbuild.TypeVector3, glbuild.TypeVector4)
	f := &fragmentOutput{inputs: []Node{color}, gamma: opts.ConvertToGamma}
	if color != nil {
		f.colorTyp = color.Type()
	}
	if opts.Alpha != nil {
		bld.checkType("FragmentOutput", "alpha", opts.Alpha, glbuild.TypeFloat)
		f.inputs = append(f.inputs, opts.Alpha)
	}
	return f
}

func (f *fragmentOutput) VariablePrefix() string { return "fragmentOutput" }
func (f *fragmentOutput) Target() Target         { return TargetFragment }
func (f *fragmentOutput) Type() glbuild.Type     { return glbuild.TypeUndefined }
func (f *fragmentOutput) ForEachInput(userData any, fn func(userData any, input *Node) error) error {
	return forEachInput(f.inputs, userData, fn)
}

func (f *fragmentOutput) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	state.Shared.Checks.EmitFragment = true
	rgb := swizzle(inputs[0], f.colorTyp, glbuild.TypeVector3)
	alpha := "1.0"
	switch {
	case len(inputs) > 1:
		alpha = inputs[1]
	case f.colorTyp.Components() == 4:
		alpha = inputs[0] + ".a"
	}
	if f.gamma {
		err := state.EmitFunctionFromInclude(glsllib.HelperFunctions, "//"+glsllib.HelperFunctions, nil, "")
		if err != nil {
			return "", err
		}
		rgb = "toGammaSpace(" + rgb + ")"
	}
	state.Bodyf("gl_FragColor = vec4(%s, %s);\n", rgb, alpha)
	if state.Shared.PrePass {
		state.EmitPrePassOutput("color", "glFragData[0] = gl_FragColor;\n")
		_, code := state.PrePassOutputs()
		state.InjectAtEnd("#ifdef PREPASS\n")
		for _, c := range code {
			state.InjectAtEnd(c)
		}
		state.InjectAtEnd("#endif\n")
	}
	return "", nil
}

type alphaTest struct {
	cutoff string
	inputs [1]Node
}

// AlphaTest returns a terminal fragment node discarding fragments whose alpha is below cutoff.
// The test runs after every other statement of the fragment program.
func (bld *Builder) AlphaTest(alpha Node, cutoff float32) Node {
	bld.checkType("AlphaTest", "alpha", alpha, glbuild.TypeFloat)
	bld.checkFinite("AlphaTest", cutoff)
	return &alphaTest{cutoff: string(glbuild.AppendFloat(nil, cutoff)), inputs: [1]Node{alpha}}
}

func (a *alphaTest) VariablePrefix() string { return "alphaTest" }
func (a *alphaTest) Target() Target         { return TargetFragment }
func (a *alphaTest) Type() glbuild.Type     { return glbuild.TypeUndefined }
func (a *alphaTest) ForEachInput(userData any, fn func(userData any, input *Node) error) error {
	return forEachInput(a.inputs[:], userData, fn)
}

func (a *alphaTest) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	state.Shared.Hints.NeedAlphaTesting = true
	state.InjectAtEnd("if (" + inputs[0] + " < " + a.cutoff + ") discard;\n")
	return "", nil
}
