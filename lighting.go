package nodemat

import (
	"errors"
	"regexp"

	"github.com/soypat/nodemat/glbuild"
	"github.com/soypat/nodemat/glbuild/glsllib"
)

// MaxLightsDefine is the define bounding the repeated light includes.
// [Program.Defines] holds its value.
const MaxLightsDefine = "maxSimultaneousLights"

type lights struct {
	// inputs are the world position and world normal.
	inputs [2]Node
	posTyp glbuild.Type
	nrmTyp glbuild.Type
}

// Lights returns a node accumulating the diffuse contribution of point lights at the
// world space position with world space normal. Light i contributes only when the
// LIGHT<i> define is set, for i below [MaxLightsDefine]. Only one Lights node may be used per graph.
func (bld *Builder) Lights(worldPosition, worldNormal Node) Node {
	bld.checkType("Lights", "worldPosition", worldPosition, glbuild.TypeVector3, glbuild.TypeVector4)
	bld.checkType("Lights", "worldNormal", worldNormal, glbuild.TypeVector3, glbuild.TypeVector4)
	l := &lights{inputs: [2]Node{worldPosition, worldNormal}}
	if worldPosition != nil {
		l.posTyp = worldPosition.Type()
	}
	if worldNormal != nil {
		l.nrmTyp = worldNormal.Type()
	}
	return l
}

func (l *lights) VariablePrefix() string { return "diffuseBase" }
func (l *lights) Target() Target         { return TargetFragment }
func (l *lights) Type() glbuild.Type     { return glbuild.TypeColor3 }
func (l *lights) ForEachInput(userData any, fn func(userData any, input *Node) error) error {
	return forEachInput(l.inputs[:], userData, fn)
}

var errManyLights = errors.New("only one Lights node supported per graph")

func (l *lights) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	if state.IncrementCounter("lights") > 0 {
		return "", errManyLights
	}
	repeat := &glbuild.IncludeOptions{RepeatKey: MaxLightsDefine}
	err := state.EmitFunctionFromInclude(glsllib.LightFunctions, "//"+glsllib.LightFunctions, nil, "")
	if err != nil {
		return "", err
	}
	err = state.EmitFunctionFromInclude(glsllib.LightFragmentDeclaration, "//"+glsllib.LightFragmentDeclaration, repeat, "")
	if err != nil {
		return "", err
	}
	if state.Shared.RegisterTemporary("positionW") {
		state.Bodyf("vec3 positionW = %s;\n", swizzle(inputs[0], l.posTyp, glbuild.TypeVector3))
	}
	if state.Shared.RegisterTemporary("normalW") {
		state.Bodyf("vec3 normalW = normalize(%s);\n", swizzle(inputs[1], l.nrmTyp, glbuild.TypeVector3))
	}
	if state.Shared.RegisterTemporary("diffuseBase") {
		state.AppendBody("vec3 diffuseBase = vec3(0.0);\n")
	}
	code, err := state.EmitCodeFromInclude(glsllib.LightFragment, "", repeat)
	if err != nil {
		return "", err
	}
	state.AppendBody(code)
	return "diffuseBase", nil
}

var fogSignature = regexp.MustCompile(`float CalcFogFactor\(\)`)

type fog struct {
	// inputs are the color and the view space position.
	inputs [2]Node
	posTyp glbuild.Type
}

// Fog returns a node blending color with the fog color according to the distance
// to the camera given by viewPosition. Fog parameters are read from the vFogInfos
// and vFogColor uniforms: mode, start, end and density, in that order.
func (bld *Builder) Fog(color, viewPosition Node) Node {
	bld.checkType("Fog", "color", color, glbuild.TypeColor3, glbuild.TypeVector3)
	bld.checkType("Fog", "viewPosition", viewPosition, glbuild.TypeVector3, glbuild.TypeVector4)
	f := &fog{inputs: [2]Node{color, viewPosition}}
	if viewPosition != nil {
		f.posTyp = viewPosition.Type()
	}
	return f
}

func (f *fog) VariablePrefix() string { return "fogColor" }
func (f *fog) Target() Target         { return TargetFragment }
func (f *fog) Type() glbuild.Type     { return glbuild.TypeColor3 }
func (f *fog) ForEachInput(userData any, fn func(userData any, input *Node) error) error {
	return forEachInput(f.inputs[:], userData, fn)
}

func (f *fog) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	state.EmitUniform("vFogInfos", "vec4", "", false)
	state.EmitUniform("vFogColor", "vec3", "", false)
	err := state.EmitFunctionFromInclude(glsllib.FogFragmentDeclaration, "//"+glsllib.FogFragmentDeclaration, &glbuild.IncludeOptions{
		RemoveUniforms: true,
		RemoveVaryings: true,
		RemoveIfDef:    true,
		Replace: []glbuild.Replacement{
			{Search: fogSignature, Replace: "float CalcFogFactor(vec3 vFogDistance)"},
		},
	}, "")
	if err != nil {
		return "", err
	}
	factor := state.Shared.AllocateVariableName("fogFactor")
	name := state.Shared.AllocateVariableName("fogColor")
	declare(state, "float", factor, "CalcFogFactor("+swizzle(inputs[1], f.posTyp, glbuild.TypeVector3)+")")
	state.Bodyf("vec3 %s = %s * %s + (1.0 - %s) * vFogColor;\n", name, factor, inputs[0], factor)
	return name, nil
}
