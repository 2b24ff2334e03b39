package nodemat_test

import (
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/nodemat"
	"github.com/soypat/nodemat/glbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	prePassBlock = "#if defined(PREPASS)\r\n#extension GL_EXT_draw_buffers : require\r\n" +
		"layout(location = 0) out highp vec4 glFragData[SCENE_MRT_COUNT];\r\nhighp vec4 gl_FragColor;\r\n#endif\r\n"
	precisionBlock = "#if defined(WEBGL2) || defined(WEBGPU)\nprecision highp sampler2DArray;\n#endif\n" +
		"precision highp float;\n"
)

func TestCompileConstantFragment(t *testing.T) {
	var bld nodemat.Builder
	out := bld.FragmentOutput(bld.Color4Constant(ms3.Vec{X: 1}, 1), nodemat.FragmentOutputOptions{})
	require.NoError(t, bld.Err())
	prog, err := nodemat.Compile(nodemat.Config{AllowEmptyVertexProgram: true}, out)
	require.NoError(t, err)

	want := prePassBlock + precisionBlock +
		"\n\n" +
		"\nconst vec4 color = vec4(1.0,0.0,0.0,1.0);\n\n" +
		"\nvoid main(void) {\n" +
		"gl_FragColor = vec4(color.xyz, color.a);\n" +
		"\n}"
	assert.Equal(t, want, prog.Fragment)
	assert.Equal(t, 1, strings.Count(prog.Fragment, "void main(void)"))
	assert.Empty(t, prog.Attributes)
	assert.Empty(t, prog.Varyings)
	assert.Equal(t, precisionBlock+"\n\n\nvoid main(void) {\n\n}", prog.Vertex)
}

func TestCompileMissingOutputs(t *testing.T) {
	var bld nodemat.Builder
	frag := bld.FragmentOutput(bld.Color3Constant(ms3.Vec{X: 1, Y: 1, Z: 1}), nodemat.FragmentOutputOptions{})
	vert := bld.VertexOutput(bld.Position())

	_, err := nodemat.Compile(nodemat.Config{}, frag)
	assert.ErrorIs(t, err, nodemat.ErrNoVertexOutput)
	_, err = nodemat.Compile(nodemat.Config{}, vert)
	assert.ErrorIs(t, err, nodemat.ErrNoFragmentOutput)
	_, err = nodemat.Compile(nodemat.Config{})
	assert.Error(t, err)
	_, err = nodemat.Compile(nodemat.Config{}, bld.FloatConstant(1))
	assert.Error(t, err, "neutral nodes are not outputs")
}

func TestCompileVaryingForwarding(t *testing.T) {
	var bld nodemat.Builder
	pos := bld.Position()
	vout := bld.VertexOutput(bld.Transform(pos, bld.WorldViewProjection()))
	fout := bld.FragmentOutput(bld.Texture("diffuseSampler", bld.UV()), nodemat.FragmentOutputOptions{})
	require.NoError(t, bld.Err())

	// Fragment output passed first: vertex outputs are still built first.
	prog, err := nodemat.Compile(nodemat.Config{}, fout, vout)
	require.NoError(t, err)

	assert.Equal(t, []string{"position", "uv"}, prog.Attributes)
	assert.Equal(t, []string{"v_uv"}, prog.Varyings)
	assert.Equal(t, []string{"worldViewProjection"}, prog.VertexUniforms)
	assert.Empty(t, prog.FragmentUniforms)
	assert.Equal(t, []string{"diffuseSampler"}, prog.Samplers)
	assert.True(t, prog.Hints.NeedWorldViewProjection)

	vs, fs := prog.Vertex, prog.Fragment
	assert.Contains(t, vs, "attribute vec3 position;\nattribute vec2 uv;\n")
	assert.Contains(t, vs, "vec4 output0 = worldViewProjection * vec4(position, 1.0);\ngl_Position = output0;\n")
	assert.Contains(t, vs, "varying vec2 v_uv;")
	assert.Less(t, strings.Index(vs, "gl_Position"), strings.Index(vs, "v_uv = uv;"))
	assert.Contains(t, fs, "varying vec2 v_uv;")
	assert.Contains(t, fs, "uniform sampler2D diffuseSampler;")
	assert.Contains(t, fs, "vec4 texture0 = texture2D(diffuseSampler, v_uv);\ngl_FragColor = vec4(texture0.xyz, texture0.a);\n")
	assert.NotContains(t, fs, "attribute")
	assert.NotContains(t, fs, "v_uv = uv;")
}

func TestCompileNodeOncePerStage(t *testing.T) {
	var bld nodemat.Builder
	sum := bld.Add(bld.Vec3Constant(ms3.Vec{X: 1, Y: 2, Z: 3}), bld.FloatConstant(0.5))
	prog, err := nodemat.Compile(nodemat.Config{}, bld.VertexOutput(sum), bld.FragmentOutput(sum, nodemat.FragmentOutputOptions{}))
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(prog.Vertex, "vec3 output0 ="))
	assert.Contains(t, prog.Vertex, "const vec3 constant = vec3(1.0,2.0,3.0);\nconst float constant1 = 0.5;\n")
	assert.Contains(t, prog.Vertex, "vec3 output0 = constant + constant1;\ngl_Position = vec4(output0, 1.0);\n")
	// Neutral nodes are rebuilt in the fragment stage with their own names.
	assert.Contains(t, prog.Fragment, "vec3 output1 = constant2 + constant3;\ngl_FragColor = vec4(output1, 1.0);\n")
	assert.Empty(t, prog.Varyings)
}

func TestBuilderErrors(t *testing.T) {
	var bld nodemat.Builder
	assert.Panics(t, func() { bld.Add(bld.FloatConstant(1), bld.WorldViewProjection()) })
	assert.Panics(t, func() { bld.VertexOutput(nil) })
	assert.Panics(t, func() { bld.Texture("tex", bld.FloatConstant(1)) })

	acc := nodemat.Builder{NoGraphPanic: true}
	acc.FloatConstant(math32.NaN())
	acc.Scale(acc.Normal(), 2)
	require.Error(t, acc.Err())
	assert.Contains(t, acc.Err().Error(), "non-finite")
}

func TestCompileNotConnected(t *testing.T) {
	bld := nodemat.Builder{NoGraphPanic: true}
	out := bld.FragmentOutput(nil, nodemat.FragmentOutputOptions{})
	require.Error(t, bld.Err())
	_, err := nodemat.Compile(nodemat.Config{AllowEmptyVertexProgram: true}, out)
	assert.ErrorIs(t, err, nodemat.ErrNotConnected)
	assert.Contains(t, err.Error(), "fragmentOutput[0]")

	// Unconnected vertex node consumed by the fragment stage.
	morphed := bld.MorphTargets(nil)
	_, err = nodemat.Compile(nodemat.Config{},
		bld.VertexOutput(bld.Transform(bld.Position(), bld.WorldViewProjection())),
		bld.FragmentOutput(morphed, nodemat.FragmentOutputOptions{}),
	)
	assert.ErrorIs(t, err, nodemat.ErrNotConnected)
	assert.Contains(t, err.Error(), "positionUpdated[0]")
}

// loopNode feeds itself.
type loopNode struct{ in nodemat.Node }

func (l *loopNode) VariablePrefix() string { return "loop" }
func (l *loopNode) Target() nodemat.Target { return nodemat.TargetNeutral }
func (l *loopNode) Type() glbuild.Type     { return glbuild.TypeVector4 }
func (l *loopNode) ForEachInput(userData any, fn func(userData any, input *nodemat.Node) error) error {
	return fn(userData, &l.in)
}
func (l *loopNode) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	return inputs[0], nil
}

func TestCompileCycle(t *testing.T) {
	var bld nodemat.Builder
	loop := &loopNode{}
	loop.in = loop
	_, err := nodemat.Compile(nodemat.Config{AllowEmptyVertexProgram: true}, bld.FragmentOutput(loop, nodemat.FragmentOutputOptions{}))
	assert.ErrorIs(t, err, nodemat.ErrCycle)
}

func TestCompileLights(t *testing.T) {
	var bld nodemat.Builder
	pos, nrm := bld.Position(), bld.Normal()
	diffuse := bld.Lights(pos, nrm)
	vout := bld.VertexOutput(bld.Transform(pos, bld.WorldViewProjection()))
	fout := bld.FragmentOutput(diffuse, nodemat.FragmentOutputOptions{ConvertToGamma: true})
	prog, err := nodemat.Compile(nodemat.Config{MaxSimultaneousLights: 2}, vout, fout)
	require.NoError(t, err)

	fs := prog.Fragment
	assert.Equal(t, []string{"v_position", "v_normal"}, prog.Varyings)
	assert.Contains(t, fs, "#include<lightFunctions>\n")
	assert.Contains(t, fs, "#include<lightFragmentDeclaration>[0..maxSimultaneousLights]\n")
	assert.Contains(t, fs, "#include<helperFunctions>\n")
	assert.Contains(t, fs, "vec3 positionW = v_position;\nvec3 normalW = normalize(v_normal);\nvec3 diffuseBase = vec3(0.0);\n"+
		"#include<lightFragment>[0..maxSimultaneousLights]\ngl_FragColor = vec4(toGammaSpace(diffuseBase), 1.0);\n")
	assert.Equal(t, "2", prog.Defines[nodemat.MaxLightsDefine])

	_, efs, err := prog.Expand(nil)
	require.NoError(t, err)
	assert.NotContains(t, efs, "#include")
	assert.Contains(t, efs, "uniform vec4 vLightData1;")
	assert.Contains(t, efs, "computePointLighting(positionW, normalW, vLightData1, vLightDiffuse1)")
	assert.NotContains(t, efs, "vLightData2")
	assert.Contains(t, efs, "vec3 toGammaSpace(vec3 color)")

	_, efs, err = prog.Expand(map[string]string{nodemat.MaxLightsDefine: "3"})
	require.NoError(t, err)
	assert.Contains(t, efs, "vLightData2")
}

func TestCompileSingleLights(t *testing.T) {
	var bld nodemat.Builder
	pos, nrm := bld.Position(), bld.Normal()
	sum := bld.Add(bld.Lights(pos, nrm), bld.Lights(pos, nrm))
	_, err := nodemat.Compile(nodemat.Config{}, bld.VertexOutput(pos), bld.FragmentOutput(sum, nodemat.FragmentOutputOptions{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only one Lights")
}

func TestCompileFog(t *testing.T) {
	var bld nodemat.Builder
	pos := bld.Position()
	view := bld.Transform(pos, bld.Uniform("worldView", glbuild.TypeMatrix))
	fogged := bld.Fog(bld.Color3Constant(ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}), view)
	prog, err := nodemat.Compile(nodemat.Config{},
		bld.VertexOutput(bld.Transform(pos, bld.WorldViewProjection())),
		bld.FragmentOutput(fogged, nodemat.FragmentOutputOptions{}))
	require.NoError(t, err)

	fs := prog.Fragment
	assert.Contains(t, fs, "float CalcFogFactor(vec3 vFogDistance)")
	assert.Equal(t, 1, strings.Count(fs, "uniform vec4 vFogInfos;"))
	assert.NotContains(t, fs, "#ifdef FOG")
	assert.NotContains(t, fs, "varying vec3 vFogDistance;")
	assert.Contains(t, fs, "vec4 output1 = worldView * vec4(v_position, 1.0);\n")
	assert.Contains(t, fs, "float fogFactor = CalcFogFactor(output1.xyz);\n"+
		"vec3 fogColor = fogFactor * color + (1.0 - fogFactor) * vFogColor;\n")
	assert.Equal(t, []string{"worldView", "vFogInfos", "vFogColor"}, prog.FragmentUniforms)
}

func TestMorphTargetsAnchor(t *testing.T) {
	var bld nodemat.Builder
	morphed := bld.MorphTargets(bld.Position())
	vout := bld.VertexOutput(bld.Transform(morphed, bld.WorldViewProjection()))
	fout := bld.FragmentOutput(bld.Color3Constant(ms3.Vec{X: 1}), nodemat.FragmentOutputOptions{})
	prog, err := nodemat.Compile(nodemat.Config{Repeat: nodemat.RepeatParams{MorphTargetInfluencers: 2}}, vout, fout)
	require.NoError(t, err)

	require.Len(t, prog.Anchors, 1)
	assert.Equal(t, glbuild.StageVertex, prog.Anchors[0].Stage)
	assert.Equal(t, "###___ANCHOR0___###", prog.Anchors[0].Token)
	vs := prog.Vertex
	assert.NotContains(t, vs, "###___ANCHOR")
	assert.Contains(t, vs, "#ifdef MORPHTARGETS\nuniform float morphTargetInfluences[NUM_MORPH_INFLUENCERS];\n#endif\n")
	assert.Contains(t, vs, "#include<morphTargetsVertexDeclaration>[0..maxSimultaneousMorphTargets]\n")
	assert.Contains(t, vs, "vec3 positionUpdated = position;\n#ifdef MORPHTARGETS\n"+
		"positionUpdated += (position0 - position) * morphTargetInfluences[0];\n#endif\n")
	assert.Contains(t, vs, "positionUpdated += (position1 - position) * morphTargetInfluences[1];")
	assert.Contains(t, vs, "vec4 output0 = worldViewProjection * vec4(positionUpdated, 1.0);")

	bare, _ := prog.ReplaceRepeatableContent(nodemat.RepeatParams{})
	assert.NotContains(t, bare, "positionUpdated +=")
	assert.NotContains(t, bare, "###___ANCHOR")
}

func TestMorphTargetsBounds(t *testing.T) {
	var bld nodemat.Builder
	morphed := bld.MorphTargets(bld.Position())
	vout := bld.VertexOutput(bld.Transform(morphed, bld.WorldViewProjection()))
	fout := bld.FragmentOutput(bld.Color3Constant(ms3.Vec{X: 1}), nodemat.FragmentOutputOptions{})
	prog, err := nodemat.Compile(nodemat.Config{
		MaxSimultaneousMorphTargets: 2,
		Repeat:                      nodemat.RepeatParams{MorphTargetInfluencers: 4},
	}, vout, fout)
	require.NoError(t, err)
	assert.Equal(t, "2", prog.Defines[nodemat.NumMorphInfluencersDefine])
	assert.Equal(t, "2", prog.Defines[nodemat.MaxMorphTargetsDefine])

	vs, _, err := prog.Expand(nil)
	require.NoError(t, err)
	assert.Contains(t, vs, "attribute vec3 position1;")
	assert.NotContains(t, vs, "position2")
	assert.NotContains(t, vs, "position3")
	assert.Contains(t, vs, "morphTargetInfluences[1]")

	merged := prog.MergeDefines(map[string]string{"MORPHTARGETS": ""})
	assert.Equal(t, "", merged["MORPHTARGETS"])
	assert.Equal(t, "2", merged[nodemat.NumMorphInfluencersDefine])
	_, hasMorph := prog.Defines["MORPHTARGETS"]
	assert.False(t, hasMorph, "merging must not modify the program defines")
}

func TestCompileReservedNames(t *testing.T) {
	// Input names with digits would collide with allocated names such as output1.
	bld := nodemat.Builder{NoGraphPanic: true}
	u := bld.Uniform("output1", glbuild.TypeVector3)
	require.Error(t, bld.Err())
	_, err := nodemat.Compile(nodemat.Config{AllowEmptyVertexProgram: true},
		bld.FragmentOutput(bld.Add(bld.Add(u, u), u), nodemat.FragmentOutputOptions{}))
	assert.ErrorIs(t, err, nodemat.ErrInvalidName)

	var strict nodemat.Builder
	assert.Panics(t, func() { strict.Attribute("uv2", glbuild.TypeVector2) })
	assert.Panics(t, func() { strict.Texture("tex0", strict.UV()) })

	u = strict.Uniform("output", glbuild.TypeVector3)
	prog, err := nodemat.Compile(nodemat.Config{AllowEmptyVertexProgram: true},
		strict.FragmentOutput(strict.Add(strict.Add(u, u), u), nodemat.FragmentOutputOptions{}))
	require.NoError(t, err)
	fs := prog.Fragment
	assert.Contains(t, fs, "uniform vec3 output;")
	assert.NotContains(t, fs, "vec3 output =")
	assert.Contains(t, fs, "vec3 output1 = output + output;")
	assert.Contains(t, fs, "vec3 output2 = output1 + output;")
}

func TestAlphaTestAndPrePass(t *testing.T) {
	var bld nodemat.Builder
	alpha := bld.FloatConstant(0.25)
	fout := bld.FragmentOutput(bld.Color3Constant(ms3.Vec{Z: 1}), nodemat.FragmentOutputOptions{Alpha: alpha})
	test := bld.AlphaTest(alpha, 0.4)
	cfg := nodemat.Config{PrePass: true, SupportsMRT: true, AllowEmptyVertexProgram: true}
	prog, err := nodemat.Compile(cfg, fout, test)
	require.NoError(t, err)

	fs := prog.Fragment
	assert.True(t, prog.Hints.NeedAlphaTesting)
	assert.Contains(t, fs, "gl_FragColor = vec4(color, constant);\n")
	iColor := strings.Index(fs, "gl_FragColor = vec4(")
	iPrePass := strings.Index(fs, "#ifdef PREPASS\nglFragData[0] = gl_FragColor;\n#endif\n")
	iDiscard := strings.Index(fs, "if (constant < 0.4) discard;\n")
	require.Positive(t, iPrePass)
	assert.Less(t, iColor, iPrePass)
	assert.Less(t, iPrePass, iDiscard)
	assert.True(t, strings.HasSuffix(fs, "discard;\n\n}"))

	// Prepass outputs need multiple render targets.
	cfg.SupportsMRT = false
	prog, err = nodemat.Compile(cfg, fout, test)
	require.NoError(t, err)
	assert.NotContains(t, prog.Fragment, "glFragData[0] = gl_FragColor;\n#endif")
}

func TestCompileComments(t *testing.T) {
	var bld nodemat.Builder
	tex := bld.Texture("albedo", bld.Vec2Constant(ms2.Vec{X: 0.5, Y: 0.5}))
	out := bld.FragmentOutput(bld.Scale(tex, 2), nodemat.FragmentOutputOptions{ConvertToGamma: true})
	prog, err := nodemat.Compile(nodemat.Config{EmitComments: true, AllowEmptyVertexProgram: true}, out)
	require.NoError(t, err)
	fs := prog.Fragment
	assert.Contains(t, fs, "//helperFunctions\n#include<helperFunctions>\n")
	assert.Contains(t, fs, "//Samplers\nuniform sampler2D albedo;\n")
	assert.Contains(t, fs, "//Entry point\nvoid main(void) {\n")
	assert.Contains(t, fs, "vec4 scaled = texture0 * 2.0;\n")
}

func TestSwizzle(t *testing.T) {
	var bld nodemat.Builder
	tex := bld.Texture("albedo", bld.UV())
	rgb := bld.Swizzle(tex, "rgb")
	assert.Equal(t, glbuild.TypeColor3, rgb.Type())
	assert.Equal(t, glbuild.TypeFloat, bld.Swizzle(tex, "a").Type())
	assert.Equal(t, glbuild.TypeVector2, bld.Swizzle(bld.Position(), "xz").Type())
	assert.Panics(t, func() { bld.Swizzle(bld.UV(), "xyz") })
	assert.Panics(t, func() { bld.Swizzle(bld.FloatConstant(1), "x") })
	assert.Panics(t, func() { bld.Swizzle(tex, "rgbar") })

	out := bld.FragmentOutput(bld.Multiply(rgb, bld.Swizzle(bld.Normal(), "xyz")), nodemat.FragmentOutputOptions{
		Alpha: bld.Swizzle(tex, "a"),
	})
	prog, err := nodemat.Compile(nodemat.Config{AllowEmptyVertexProgram: true}, out)
	require.NoError(t, err)
	assert.Contains(t, prog.Fragment, "vec3 output0 = texture0.rgb * v_normal.xyz;\ngl_FragColor = vec4(output0, texture0.a);\n")
}
