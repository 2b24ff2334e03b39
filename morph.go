package nodemat

import (
	"strconv"

	"github.com/soypat/nodemat/glbuild"
	"github.com/soypat/nodemat/glbuild/glsllib"
)

const (
	// MaxMorphTargetsDefine is the define bounding the repeated morph target attribute declarations.
	MaxMorphTargetsDefine = "maxSimultaneousMorphTargets"
	// NumMorphInfluencersDefine sizes the morphTargetInfluences uniform array.
	NumMorphInfluencersDefine = "NUM_MORPH_INFLUENCERS"
)

// RepeatParams are the mesh dependent parameters used to fill anchors left in the
// sources by repeatable nodes. See [Program.ReplaceRepeatableContent].
type RepeatParams struct {
	// MorphTargetInfluencers is the number of morph targets influencing the mesh.
	// It is clamped to Config.MaxSimultaneousMorphTargets.
	MorphTargetInfluencers int `toml:"morph_target_influencers"`
}

// repeatable nodes leave an anchor in the stage body that is filled once the
// mesh dependent parameters are known.
type repeatable interface {
	Node
	// BuildRepeatable is like Build but also returns the anchor left in the body.
	BuildRepeatable(state *glbuild.BuildState, inputs []string) (expr, anchor string, err error)
	// RepeatableContent returns the code replacing the anchor. expr and inputs are the
	// values used and returned by BuildRepeatable.
	RepeatableContent(expr string, inputs []string, p RepeatParams) string
}

type morphTargets struct {
	inputs [1]Node
}

// MorphTargets returns a vertex node blending position with the positions of the mesh's
// morph targets, weighted by the morphTargetInfluences uniform. Blending is only active
// when the MORPHTARGETS define is set.
func (bld *Builder) MorphTargets(position Node) Node {
	bld.checkType("MorphTargets", "position", position, glbuild.TypeVector3)
	return &morphTargets{inputs: [1]Node{position}}
}

func (m *morphTargets) VariablePrefix() string { return "positionUpdated" }
func (m *morphTargets) Target() Target         { return TargetVertex }
func (m *morphTargets) Type() glbuild.Type     { return glbuild.TypeVector3 }
func (m *morphTargets) ForEachInput(userData any, fn func(userData any, input *Node) error) error {
	return forEachInput(m.inputs[:], userData, fn)
}

func (m *morphTargets) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	expr, _, err := m.BuildRepeatable(state, inputs)
	return expr, err
}

func (m *morphTargets) BuildRepeatable(state *glbuild.BuildState, inputs []string) (expr, anchor string, err error) {
	state.EmitUniform("morphTargetInfluences["+NumMorphInfluencersDefine+"]", "float", "MORPHTARGETS", false)
	err = state.EmitFunctionFromInclude(glsllib.MorphTargetsVertexDeclaration, "//"+glsllib.MorphTargetsVertexDeclaration,
		&glbuild.IncludeOptions{RepeatKey: MaxMorphTargetsDefine}, "")
	if err != nil {
		return "", "", err
	}
	expr = state.Shared.AllocateVariableName("positionUpdated")
	anchor = state.AllocateAnchor()
	state.Bodyf("vec3 %s = %s;\n%s\n", expr, inputs[0], anchor)
	return expr, anchor, nil
}

func (m *morphTargets) RepeatableContent(expr string, inputs []string, p RepeatParams) string {
	var b []byte
	for i := 0; i < p.MorphTargetInfluencers; i++ {
		idx := strconv.Itoa(i)
		b = append(b, "#ifdef MORPHTARGETS\n"...)
		b = append(b, expr+" += (position"+idx+" - "+inputs[0]+") * morphTargetInfluences["+idx+"];\n"...)
		b = append(b, "#endif\n"...)
	}
	return string(b)
}
