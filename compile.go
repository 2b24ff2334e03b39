package nodemat

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/soypat/nodemat/glbuild"
	"github.com/soypat/nodemat/glbuild/glsllib"
	"github.com/soypat/nodemat/glexpand"
)

var (
	ErrNoFragmentOutput = errors.New("nodemat: graph has no fragment output")
	ErrNoVertexOutput   = errors.New("nodemat: graph has no vertex output")
	ErrNotConnected     = errors.New("nodemat: required inputs not connected")
	ErrCycle            = errors.New("nodemat: graph has a cycle")
	ErrInvalidName      = errors.New("nodemat: input names must only contain letters and underscores")
)

// pipelineNames are identifiers written by the programs themselves or by library code
// that must never be allocated to node outputs.
var pipelineNames = []string{
	"gl_Position", "gl_FragColor", "glFragData", "position", "normal", "uv",
	"positionW", "normalW", "diffuseBase", "vFogInfos", "vFogColor", "morphTargetInfluences",
}

// Config configures [Compile]. Its fields can be decoded from TOML.
type Config struct {
	// EmitComments interleaves comments naming each section and include in the sources.
	EmitComments bool `toml:"emit_comments"`
	// PrePass makes fragment outputs also write prepass outputs. Ignored unless SupportsMRT is set.
	PrePass     bool `toml:"prepass"`
	SupportsMRT bool `toml:"supports_mrt"`
	// AllowEmptyVertexProgram accepts graphs without a vertex output, for instance for
	// post process materials whose vertex program is supplied by the engine.
	AllowEmptyVertexProgram bool `toml:"allow_empty_vertex_program"`
	// MaxSimultaneousLights is the value of [MaxLightsDefine]. Defaults to 4.
	MaxSimultaneousLights int `toml:"max_simultaneous_lights"`
	// MaxSimultaneousMorphTargets is the value of [MaxMorphTargetsDefine]. Defaults to 8.
	MaxSimultaneousMorphTargets int `toml:"max_simultaneous_morph_targets"`
	// Repeat fills the anchors of the compiled program.
	Repeat RepeatParams `toml:"repeat"`
	// Library resolves includes. Defaults to [glsllib.Default].
	Library glbuild.IncludeLibrary `toml:"-"`
}

// Program is the result of compiling a node graph.
type Program struct {
	// Vertex and Fragment are the finalized sources with anchors filled using Config.Repeat.
	// Include directives are left for [Program.Expand] or the engine to resolve.
	Vertex   string
	Fragment string

	Attributes       []string
	VertexUniforms   []string
	FragmentUniforms []string
	Samplers         []string
	Varyings         []string
	Extensions       []string
	// Anchors lists the anchors left by repeatable nodes in build order.
	Anchors []Anchor
	// Defines holds the repeat bounds referenced by include directives and the
	// size of the morph target influence array.
	Defines map[string]string
	Hints   glbuild.Hints

	library   glbuild.IncludeLibrary
	raw       [2]string
	repeats   []repeatEntry
	maxMorphs int
}

// Anchor is a placeholder token left in the body of one of the stages.
type Anchor struct {
	Stage glbuild.Stage
	Token string
}

type repeatEntry struct {
	node   repeatable
	stage  glbuild.Stage
	expr   string
	anchor string
	inputs []string
}

// ReplaceRepeatableContent returns the program sources with anchors filled for p.
// It can be called several times to specialize the program for different meshes.
// Morph target influencers beyond the declared morph target attributes are ignored.
func (prog *Program) ReplaceRepeatableContent(p RepeatParams) (vertex, fragment string) {
	if p.MorphTargetInfluencers > prog.maxMorphs {
		glbuild.Logger().Warn("clamping morph target influencers", "influencers", p.MorphTargetInfluencers, "max", prog.maxMorphs)
		p.MorphTargetInfluencers = prog.maxMorphs
	}
	var contents [2]map[string]string
	for _, r := range prog.repeats {
		if contents[r.stage] == nil {
			contents[r.stage] = make(map[string]string)
		}
		contents[r.stage][r.anchor] = r.node.RepeatableContent(r.expr, r.inputs, p)
	}
	vertex = glexpand.ReplaceAnchors(prog.raw[glbuild.StageVertex], contents[glbuild.StageVertex])
	fragment = glexpand.ReplaceAnchors(prog.raw[glbuild.StageFragment], contents[glbuild.StageFragment])
	return vertex, fragment
}

// MergeDefines returns a copy of [Program.Defines] with defines set over it.
func (prog *Program) MergeDefines(defines map[string]string) map[string]string {
	all := maps.Clone(prog.Defines)
	maps.Copy(all, defines)
	return all
}

// Expand resolves the include directives of the program sources using the library the program was
// compiled with. defines are merged over [Program.Defines] to resolve repeat bounds.
func (prog *Program) Expand(defines map[string]string) (vertex, fragment string, err error) {
	exp := glexpand.Expander{Library: prog.library, Defines: prog.MergeDefines(defines)}
	vertex, err = exp.Expand(prog.Vertex)
	if err != nil {
		return "", "", fmt.Errorf("vertex: %w", err)
	}
	fragment, err = exp.Expand(prog.Fragment)
	if err != nil {
		return "", "", fmt.Errorf("fragment: %w", err)
	}
	return vertex, fragment, nil
}

// Compile builds the vertex and fragment programs computing outputs. Vertex outputs are
// built before fragment outputs. Every node is built at most once per stage; values of
// vertex nodes consumed by the fragment stage are forwarded through varyings.
func Compile(cfg Config, outputs ...Node) (*Program, error) {
	if len(outputs) == 0 {
		return nil, errors.New("nodemat: no output nodes")
	}
	if cfg.MaxSimultaneousLights <= 0 {
		cfg.MaxSimultaneousLights = 4
	}
	if cfg.MaxSimultaneousMorphTargets <= 0 {
		cfg.MaxSimultaneousMorphTargets = 8
	}
	lib := cfg.Library
	if lib == nil {
		lib = glsllib.Default()
	}
	shared := glbuild.NewSharedData(lib)
	shared.EmitComments = cfg.EmitComments
	shared.SupportsMRT = cfg.SupportsMRT
	shared.PrePass = cfg.PrePass && cfg.SupportsMRT
	if cfg.PrePass && !cfg.SupportsMRT {
		glbuild.Logger().Warn("prepass requested without multiple render target support")
	}
	for _, name := range pipelineNames {
		shared.ExcludeVariableName(name)
	}
	c := &compiler{
		comp:     glbuild.NewCompilation(shared),
		built:    make(map[buildKey]string),
		visiting: make(map[buildKey]bool),
	}
	reserved := make(map[Node]bool)
	for _, out := range outputs {
		if out == nil {
			return nil, errors.New("nodemat: nil output node")
		}
		err := c.reserve(out, reserved)
		if err != nil {
			return nil, err
		}
	}

	ordered := slices.Clone(outputs)
	slices.SortStableFunc(ordered, func(a, b Node) int {
		return int(a.Target()) - int(b.Target())
	})
	for _, out := range ordered {
		var stage glbuild.Stage
		switch out.Target() {
		case TargetVertex:
			stage = glbuild.StageVertex
		case TargetFragment:
			stage = glbuild.StageFragment
		default:
			return nil, fmt.Errorf("nodemat: output node %q has no target stage", out.VariablePrefix())
		}
		_, err := c.build(out, stage)
		if err != nil {
			return nil, err
		}
	}

	checks := shared.Checks
	if len(checks.NotConnectedInputs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, strings.Join(checks.NotConnectedInputs, ", "))
	}
	if !checks.EmitFragment {
		return nil, ErrNoFragmentOutput
	}
	if !checks.EmitVertex && !cfg.AllowEmptyVertexProgram {
		return nil, ErrNoVertexOutput
	}

	vert, frag := c.comp.Vertex(), c.comp.Fragment()
	prog := &Program{
		Attributes:       vert.Attributes(),
		VertexUniforms:   vert.Uniforms(),
		FragmentUniforms: frag.Uniforms(),
		Samplers:         append(slices.Clone(vert.Samplers()), frag.Samplers()...),
		Varyings:         shared.Varyings(),
		Defines: map[string]string{
			MaxLightsDefine:           strconv.Itoa(cfg.MaxSimultaneousLights),
			MaxMorphTargetsDefine:     strconv.Itoa(cfg.MaxSimultaneousMorphTargets),
			NumMorphInfluencersDefine: strconv.Itoa(cfg.MaxSimultaneousMorphTargets),
		},
		Hints:     shared.Hints,
		library:   lib,
		raw:       [2]string{vert.Finalize(), frag.Finalize()},
		repeats:   c.repeats,
		maxMorphs: cfg.MaxSimultaneousMorphTargets,
	}
	vext, _ := vert.Extensions()
	fext, _ := frag.Extensions()
	prog.Extensions = append(slices.Clone(vext), fext...)
	for _, r := range c.repeats {
		prog.Anchors = append(prog.Anchors, Anchor{Stage: r.stage, Token: r.anchor})
	}
	prog.Vertex, prog.Fragment = prog.ReplaceRepeatableContent(cfg.Repeat)
	glbuild.Logger().Debug("compiled program", "vertexBytes", len(prog.Vertex), "fragmentBytes", len(prog.Fragment),
		"varyings", len(prog.Varyings), "anchors", len(prog.Anchors))
	return prog, nil
}

type buildKey struct {
	node  Node
	stage glbuild.Stage
}

type compiler struct {
	comp     *glbuild.Compilation
	built    map[buildKey]string
	visiting map[buildKey]bool
	repeats  []repeatEntry
}

// reserve excludes names owned by nodes, such as attribute and uniform names,
// from variable allocation before any code is emitted. Owned names must be in the
// sanitized form allocation counts under, otherwise an allocated name could repeat them.
func (c *compiler) reserve(n Node, seen map[Node]bool) error {
	if n == nil || seen[n] {
		return nil
	}
	seen[n] = true
	if r, ok := n.(interface{ reservedName() string }); ok {
		name := r.reservedName()
		if !isIdentifier(name) {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		c.comp.Shared.ExcludeVariableName(name)
	}
	return n.ForEachInput(seen, func(userData any, input *Node) error {
		return c.reserve(*input, userData.(map[Node]bool))
	})
}

func (c *compiler) build(n Node, stage glbuild.Stage) (string, error) {
	key := buildKey{node: n, stage: stage}
	if expr, ok := c.built[key]; ok {
		return expr, nil
	}
	target := n.Target()
	switch {
	case target == TargetVertex && stage == glbuild.StageFragment:
		expr, err := c.build(n, glbuild.StageVertex)
		if err != nil || expr == "" {
			return "", err
		}
		expr, err = c.forward(n, expr)
		if err != nil {
			return "", err
		}
		c.built[key] = expr
		return expr, nil
	case target == TargetFragment && stage == glbuild.StageVertex:
		return "", fmt.Errorf("nodemat: %q is fragment only and cannot feed the vertex stage", n.VariablePrefix())
	}
	if c.visiting[key] {
		return "", fmt.Errorf("%w: through %q", ErrCycle, n.VariablePrefix())
	}
	c.visiting[key] = true
	defer delete(c.visiting, key)

	shared := c.comp.Shared
	var inputs []string
	connected := true
	err := n.ForEachInput(nil, func(_ any, input *Node) error {
		if *input == nil {
			connected = false
			shared.Checks.NotConnectedInputs = append(shared.Checks.NotConnectedInputs,
				n.VariablePrefix()+"["+strconv.Itoa(len(inputs))+"]")
			inputs = append(inputs, "")
			return nil
		}
		expr, err := c.build(*input, stage)
		if expr == "" {
			connected = false // Unconnected further up the graph.
		}
		inputs = append(inputs, expr)
		return err
	})
	if err != nil {
		return "", err
	} else if !connected {
		c.built[key] = ""
		return "", nil
	}

	state := c.comp.Stage(stage)
	var expr string
	if r, ok := n.(repeatable); ok {
		var anchor string
		expr, anchor, err = r.BuildRepeatable(state, inputs)
		if err == nil {
			c.repeats = append(c.repeats, repeatEntry{node: r, stage: stage, expr: expr, anchor: anchor, inputs: inputs})
		}
	} else {
		expr, err = n.Build(state, inputs)
	}
	if err != nil {
		return "", fmt.Errorf("nodemat: building %q in %s stage: %w", n.VariablePrefix(), stage, err)
	}
	glbuild.Logger().Debug("built node", "node", n.VariablePrefix(), "stage", stage, "expr", expr)
	c.built[key] = expr
	return expr, nil
}

// forward passes the vertex value expr of n to the fragment stage through a varying.
func (c *compiler) forward(n Node, expr string) (string, error) {
	typ := glbuild.GLType(n.Type())
	if typ == "" {
		return "", fmt.Errorf("nodemat: %q has no value to pass to the fragment stage", n.VariablePrefix())
	}
	vert := c.comp.Vertex()
	name := c.comp.Shared.AllocateVariableName("v_" + n.VariablePrefix())
	vert.EmitVarying(name, typ, "", false)
	vert.AppendVaryingTransfer(name + " = " + expr + ";\n")
	return name, nil
}
