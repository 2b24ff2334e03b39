package nodemat

import (
	"fmt"
	"strings"

	"github.com/soypat/nodemat/glbuild"
)

type binaryOp struct {
	op     byte
	prefix string
	typ    glbuild.Type
	inputs [2]Node
}

// Add returns a node with the component-wise sum of a and b.
// One of the inputs may be a float, in which case it is added to every component of the other.
func (bld *Builder) Add(a, b Node) Node { return bld.binaryOp("Add", '+', "output", a, b) }

// Subtract returns a node with the component-wise difference a-b.
func (bld *Builder) Subtract(a, b Node) Node { return bld.binaryOp("Subtract", '-', "output", a, b) }

// Multiply returns a node with the component-wise product of a and b.
// If both are matrices the result is the matrix product.
func (bld *Builder) Multiply(a, b Node) Node { return bld.binaryOp("Multiply", '*', "output", a, b) }

func (bld *Builder) binaryOp(name string, op byte, prefix string, a, b Node) Node {
	if a == nil || b == nil {
		bld.nilnode(name)
		return &binaryOp{op: op, prefix: prefix, inputs: [2]Node{a, b}}
	}
	typ, ok := binaryResultType(a.Type(), b.Type())
	if !ok {
		bld.graphErrorf("%s: incompatible input types %s and %s", name, a.Type(), b.Type())
	}
	return &binaryOp{op: op, prefix: prefix, typ: typ, inputs: [2]Node{a, b}}
}

func binaryResultType(a, b glbuild.Type) (glbuild.Type, bool) {
	switch {
	case a == glbuild.TypeUndefined || b == glbuild.TypeUndefined:
		return glbuild.TypeUndefined, false
	case a == b:
		return a, true
	case b == glbuild.TypeFloat && a != glbuild.TypeMatrix:
		return a, true
	case a == glbuild.TypeFloat && b != glbuild.TypeMatrix:
		return b, true
	case glbuild.GLType(a) == glbuild.GLType(b):
		// Colors mix freely with vectors of the same size.
		return a, true
	}
	return glbuild.TypeUndefined, false
}

func (o *binaryOp) VariablePrefix() string { return o.prefix }
func (o *binaryOp) Target() Target         { return TargetNeutral }
func (o *binaryOp) Type() glbuild.Type     { return o.typ }
func (o *binaryOp) ForEachInput(userData any, fn func(userData any, input *Node) error) error {
	return forEachInput(o.inputs[:], userData, fn)
}

func (o *binaryOp) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	name := state.Shared.AllocateVariableName(o.prefix)
	declare(state, glbuild.GLType(o.typ), name, inputs[0]+" "+string(o.op)+" "+inputs[1])
	return name, nil
}

type scale struct {
	factor string
	inputs [1]Node
}

// Scale returns a node with every component of in multiplied by factor.
func (bld *Builder) Scale(in Node, factor float32) Node {
	if in == nil {
		bld.nilnode("Scale")
	} else if in.Type() == glbuild.TypeUndefined {
		bld.graphErrorf("Scale: input has no value")
	}
	bld.checkFinite("Scale", factor)
	return &scale{factor: string(glbuild.AppendFloat(nil, factor)), inputs: [1]Node{in}}
}

func (s *scale) VariablePrefix() string { return "scaled" }
func (s *scale) Target() Target         { return TargetNeutral }
func (s *scale) Type() glbuild.Type {
	if s.inputs[0] == nil {
		return glbuild.TypeUndefined
	}
	return s.inputs[0].Type()
}
func (s *scale) ForEachInput(userData any, fn func(userData any, input *Node) error) error {
	return forEachInput(s.inputs[:], userData, fn)
}

func (s *scale) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	name := state.Shared.AllocateVariableName("scaled")
	declare(state, glbuild.GLType(s.Type()), name, inputs[0]+" * "+s.factor)
	return name, nil
}

type transform struct {
	// inputs are the vector and the matrix, in that order.
	inputs [2]Node
	vecTyp glbuild.Type
}

// Transform returns a node with vector multiplied by the 4x4 matrix. A vec3 vector is
// extended with w=1 so it is transformed as a position. The result is a vec4.
func (bld *Builder) Transform(vector, matrix Node) Node {
	bld.checkType("Transform", "vector", vector, glbuild.TypeVector3, glbuild.TypeVector4)
	bld.checkType("Transform", "matrix", matrix, glbuild.TypeMatrix)
	t := &transform{inputs: [2]Node{vector, matrix}}
	if vector != nil {
		t.vecTyp = vector.Type()
	}
	return t
}

func (t *transform) VariablePrefix() string { return "output" }
func (t *transform) Target() Target         { return TargetNeutral }
func (t *transform) Type() glbuild.Type     { return glbuild.TypeVector4 }
func (t *transform) ForEachInput(userData any, fn func(userData any, input *Node) error) error {
	return forEachInput(t.inputs[:], userData, fn)
}

func (t *transform) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	name := state.Shared.AllocateVariableName("output")
	vec := swizzle(inputs[0], t.vecTyp, glbuild.TypeVector4)
	declare(state, "vec4", name, inputs[1]+" * "+vec)
	return name, nil
}

type texture struct {
	sampler string
	inputs  [1]Node
	uvTyp   glbuild.Type
}

// Texture returns a node sampling the 2D texture bound to the sampler uniform named sampler at uv.
// The result is an RGBA color. Texture nodes are fragment only.
func (bld *Builder) Texture(sampler string, uv Node) Node {
	if !isIdentifier(sampler) {
		bld.graphErrorf("Texture: invalid sampler name %q, want letters and underscores only", sampler)
	}
	bld.checkType("Texture", "uv", uv, glbuild.TypeVector2, glbuild.TypeVector3, glbuild.TypeVector4)
	t := &texture{sampler: sampler, inputs: [1]Node{uv}}
	if uv != nil {
		t.uvTyp = uv.Type()
	}
	return t
}

func (t *texture) VariablePrefix() string { return "texture" }
func (t *texture) Target() Target         { return TargetFragment }
func (t *texture) Type() glbuild.Type     { return glbuild.TypeColor4 }
func (t *texture) ForEachInput(userData any, fn func(userData any, input *Node) error) error {
	return forEachInput(t.inputs[:], userData, fn)
}
func (t *texture) reservedName() string { return t.sampler }

func (t *texture) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	if !state.IsFragment() {
		return "", fmt.Errorf("texture %q sampled outside the fragment stage", t.sampler)
	}
	state.EmitSampler2D(t.sampler)
	name := state.Shared.AllocateVariableName("texture")
	declare(state, "vec4", name, "texture2D("+t.sampler+", "+swizzle(inputs[0], t.uvTyp, glbuild.TypeVector2)+")")
	return name, nil
}

type swizzleNode struct {
	mask   string
	typ    glbuild.Type
	inputs [1]Node
}

// Swizzle returns a node selecting the components of in named by mask, i.e: "xy", "rgb" or "a".
// Selecting 3 or 4 components of a color yields a color.
func (bld *Builder) Swizzle(in Node, mask string) Node {
	s := &swizzleNode{mask: mask, inputs: [1]Node{in}}
	if in == nil {
		bld.nilnode("Swizzle")
		return s
	}
	n := in.Type().Components()
	if n < 2 {
		bld.graphErrorf("Swizzle: input type %s has no components to select", in.Type())
		return s
	}
	if len(mask) == 0 || len(mask) > 4 {
		bld.graphErrorf("Swizzle: mask %q must select 1 to 4 components", mask)
		return s
	}
	for i := 0; i < len(mask); i++ {
		idx := strings.IndexByte("xyzw", mask[i])
		if idx < 0 {
			idx = strings.IndexByte("rgba", mask[i])
		}
		if idx < 0 || idx >= n {
			bld.graphErrorf("Swizzle: mask %q selects components absent in %s", mask, in.Type())
			return s
		}
	}
	color := in.Type() == glbuild.TypeColor3 || in.Type() == glbuild.TypeColor4
	switch len(mask) {
	case 1:
		s.typ = glbuild.TypeFloat
	case 2:
		s.typ = glbuild.TypeVector2
	case 3:
		s.typ = glbuild.TypeVector3
		if color {
			s.typ = glbuild.TypeColor3
		}
	case 4:
		s.typ = glbuild.TypeVector4
		if color {
			s.typ = glbuild.TypeColor4
		}
	}
	return s
}

func (s *swizzleNode) VariablePrefix() string { return "swizzle" }
func (s *swizzleNode) Target() Target         { return TargetNeutral }
func (s *swizzleNode) Type() glbuild.Type     { return s.typ }
func (s *swizzleNode) ForEachInput(userData any, fn func(userData any, input *Node) error) error {
	return forEachInput(s.inputs[:], userData, fn)
}

// Build declares no variable: the selection is used inline by consumers.
func (s *swizzleNode) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	return inputs[0] + "." + s.mask, nil
}
