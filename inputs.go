package nodemat

import (
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/nodemat/glbuild"
)

// constant is a literal value declared as a global GLSL constant.
type constant struct {
	name  string
	typ   glbuild.Type
	value string
}

// FloatConstant returns a node with constant float value v.
func (bld *Builder) FloatConstant(v float32) Node {
	bld.checkFinite("FloatConstant", v)
	return &constant{name: "constant", typ: glbuild.TypeFloat, value: string(glbuild.AppendFloat(nil, v))}
}

// Vec2Constant returns a node with constant vec2 value v.
func (bld *Builder) Vec2Constant(v ms2.Vec) Node {
	bld.checkFinite("Vec2Constant", v.X, v.Y)
	return &constant{name: "constant", typ: glbuild.TypeVector2, value: string(glbuild.AppendVec2(nil, v))}
}

// Vec3Constant returns a node with constant vec3 value v.
func (bld *Builder) Vec3Constant(v ms3.Vec) Node {
	bld.checkFinite("Vec3Constant", v.X, v.Y, v.Z)
	return &constant{name: "constant", typ: glbuild.TypeVector3, value: string(glbuild.AppendVec3(nil, v))}
}

// Color3Constant returns a node with constant RGB color c. Components are in linear space.
func (bld *Builder) Color3Constant(c ms3.Vec) Node {
	bld.checkFinite("Color3Constant", c.X, c.Y, c.Z)
	return &constant{name: "color", typ: glbuild.TypeColor3, value: string(glbuild.AppendVec3(nil, c))}
}

// Color4Constant returns a node with constant RGBA color c with alpha a.
func (bld *Builder) Color4Constant(c ms3.Vec, a float32) Node {
	bld.checkFinite("Color4Constant", c.X, c.Y, c.Z, a)
	return &constant{name: "color", typ: glbuild.TypeColor4, value: string(glbuild.AppendVec4(nil, c, a))}
}

func (c *constant) VariablePrefix() string { return c.name }
func (c *constant) Target() Target         { return TargetNeutral }
func (c *constant) Type() glbuild.Type     { return c.typ }
func (c *constant) ForEachInput(userData any, fn func(userData any, input *Node) error) error {
	return nil
}

func (c *constant) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	name := state.Shared.AllocateVariableName(c.name)
	state.EmitConstant(name, glbuild.GLType(c.typ), c.value)
	return name, nil
}

// attribute is a per-vertex input of the mesh.
type attribute struct {
	name string
	typ  glbuild.Type
}

// Attribute returns a vertex attribute node. The attribute name is reserved
// during compilation so no other variable shadows it.
func (bld *Builder) Attribute(name string, typ glbuild.Type) Node {
	if !isIdentifier(name) {
		bld.graphErrorf("Attribute: invalid name %q, want letters and underscores only", name)
	}
	if glbuild.GLType(typ) == "" || typ == glbuild.TypeMatrix {
		bld.graphErrorf("Attribute %q: unsupported type %s", name, typ)
	}
	return &attribute{name: name, typ: typ}
}

// Position returns the mesh's object space vertex position attribute.
func (bld *Builder) Position() Node { return bld.Attribute("position", glbuild.TypeVector3) }

// Normal returns the mesh's object space vertex normal attribute.
func (bld *Builder) Normal() Node { return bld.Attribute("normal", glbuild.TypeVector3) }

// UV returns the mesh's first texture coordinate attribute.
func (bld *Builder) UV() Node { return bld.Attribute("uv", glbuild.TypeVector2) }

func (a *attribute) VariablePrefix() string { return a.name }
func (a *attribute) Target() Target         { return TargetVertex }
func (a *attribute) Type() glbuild.Type     { return a.typ }
func (a *attribute) ForEachInput(userData any, fn func(userData any, input *Node) error) error {
	return nil
}
func (a *attribute) reservedName() string { return a.name }

func (a *attribute) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	state.EmitAttribute(a.name, glbuild.GLType(a.typ))
	return a.name, nil
}

// uniform is a value set by the engine for the whole draw call.
type uniform struct {
	name string
	typ  glbuild.Type
	hint func(*glbuild.Hints)
}

// Uniform returns a node reading the uniform name of type typ.
func (bld *Builder) Uniform(name string, typ glbuild.Type) Node {
	if !isIdentifier(name) {
		bld.graphErrorf("Uniform: invalid name %q, want letters and underscores only", name)
	}
	if glbuild.GLType(typ) == "" {
		bld.graphErrorf("Uniform %q: unsupported type %s", name, typ)
	}
	return &uniform{name: name, typ: typ}
}

// WorldViewProjection returns the combined world, view and projection matrix uniform.
// Using it sets [glbuild.Hints.NeedWorldViewProjection].
func (bld *Builder) WorldViewProjection() Node {
	return &uniform{name: "worldViewProjection", typ: glbuild.TypeMatrix, hint: func(h *glbuild.Hints) {
		h.NeedWorldViewProjection = true
	}}
}

func (u *uniform) VariablePrefix() string { return u.name }
func (u *uniform) Target() Target         { return TargetNeutral }
func (u *uniform) Type() glbuild.Type     { return u.typ }
func (u *uniform) ForEachInput(userData any, fn func(userData any, input *Node) error) error {
	return nil
}
func (u *uniform) reservedName() string { return u.name }

func (u *uniform) Build(state *glbuild.BuildState, inputs []string) (string, error) {
	if u.hint != nil {
		u.hint(&state.Shared.Hints)
	}
	state.EmitUniform(u.name, glbuild.GLType(u.typ), "", false)
	return u.name, nil
}
