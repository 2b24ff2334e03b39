package glbuild

// Stage identifies the pipeline stage a [BuildState] assembles.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return "Stage(?)"
}

// Type is the data type carried by a node connection.
type Type uint8

const (
	TypeUndefined Type = iota
	TypeFloat
	TypeInt
	TypeVector2
	TypeVector3
	TypeVector4
	TypeColor3
	TypeColor4
	TypeMatrix
)

// GLType returns the GLSL type name used when declaring a value of type t.
// Types with no GLSL equivalent return the empty string.
func GLType(t Type) string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeVector2:
		return "vec2"
	case TypeVector3, TypeColor3:
		return "vec3"
	case TypeVector4, TypeColor4:
		return "vec4"
	case TypeMatrix:
		return "mat4"
	}
	return ""
}

// Components returns the number of scalar components of t, or 0 for matrices and undefined types.
func (t Type) Components() int {
	switch t {
	case TypeFloat, TypeInt:
		return 1
	case TypeVector2:
		return 2
	case TypeVector3, TypeColor3:
		return 3
	case TypeVector4, TypeColor4:
		return 4
	}
	return 0
}

func (t Type) String() string {
	switch t {
	case TypeFloat:
		return "Float"
	case TypeInt:
		return "Int"
	case TypeVector2:
		return "Vector2"
	case TypeVector3:
		return "Vector3"
	case TypeVector4:
		return "Vector4"
	case TypeColor3:
		return "Color3"
	case TypeColor4:
		return "Color4"
	case TypeMatrix:
		return "Matrix"
	}
	return "Undefined"
}

// ParseType parses the name returned by [Type.String]. It returns TypeUndefined and false for unknown names.
func ParseType(name string) (Type, bool) {
	for t := TypeFloat; t <= TypeMatrix; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return TypeUndefined, false
}
