package glbuild

import (
	"math"
	"strconv"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// EmitFloat formats v as a GLSL float literal. Integral values always carry a
// decimal part so they are not parsed as ints: 3 yields "3.0", -2 yields "-2.0", 3.5 yields "3.5".
func EmitFloat(v float64) string {
	if v == 0 {
		return "0.0" // Also normalizes negative zero.
	}
	if !math.IsInf(v, 0) && math.Trunc(v) == v {
		return strconv.FormatFloat(v, 'f', 0, 64) + ".0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// AppendFloat appends v formatted as a GLSL float literal with the shortest
// representation that round trips to the same float32.
func AppendFloat(b []byte, v float32) []byte {
	if v == 0 {
		return append(b, "0.0"...)
	}
	b = strconv.AppendFloat(b, float64(v), 'f', -1, 32)
	if !math32.IsInf(v, 0) && !math32.IsNaN(v) && math32.Trunc(v) == v {
		b = append(b, ".0"...)
	}
	return b
}

// AppendFloats appends the values as GLSL float literals separated by sep. A zero sep omits separators.
func AppendFloats(b []byte, sep byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}

// AppendVec2 appends a vec2 constructor of v, i.e: vec2(1.0,2.5)
func AppendVec2(b []byte, v ms2.Vec) []byte {
	b = append(b, "vec2("...)
	b = AppendFloats(b, ',', v.X, v.Y)
	return append(b, ')')
}

// AppendVec3 appends a vec3 constructor of v.
func AppendVec3(b []byte, v ms3.Vec) []byte {
	b = append(b, "vec3("...)
	b = AppendFloats(b, ',', v.X, v.Y, v.Z)
	return append(b, ')')
}

// AppendVec4 appends a vec4 constructor with v as xyz and w as the last component.
func AppendVec4(b []byte, v ms3.Vec, w float32) []byte {
	b = append(b, "vec4("...)
	b = AppendFloats(b, ',', v.X, v.Y, v.Z, w)
	return append(b, ')')
}

// AppendDecl appends a local variable declaration "typ name = expr;\n".
func AppendDecl(b []byte, typ, name, expr string) []byte {
	b = append(b, typ...)
	b = append(b, ' ')
	b = append(b, name...)
	b = append(b, " = "...)
	b = append(b, expr...)
	b = append(b, ";\n"...)
	return b
}

// AppendDefineDecl appends "#define aliasToDefine aliasReplace\n". The replacement is
// omitted when empty.
func AppendDefineDecl(b []byte, aliasToDefine, aliasReplace string) []byte {
	b = append(b, "#define "...)
	b = append(b, aliasToDefine...)
	if aliasReplace != "" {
		b = append(b, ' ')
		b = append(b, aliasReplace...)
	}
	b = append(b, '\n')
	return b
}

// AppendUndefineDecl appends "#undef aliasToUndefine\n".
func AppendUndefineDecl(b []byte, aliasToUndefine string) []byte {
	b = append(b, "#undef "...)
	b = append(b, aliasToUndefine...)
	b = append(b, '\n')
	return b
}
