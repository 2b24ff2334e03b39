package glbuild

import (
	"slices"
	"strings"
)

// EmitAttribute declares a vertex attribute. Repeated names are ignored.
func (s *BuildState) EmitAttribute(name, typ string) {
	if slices.Contains(s.attributes, name) {
		return
	}
	s.attributes = append(s.attributes, name)
	s.attributeDecl = appendDecl(s.attributeDecl, "attribute", typ, name)
}

// EmitUniform declares a uniform of GLSL type typ. If define is not empty the declaration is guarded:
// a define starting with "defined(" is used as an #if expression, otherwise as the macro name of an
// #ifdef guard, or #ifndef when negate is set. Repeated names are ignored.
func (s *BuildState) EmitUniform(name, typ, define string, negate bool) {
	if slices.Contains(s.uniforms, name) {
		Logger().Debug("skip duplicate uniform", "stage", s.stage, "name", name)
		return
	}
	s.uniforms = append(s.uniforms, name)
	s.uniformDecl = appendGuardedDecl(s.uniformDecl, "uniform", typ, name, define, negate)
}

// EmitVarying declares a varying in the declaration block shared by both stages using the
// guard rules of [BuildState.EmitUniform]. It returns false if the varying was already declared.
func (s *BuildState) EmitVarying(name, typ, define string, negate bool) bool {
	sd := s.Shared
	if slices.Contains(sd.varyings, name) {
		return false
	}
	sd.varyings = append(sd.varyings, name)
	sd.varyingDecl = appendGuardedDecl(sd.varyingDecl, "varying", typ, name, define, negate)
	return true
}

// EmitSampler2D declares a 2D texture sampler uniform. Repeated names are ignored.
func (s *BuildState) EmitSampler2D(name string) {
	s.emitSampler("sampler2D", name)
}

// EmitSampler2DArray declares a 2D array texture sampler uniform. Repeated names are ignored.
func (s *BuildState) EmitSampler2DArray(name string) {
	s.emitSampler("sampler2DArray", name)
}

func (s *BuildState) emitSampler(typ, name string) {
	if slices.Contains(s.samplers, name) {
		return
	}
	s.samplers = append(s.samplers, name)
	s.samplerDecl = appendDecl(s.samplerDecl, "uniform", typ, name)
}

// EmitConstant declares a global constant initialized to the GLSL expression value. Repeated names are ignored.
func (s *BuildState) EmitConstant(name, typ, value string) {
	if slices.Contains(s.constants, name) {
		return
	}
	s.constants = append(s.constants, name)
	s.constantDecl = append(s.constantDecl, "const "...)
	s.constantDecl = append(s.constantDecl, typ...)
	s.constantDecl = append(s.constantDecl, ' ')
	s.constantDecl = append(s.constantDecl, name...)
	s.constantDecl = append(s.constantDecl, " = "...)
	s.constantDecl = append(s.constantDecl, value...)
	s.constantDecl = append(s.constantDecl, ";\n"...)
}

// EmitExtension stores an extension block under name, wrapped in "#if define" when define is not empty.
// Extension blocks are laid out before anything else in the finalized source. Repeated names are ignored.
func (s *BuildState) EmitExtension(name, code, define string) {
	if _, ok := s.extensions.AtTry(name); ok {
		return
	}
	if define != "" {
		code = "#if " + define + "\n" + code + "\n#endif"
	}
	s.extensions.Set(name, code)
}

// EmitPrePassOutput stores code writing a prepass (multiple render target) output under key.
// Repeated keys are ignored.
func (s *BuildState) EmitPrePassOutput(key, code string) {
	if _, ok := s.prePass.AtTry(key); ok {
		return
	}
	s.prePass.Set(key, code)
}

func appendDecl(b []byte, qualifier, typ, name string) []byte {
	b = append(b, qualifier...)
	b = append(b, ' ')
	b = append(b, typ...)
	b = append(b, ' ')
	b = append(b, name...)
	b = append(b, ";\n"...)
	return b
}

func appendGuardedDecl(b []byte, qualifier, typ, name, define string, negate bool) []byte {
	if define != "" {
		b = appendGuard(b, define, negate)
	}
	b = appendDecl(b, qualifier, typ, name)
	if define != "" {
		b = append(b, "#endif\n"...)
	}
	return b
}

// appendGuard appends the opening line of a conditional compilation block.
func appendGuard(b []byte, define string, negate bool) []byte {
	switch {
	case strings.HasPrefix(define, "defined("):
		b = append(b, "#if "...)
	case negate:
		b = append(b, "#ifndef "...)
	default:
		b = append(b, "#ifdef "...)
	}
	b = append(b, define...)
	b = append(b, '\n')
	return b
}
