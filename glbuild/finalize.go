package glbuild

const (
	precisionFloat = "precision highp float;\n"
	precisionArray = "#if defined(WEBGL2) || defined(WEBGPU)\nprecision highp sampler2DArray;\n#endif\n"
	prePassMRT     = "#if defined(PREPASS)\r\n#extension GL_EXT_draw_buffers : require\r\nlayout(location = 0) out highp vec4 glFragData[SCENE_MRT_COUNT];\r\nhighp vec4 gl_FragColor;\r\n#endif\r\n"
)

// SectionID identifies a block of the finalized source.
type SectionID uint8

const (
	SectionEntry SectionID = iota
	SectionConstants
	SectionFunctions
	SectionVaryingTransfer
	SectionInjectAtEnd
	SectionClose
	SectionVaryings
	SectionSamplers
	SectionUniforms
	SectionAttributes
	SectionPrecision
	SectionPrePass
	SectionExtensions
)

// sectionOrder is the order in which sections are laid around the main body during [BuildState.Finalize].
// Prepended sections end up in reverse order of this table, so the last prepended is outermost.
var sectionOrder = [...]struct {
	id      SectionID
	name    string
	prepend bool
}{
	{SectionEntry, "entry", true},
	{SectionConstants, "constants", true},
	{SectionFunctions, "functions", true},
	{SectionVaryingTransfer, "varyingTransfer", false},
	{SectionInjectAtEnd, "injectAtEnd", false},
	{SectionClose, "close", false},
	{SectionVaryings, "varyings", true},
	{SectionSamplers, "samplers", true},
	{SectionUniforms, "uniforms", true},
	{SectionAttributes, "attributes", true},
	{SectionPrecision, "precision", true},
	{SectionPrePass, "prePass", true},
	{SectionExtensions, "extensions", true},
}

// Section is a block of text laid around the main body by [BuildState.Finalize].
type Section struct {
	ID      SectionID
	Name    string
	Prepend bool
	// Blocks are laid out in order, each one prepended or appended individually.
	Blocks []string
}

// Sections returns the non-empty sections of the stage in finalize order.
func (s *BuildState) Sections() []Section {
	var sections []Section
	for _, so := range sectionOrder {
		blocks := s.sectionBlocks(so.id)
		if len(blocks) == 0 {
			continue
		}
		sections = append(sections, Section{ID: so.id, Name: so.name, Prepend: so.prepend, Blocks: blocks})
	}
	return sections
}

func (s *BuildState) sectionBlocks(id SectionID) []string {
	fragment := s.IsFragment()
	switch id {
	case SectionEntry:
		return []string{"\n" + s.comment("//Entry point\n") + "void main(void) {\n"}
	case SectionConstants:
		return s.declBlock("//Constants\n", s.constantDecl)
	case SectionFunctions:
		var code []byte
		for _, fn := range s.functions.Values {
			code = append(code, fn...)
			code = append(code, '\n')
		}
		return []string{"\n" + string(code) + "\n"}
	case SectionVaryingTransfer:
		if fragment || len(s.varyingTransfer) == 0 {
			return nil
		}
		return []string{"\n" + string(s.varyingTransfer)}
	case SectionInjectAtEnd:
		if len(s.injectAtEnd) == 0 {
			return nil
		}
		return []string{"\n" + string(s.injectAtEnd)}
	case SectionClose:
		return []string{"\n}"}
	case SectionVaryings:
		return s.declBlock("//Varyings\n", s.Shared.varyingDecl)
	case SectionSamplers:
		return s.declBlock("//Samplers\n", s.samplerDecl)
	case SectionUniforms:
		return s.declBlock("//Uniforms\n", s.uniformDecl)
	case SectionAttributes:
		if fragment {
			return nil
		}
		return s.declBlock("//Attributes\n", s.attributeDecl)
	case SectionPrecision:
		return []string{precisionFloat, precisionArray}
	case SectionPrePass:
		if !fragment {
			return nil
		}
		return []string{prePassMRT}
	case SectionExtensions:
		blocks := make([]string, len(s.extensions.Values))
		for i, ext := range s.extensions.Values {
			blocks[i] = "\n" + ext + "\n"
		}
		return blocks
	}
	panic("unknown section")
}

func (s *BuildState) declBlock(comment string, decl []byte) []string {
	if len(decl) == 0 {
		return nil
	}
	return []string{"\n" + s.comment(comment) + string(decl) + "\n"}
}

func (s *BuildState) comment(c string) string {
	if s.Shared.EmitComments {
		return c
	}
	return ""
}

// Finalize assembles the declarations, functions and body of the stage into the final
// shader source and stores it. Later calls return the stored source; emissions made after
// the first call do not affect it.
func (s *BuildState) Finalize() string {
	if s.finalized {
		return s.output
	}
	var prepended []string
	var appended []byte
	for _, sec := range s.Sections() {
		if sec.Prepend {
			prepended = append(prepended, sec.Blocks...)
			continue
		}
		for _, b := range sec.Blocks {
			appended = append(appended, b...)
		}
	}
	size := len(s.body) + len(appended)
	for _, p := range prepended {
		size += len(p)
	}
	out := make([]byte, 0, size)
	for i := len(prepended) - 1; i >= 0; i-- {
		out = append(out, prepended[i]...)
	}
	out = append(out, s.body...)
	out = append(out, appended...)
	s.output = string(out)
	s.finalized = true
	Logger().Debug("finalized stage", "stage", s.stage, "bytes", len(s.output),
		"uniforms", len(s.uniforms), "functions", s.functions.Len())
	return s.output
}

// Output returns the source stored by [BuildState.Finalize], or the empty string if not yet finalized.
func (s *BuildState) Output() string { return s.output }

// Finalized reports whether [BuildState.Finalize] has been called.
func (s *BuildState) Finalized() bool { return s.finalized }
