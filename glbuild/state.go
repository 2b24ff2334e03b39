package glbuild

import (
	"fmt"
	"strconv"

	"cogentcore.org/core/base/keylist"
)

// Compilation owns the two stage builders and the [SharedData] of a single material compilation.
// A new Compilation must be created for every build; it is not meant to be reset or reused.
type Compilation struct {
	Shared *SharedData
	stages [2]BuildState
}

// NewCompilation returns a Compilation with paired vertex and fragment builders sharing shared.
func NewCompilation(shared *SharedData) *Compilation {
	if shared == nil {
		shared = NewSharedData(nil)
	}
	c := &Compilation{Shared: shared}
	for i := range c.stages {
		c.stages[i] = BuildState{
			Shared:   shared,
			stage:    Stage(i),
			comp:     c,
			counters: make(map[string]int),
		}
	}
	return c
}

// Vertex returns the vertex stage builder.
func (c *Compilation) Vertex() *BuildState { return &c.stages[StageVertex] }

// Fragment returns the fragment stage builder.
func (c *Compilation) Fragment() *BuildState { return &c.stages[StageFragment] }

// Stage returns the builder for stage s.
func (c *Compilation) Stage(s Stage) *BuildState { return &c.stages[s] }

// BuildState accumulates the declarations and main body of one shader stage.
type BuildState struct {
	// Shared is the state common to both stages of the compilation.
	Shared *SharedData

	stage Stage
	comp  *Compilation

	attributes []string
	uniforms   []string
	constants  []string
	samplers   []string
	functions  keylist.List[string, string]
	extensions keylist.List[string, string]
	prePass    keylist.List[string, string]
	counters   map[string]int

	attributeDecl   []byte
	uniformDecl     []byte
	constantDecl    []byte
	samplerDecl     []byte
	varyingTransfer []byte
	injectAtEnd     []byte
	body            []byte

	anchorIndex int
	finalized   bool
	output      string
}

// Stage returns the pipeline stage assembled by s.
func (s *BuildState) Stage() Stage { return s.stage }

// IsFragment reports whether s assembles the fragment stage.
func (s *BuildState) IsFragment() bool { return s.stage == StageFragment }

// Paired returns the builder of the other stage in the same compilation.
func (s *BuildState) Paired() *BuildState {
	return s.comp.Stage(1 - s.stage)
}

// AppendBody appends code verbatim to the main body.
func (s *BuildState) AppendBody(code string) {
	s.body = append(s.body, code...)
}

// Bodyf appends formatted code to the main body.
func (s *BuildState) Bodyf(format string, args ...any) {
	s.body = fmt.Appendf(s.body, format, args...)
}

// Body returns the main body accumulated so far.
func (s *BuildState) Body() string { return string(s.body) }

// AllocateAnchor returns a unique placeholder token of the form ###___ANCHOR<n>___###
// where n starts at 0 and increases with each call on this stage.
func (s *BuildState) AllocateAnchor() string {
	b := make([]byte, 0, len(anchorPrefix)+len(anchorSuffix)+4)
	b = append(b, anchorPrefix...)
	b = strconv.AppendInt(b, int64(s.anchorIndex), 10)
	b = append(b, anchorSuffix...)
	s.anchorIndex++
	return string(b)
}

const (
	anchorPrefix = "###___ANCHOR"
	anchorSuffix = "___###"
)

// InjectAtEnd appends code that is laid out after the main body, before the closing brace of main.
func (s *BuildState) InjectAtEnd(code string) {
	s.injectAtEnd = append(s.injectAtEnd, code...)
}

// AppendVaryingTransfer appends code assigning vertex values to varyings. It is only
// emitted by the vertex stage.
func (s *BuildState) AppendVaryingTransfer(code string) {
	s.varyingTransfer = append(s.varyingTransfer, code...)
}

// Counter returns the current value of the named counter.
func (s *BuildState) Counter(name string) int { return s.counters[name] }

// IncrementCounter increments the named counter and returns the value it held before.
func (s *BuildState) IncrementCounter(name string) int {
	v := s.counters[name]
	s.counters[name] = v + 1
	return v
}

// Attributes returns the attribute names declared on this stage in declaration order.
func (s *BuildState) Attributes() []string { return s.attributes }

// Uniforms returns the uniform names declared on this stage in declaration order.
func (s *BuildState) Uniforms() []string { return s.uniforms }

// Samplers returns the sampler names declared on this stage in declaration order.
func (s *BuildState) Samplers() []string { return s.samplers }

// Constants returns the constant names declared on this stage in declaration order.
func (s *BuildState) Constants() []string { return s.constants }

// Extensions returns the extension names and their code in emission order.
func (s *BuildState) Extensions() (names, code []string) {
	return s.extensions.Keys, s.extensions.Values
}

// PrePassOutputs returns the prepass output keys and their code in emission order.
func (s *BuildState) PrePassOutputs() (keys, code []string) {
	return s.prePass.Keys, s.prePass.Values
}

// HasFunction reports whether a function or include is stored under key.
func (s *BuildState) HasFunction(key string) bool {
	_, ok := s.functions.AtTry(key)
	return ok
}
