package glbuild

import (
	"slices"
	"strconv"
)

// reservedNames are identifiers that clash with GLSL builtins or keywords when
// emitted bare, so their first allocation is already suffixed.
var reservedNames = []string{"output", "texture"}

// SharedData is the state shared by the vertex and fragment [BuildState] of a single compilation.
// It is not safe for concurrent use: both stages are driven sequentially by one goroutine.
type SharedData struct {
	// EmitComments interleaves human readable comments in the generated source.
	EmitComments bool
	// SupportsMRT is set when the target supports multiple render targets.
	SupportsMRT bool
	// PrePass is set when nodes should write prepass (MRT) outputs.
	PrePass bool
	// Library resolves include keys to raw source text.
	Library IncludeLibrary
	// Checks gathers graph validation results during traversal.
	Checks Checks
	// Hints gathers material requirements discovered during traversal.
	Hints Hints

	variableNames map[string]int
	defineNames   map[string]int
	temps         map[string]struct{}
	varyings      []string
	varyingDecl   []byte
}

// Checks records whether the traversal produced the outputs a complete program needs.
type Checks struct {
	EmitVertex         bool
	EmitFragment       bool
	NotConnectedInputs []string
}

// Hints records material level requirements nodes discover while emitting code.
type Hints struct {
	NeedWorldViewProjection bool
	NeedAlphaBlending       bool
	NeedAlphaTesting        bool
}

// NewSharedData returns SharedData ready for a new compilation. lib may be nil
// if no node emits code from includes.
func NewSharedData(lib IncludeLibrary) *SharedData {
	return &SharedData{
		Library:       lib,
		variableNames: make(map[string]int),
		defineNames:   make(map[string]int),
		temps:         make(map[string]struct{}),
	}
}

// AllocateVariableName returns a variable name derived from prefix that has not been returned before
// during this compilation. Characters outside [A-Za-z_] are removed from prefix. The first allocation
// of a prefix returns it unchanged unless it is a reserved word, in which case "0" is appended.
// Later allocations append an increasing counter: prefix1, prefix2...
func (sd *SharedData) AllocateVariableName(prefix string) string {
	prefix = sanitizeName(prefix)
	n, seen := sd.variableNames[prefix]
	if !seen {
		sd.variableNames[prefix] = 0
		if slices.Contains(reservedNames, prefix) {
			return prefix + "0"
		}
		return prefix
	}
	n++
	sd.variableNames[prefix] = n
	return prefix + strconv.Itoa(n)
}

// AllocateDefineName returns a preprocessor define name derived from prefix. It behaves like
// [SharedData.AllocateVariableName] with a counter table of its own and no reserved words.
func (sd *SharedData) AllocateDefineName(prefix string) string {
	prefix = sanitizeName(prefix)
	n, seen := sd.defineNames[prefix]
	if !seen {
		sd.defineNames[prefix] = 0
		return prefix
	}
	n++
	sd.defineNames[prefix] = n
	return prefix + strconv.Itoa(n)
}

// ExcludeVariableName reserves name so later allocations with the same prefix never return it.
func (sd *SharedData) ExcludeVariableName(name string) {
	sd.variableNames[name] = 0
}

// RegisterTemporary registers a temporary variable name. It returns false if the name was
// already registered, in which case the caller must not declare it again.
func (sd *SharedData) RegisterTemporary(name string) bool {
	if _, ok := sd.temps[name]; ok {
		return false
	}
	sd.temps[name] = struct{}{}
	return true
}

// Varyings returns the names of varyings declared so far in declaration order.
func (sd *SharedData) Varyings() []string { return sd.varyings }

// VaryingDeclaration returns the varying declaration block shared by both stages.
func (sd *SharedData) VaryingDeclaration() string { return string(sd.varyingDecl) }

// sanitizeName removes all characters outside [A-Za-z_].
func sanitizeName(s string) string {
	clean := true
	for i := 0; i < len(s); i++ {
		if !isNameChar(s[i]) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if isNameChar(s[i]) {
			b = append(b, s[i])
		}
	}
	return string(b)
}

func isNameChar(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
