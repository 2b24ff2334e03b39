package glbuild

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrUnknownInclude is returned when an include key is not present in the [IncludeLibrary].
// It signals a mismatch between the nodes and the library and should abort the compilation.
var ErrUnknownInclude = errors.New("unknown include")

// IncludeLibrary resolves include keys to raw shader source text. Implementations
// must not be modified during a compilation.
type IncludeLibrary interface {
	Lookup(key string) (src string, ok bool)
}

// Replacement is a search and replace pair applied to every match of Search in include text.
// Replace may reference submatches as in [regexp.Regexp.ReplaceAllString].
type Replacement struct {
	Search  *regexp.Regexp
	Replace string
}

// IncludeOptions controls how include text is emitted.
type IncludeOptions struct {
	// RepeatKey, when set, emits a repeat directive #include<key>[0..RepeatKey] resolved downstream.
	RepeatKey string
	// SubstitutionVars is emitted verbatim between parentheses after the include directive.
	SubstitutionVars string
	// Replace substitutions are applied in order, after any line removal.
	Replace []Replacement

	RemoveAttributes bool
	RemoveUniforms   bool
	RemoveVaryings   bool
	// RemoveIfDef strips #ifdef, #endif, #else and #elif lines.
	RemoveIfDef bool
}

func (opts *IncludeOptions) structural() bool {
	return opts != nil && (opts.RemoveAttributes || opts.RemoveUniforms || opts.RemoveVaryings ||
		opts.RemoveIfDef || len(opts.Replace) > 0)
}

var (
	ifdefLines     = regexp.MustCompile(`(?m)^[ \t]*#(?:ifdef|endif|else|elif).*$`)
	attributeLines = regexp.MustCompile(`(?m)^[ \t]*attribute.+$`)
	uniformLines   = regexp.MustCompile(`(?m)^[ \t]*uniform.+$`)
	varyingLines   = regexp.MustCompile(`(?m)^[ \t]*varying.+$`)
)

// EmitFunction stores code under name to be laid out before main. When comments are
// enabled in [SharedData] they are prepended to code. Repeated names are ignored.
func (s *BuildState) EmitFunction(name, code, comments string) {
	if s.HasFunction(name) {
		Logger().Debug("skip duplicate function", "stage", s.stage, "name", name)
		return
	}
	s.functions.Set(name, s.commented(comments, code))
}

// EmitCodeFromInclude returns the text of the include key transformed by opts without storing it.
// If opts.RepeatKey is set a repeat directive is returned and the library is not consulted.
func (s *BuildState) EmitCodeFromInclude(key, comments string, opts *IncludeOptions) (string, error) {
	if opts != nil && opts.RepeatKey != "" {
		return string(appendIncludeDirective(nil, key, opts)), nil
	}
	src, err := s.lookupInclude(key)
	if err != nil {
		return "", err
	}
	code := s.commented(comments, src+"\n")
	if opts != nil {
		code = applyReplacements(code, opts.Replace)
	}
	return code, nil
}

// EmitFunctionFromInclude stores the include key under key+storeKey so the same include may be
// stored several times with different substitutions. Without line removal or substitutions an
// include directive is stored and resolved downstream. Otherwise the raw include text is stored
// after removing #ifdef-family, attribute, uniform and varying lines, in that order, as requested
// by opts, and then applying opts.Replace. Repeated keys are ignored.
func (s *BuildState) EmitFunctionFromInclude(key, comments string, opts *IncludeOptions, storeKey string) error {
	storeKey = key + storeKey
	if s.HasFunction(storeKey) {
		Logger().Debug("skip duplicate include", "stage", s.stage, "key", storeKey)
		return nil
	}
	if !opts.structural() {
		directive := string(appendIncludeDirective(nil, key, opts))
		s.functions.Set(storeKey, s.commented(comments, directive))
		return nil
	}
	code, err := s.lookupInclude(key)
	if err != nil {
		return err
	}
	code = s.commented(comments, code)
	if opts.RemoveIfDef {
		code = ifdefLines.ReplaceAllLiteralString(code, "")
	}
	if opts.RemoveAttributes {
		code = attributeLines.ReplaceAllLiteralString(code, "")
	}
	if opts.RemoveUniforms {
		code = uniformLines.ReplaceAllLiteralString(code, "")
	}
	if opts.RemoveVaryings {
		code = varyingLines.ReplaceAllLiteralString(code, "")
	}
	code = applyReplacements(code, opts.Replace)
	s.functions.Set(storeKey, code)
	return nil
}

func (s *BuildState) lookupInclude(key string) (string, error) {
	lib := s.Shared.Library
	if lib == nil {
		return "", fmt.Errorf("glbuild: %w %q: no include library configured", ErrUnknownInclude, key)
	}
	src, ok := lib.Lookup(key)
	if !ok {
		Logger().Warn("include lookup failed", "stage", s.stage, "key", key)
		return "", fmt.Errorf("glbuild: %w %q", ErrUnknownInclude, key)
	}
	return src, nil
}

func (s *BuildState) commented(comments, code string) string {
	if s.Shared.EmitComments {
		return comments + "\n" + code
	}
	return code
}

func applyReplacements(code string, replacements []Replacement) string {
	for _, r := range replacements {
		code = r.Search.ReplaceAllString(code, r.Replace)
	}
	return code
}

// appendIncludeDirective appends the downstream include directive:
//
//	#include<key>(substitutionVars)[0..repeatKey]
//
// The parenthesized and bracketed parts are omitted when empty.
func appendIncludeDirective(b []byte, key string, opts *IncludeOptions) []byte {
	b = append(b, "#include<"...)
	b = append(b, key...)
	b = append(b, '>')
	if opts != nil && opts.SubstitutionVars != "" {
		b = append(b, '(')
		b = append(b, opts.SubstitutionVars...)
		b = append(b, ')')
	}
	if opts != nil && opts.RepeatKey != "" {
		b = append(b, "[0.."...)
		b = append(b, opts.RepeatKey...)
		b = append(b, ']')
	}
	b = append(b, '\n')
	return b
}
