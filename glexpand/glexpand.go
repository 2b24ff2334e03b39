// Package glexpand resolves the textual directives left in generated shader source by glbuild:
// include directives of the form
//
//	#include<key>(search1,replace1,search2,replace2)[0..repeatKey]
//
// and ###___ANCHOR<n>___### splice points. The output is plain GLSL ready for a GL compiler.
package glexpand

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/soypat/nodemat/glbuild"
)

const defaultMaxDepth = 8

var (
	includeDirective = regexp.MustCompile(`#include<([\w.]+)>(?:\(([^)]*)\))?(?:\[([^\]]*)\])?`)
	anchorToken      = regexp.MustCompile(`###___ANCHOR\d+___###`)
	errTooDeep       = errors.New("include nesting too deep")
)

// Expander replaces include directives with library text.
type Expander struct {
	// Library resolves include keys.
	Library glbuild.IncludeLibrary
	// Defines holds values of repeat bounds referenced by name, i.e. maxSimultaneousLights.
	Defines map[string]string
	// MaxDepth limits nested include expansion. Zero means 8.
	MaxDepth int
}

// Expand returns src with every include directive replaced by the text it references.
// Included text is expanded recursively. Unknown keys return an error wrapping [glbuild.ErrUnknownInclude].
func (e *Expander) Expand(src string) (string, error) {
	return e.expand(src, 0)
}

func (e *Expander) expand(src string, depth int) (string, error) {
	maxDepth := e.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	matches := includeDirective.FindAllStringSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return src, nil
	} else if depth >= maxDepth {
		return "", fmt.Errorf("glexpand: %w (%d levels)", errTooDeep, depth)
	}
	b := make([]byte, 0, len(src))
	last := 0
	for _, m := range matches {
		b = append(b, src[last:m[0]]...)
		key := src[m[2]:m[3]]
		var vars, index string
		if m[4] >= 0 {
			vars = src[m[4]:m[5]]
		}
		if m[6] >= 0 {
			index = src[m[6]:m[7]]
		}
		content, err := e.resolve(key, vars, index)
		if err != nil {
			return "", err
		}
		content, err = e.expand(content, depth+1)
		if err != nil {
			return "", err
		}
		b = append(b, content...)
		last = m[1]
	}
	b = append(b, src[last:]...)
	return string(b), nil
}

func (e *Expander) resolve(key, vars, index string) (string, error) {
	if e.Library == nil {
		return "", fmt.Errorf("glexpand: %w %q: nil library", glbuild.ErrUnknownInclude, key)
	}
	content, ok := e.Library.Lookup(key)
	if !ok {
		return "", fmt.Errorf("glexpand: %w %q", glbuild.ErrUnknownInclude, key)
	}
	if vars != "" {
		pairs := strings.Split(vars, ",")
		if len(pairs)%2 != 0 {
			return "", fmt.Errorf("glexpand: include %q: odd number of substitution arguments %q", key, vars)
		}
		for i := 0; i < len(pairs); i += 2 {
			search, err := regexp.Compile(pairs[i])
			if err != nil {
				return "", fmt.Errorf("glexpand: include %q: %w", key, err)
			}
			content = search.ReplaceAllLiteralString(content, pairs[i+1])
		}
	}
	if index == "" {
		return content, nil
	}
	lo, hi, isRange := strings.Cut(index, "..")
	if !isRange {
		return strings.ReplaceAll(content, "{X}", index), nil
	}
	start, err := e.bound(lo)
	if err != nil {
		return "", fmt.Errorf("glexpand: include %q: %w", key, err)
	}
	end, err := e.bound(hi)
	if err != nil {
		return "", fmt.Errorf("glexpand: include %q: %w", key, err)
	}
	var b []byte
	for i := start; i < end; i++ {
		b = append(b, strings.ReplaceAll(content, "{X}", strconv.Itoa(i))...)
		b = append(b, '\n')
	}
	return string(b), nil
}

// bound parses a repeat bound that is either an integer or the name of a define holding one.
func (e *Expander) bound(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	def, ok := e.Defines[s]
	if !ok {
		return 0, fmt.Errorf("undefined repeat bound %q", s)
	}
	v, err := strconv.Atoi(def)
	if err != nil {
		return 0, fmt.Errorf("repeat bound %q=%q is not an integer", s, def)
	}
	return v, nil
}

// ReplaceAnchors splices contents[anchor] at each anchor token of src.
// Anchors with no content are removed.
func ReplaceAnchors(src string, contents map[string]string) string {
	return anchorToken.ReplaceAllStringFunc(src, func(anchor string) string {
		return contents[anchor]
	})
}

// AppendDefines appends a #define line per entry of defines, sorted by name.
func AppendDefines(b []byte, defines map[string]string) []byte {
	for _, name := range slices.Sorted(maps.Keys(defines)) {
		b = glbuild.AppendDefineDecl(b, name, defines[name])
	}
	return b
}
