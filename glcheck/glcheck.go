// Package glcheck compiles generated programs with a desktop OpenGL driver to catch GLSL errors.
//
// Generated sources target GLSL ES 1.00 conventions. Before compiling they are
// translated to GLSL 4.10 core by prepending a header of defines and renaming
// the fragment color output.
package glcheck

import (
	"errors"
	"strings"

	"github.com/soypat/nodemat/glbuild"
	"github.com/soypat/nodemat/glexpand"
)

// ErrNoCGO is returned by builds without an OpenGL driver binding.
var ErrNoCGO = errors.New("glcheck: GL compile check requires CGo and is not supported on TinyGo")

const (
	version       = "#version 410\n"
	fragColorName = "glFragColor"
	mainSignature = "void main(void)"
)

// Header returns the preamble prepended to a program of stage s before compiling it.
// defines are added after the stage mappings, sorted by name.
func Header(s glbuild.Stage, defines map[string]string) []byte {
	b := []byte(version)
	if s == glbuild.StageVertex {
		b = glbuild.AppendDefineDecl(b, "attribute", "in")
		b = glbuild.AppendDefineDecl(b, "varying", "out")
	} else {
		b = glbuild.AppendDefineDecl(b, "varying", "in")
	}
	b = glbuild.AppendDefineDecl(b, "texture2D", "texture")
	return glexpand.AppendDefines(b, defines)
}

// Translate returns src of stage s as null terminated GLSL 4.10 core source.
func Translate(s glbuild.Stage, src string, defines map[string]string) (string, error) {
	var sb strings.Builder
	sb.Write(Header(s, defines))
	if s == glbuild.StageFragment {
		idx := strings.Index(src, mainSignature)
		if idx < 0 {
			return "", errors.New("glcheck: fragment program has no main function")
		}
		// Output declaration must follow #extension directives, so place it just before main.
		src = src[:idx] + "out vec4 " + fragColorName + ";\n" + src[idx:]
		src = strings.ReplaceAll(src, "gl_FragColor", fragColorName)
	}
	sb.WriteString(src)
	sb.WriteString("\n\x00")
	return sb.String(), nil
}
