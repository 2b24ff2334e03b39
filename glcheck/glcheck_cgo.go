//go:build !tinygo && cgo

package glcheck

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.1-core/glgl"
	"github.com/soypat/nodemat/glbuild"
)

// Init1x1GLFW starts a hidden 1x1 sized GLFW window with a current OpenGL 4.1 core context
// so programs can be compiled. It must be called from the main OS thread (see [runtime.LockOSThread]).
// It returns a termination function that should be called when done compiling.
func Init1x1GLFW() (terminate func(), err error) {
	window, terminate, err := glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:         "glcheck",
		Version:       [2]int{4, 1},
		OpenGLProfile: glgl.ProfileCore,
		ForwardCompat: true,
		HideWindow:    true,
		Width:         1,
		Height:        1,
	})
	if err != nil {
		glfw.Terminate() // No-op when already terminated.
		return nil, fmt.Errorf("glcheck: %w", err)
	}
	glbuild.Logger().Debug("gl context ready", "glfw", glfw.GetVersionString(), "version", gl.GoStr(gl.GetString(gl.VERSION)))
	return func() {
		window.Destroy()
		terminate()
	}, nil
}

// CompileProgram translates the vertex and fragment sources with [Translate] and compiles
// and links them on the current context. Include directives must already be expanded.
func CompileProgram(vertex, fragment string, defines map[string]string) error {
	vs, err := Translate(glbuild.StageVertex, vertex, defines)
	if err != nil {
		return err
	}
	fs, err := Translate(glbuild.StageFragment, fragment, defines)
	if err != nil {
		return err
	}
	prog, err := glgl.CompileProgram(glgl.ShaderSource{Vertex: vs, Fragment: fs})
	if err != nil {
		return fmt.Errorf("glcheck: %w", err)
	}
	prog.Delete()
	return nil
}
