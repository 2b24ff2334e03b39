//go:build tinygo || !cgo

package glcheck

// Init1x1GLFW returns [ErrNoCGO].
func Init1x1GLFW() (terminate func(), err error) {
	return nil, ErrNoCGO
}

// CompileProgram returns [ErrNoCGO].
func CompileProgram(vertex, fragment string, defines map[string]string) error {
	return ErrNoCGO
}
