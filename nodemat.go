// Package nodemat compiles node material graphs into a pair of GLSL vertex and fragment programs.
//
// Nodes are created through a [Builder] and connected by passing them as arguments
// to other nodes. [Compile] walks the graph from its output nodes and assembles the
// sources with package glbuild.
package nodemat

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/nodemat/glbuild"
)

// Target is the pipeline stage a node's code must be emitted in.
type Target uint8

const (
	// TargetNeutral nodes are emitted in whichever stage consumes them.
	TargetNeutral Target = iota
	// TargetVertex nodes are emitted in the vertex stage. Their value is forwarded
	// through a varying when consumed by the fragment stage.
	TargetVertex
	// TargetFragment nodes can only be emitted in the fragment stage.
	TargetFragment
)

func (t Target) String() string {
	switch t {
	case TargetNeutral:
		return "neutral"
	case TargetVertex:
		return "vertex"
	case TargetFragment:
		return "fragment"
	}
	return "Target(?)"
}

// Node is a material graph node. Implementations must be comparable (usually pointers)
// since [Compile] visits each node once per stage.
type Node interface {
	// VariablePrefix is the prefix from which the node's output variable name is allocated.
	VariablePrefix() string
	Target() Target
	// Type is the type of the node's output. Terminal nodes return [glbuild.TypeUndefined].
	Type() glbuild.Type
	// ForEachInput calls fn with a pointer to each input of the node in the order
	// expected by Build. Unconnected required inputs are passed as pointers to nil.
	ForEachInput(userData any, fn func(userData any, input *Node) error) error
	// Build emits the node's code on state. inputs holds the GLSL expressions of the
	// node's inputs. It returns the GLSL expression of the node's output.
	Build(state *glbuild.BuildState, inputs []string) (string, error)
}

// Builder wraps node creation and graph validation.
// Provides error handling strategies with panics or error accumulation during graph construction.
type Builder struct {
	NoGraphPanic bool
	accumErrs    []error
}

func (bld *Builder) Err() error {
	if len(bld.accumErrs) == 0 {
		return nil
	}
	return errors.Join(bld.accumErrs...)
}

func (bld *Builder) graphErrorf(msg string, args ...any) {
	if !bld.NoGraphPanic {
		panic(fmt.Sprintf(msg, args...))
	}
	bld.accumErrs = append(bld.accumErrs, fmt.Errorf(msg, args...))
}

func (bld *Builder) nilnode(msg string) {
	if !bld.NoGraphPanic {
		panic("nil node argument: " + msg)
	}
	bld.accumErrs = append(bld.accumErrs, errors.New("nil node argument: "+msg))
}

// checkFinite reports non-finite literal values which have no GLSL representation.
func (bld *Builder) checkFinite(node string, values ...float32) {
	for _, v := range values {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			bld.graphErrorf("%s: non-finite value %v", node, v)
			return
		}
	}
}

// checkType reports an input whose type is not one of allowed.
func (bld *Builder) checkType(node, input string, in Node, allowed ...glbuild.Type) {
	if in == nil {
		bld.nilnode(node + " " + input)
		return
	}
	got := in.Type()
	for _, t := range allowed {
		if got == t {
			return
		}
	}
	bld.graphErrorf("%s: input %s has type %s, want one of %v", node, input, got, allowed)
}

// isIdentifier reports whether name is non-empty and made only of [A-Za-z_],
// the form variable names are counted under during allocation.
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// forEachInput is shared by nodes whose inputs are stored in a slice.
func forEachInput(inputs []Node, userData any, fn func(userData any, input *Node) error) error {
	for i := range inputs {
		err := fn(userData, &inputs[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// declare appends the declaration of local variable name of GLSL type typ initialized to expr.
func declare(state *glbuild.BuildState, typ, name, expr string) {
	state.AppendBody(string(glbuild.AppendDecl(nil, typ, name, expr)))
}

func swizzle(expr string, from, to glbuild.Type) string {
	fc, tc := from.Components(), to.Components()
	switch {
	case fc == tc:
		return expr
	case fc > tc && tc == 3:
		return expr + ".xyz"
	case fc > tc && tc == 2:
		return expr + ".xy"
	case fc > tc && tc == 1:
		return expr + ".x"
	case fc == 3 && tc == 4:
		return "vec4(" + expr + ", 1.0)"
	}
	return glbuild.GLType(to) + "(" + expr + ")"
}
