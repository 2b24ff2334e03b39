// Command nodematc compiles a node material described in TOML into a vertex
// and fragment GLSL program pair.
//
//	nodematc -in material.toml -out material -expand
//
// writes material.vert and material.frag.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/soypat/nodemat"
	"github.com/soypat/nodemat/glbuild"
	"github.com/soypat/nodemat/glcheck"
)

var (
	flagIn      string
	flagOut     string
	flagExpand  bool
	flagCheck   bool
	flagVerbose bool
)

func init() {
	flag.StringVar(&flagIn, "in", "", "TOML material description to compile")
	flag.StringVar(&flagOut, "out", "", "output path prefix for the .vert and .frag files. Defaults to -in without extension")
	flag.BoolVar(&flagExpand, "expand", false, "resolve include directives in the written sources")
	flag.BoolVar(&flagCheck, "check", false, "compile the program with the local OpenGL driver")
	flag.BoolVar(&flagVerbose, "v", false, "log debug information to stderr")
}

func main() {
	flag.Parse()
	if flagCheck {
		runtime.LockOSThread() // GL contexts are bound to the main thread.
	}
	if flagVerbose {
		glbuild.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if flagIn == "" {
		flag.Usage()
		os.Exit(2)
	}
	err := run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "nodematc:", err)
		os.Exit(1)
	}
}

func run() error {
	fp, err := os.Open(flagIn)
	if err != nil {
		return err
	}
	mat, err := decodeMaterial(fp)
	fp.Close()
	if err != nil {
		return fmt.Errorf("decoding %s: %w", flagIn, err)
	}
	outputs, err := mat.graph()
	if err != nil {
		return err
	}
	prog, err := nodemat.Compile(mat.Config, outputs...)
	if err != nil {
		return err
	}
	vertex, fragment := prog.Vertex, prog.Fragment
	if flagExpand || flagCheck {
		expVertex, expFragment, err := prog.Expand(mat.Defines)
		if err != nil {
			return err
		}
		if flagCheck {
			err = check(expVertex, expFragment, prog.MergeDefines(mat.Defines))
			if err != nil {
				return err
			}
		}
		if flagExpand {
			vertex, fragment = expVertex, expFragment
		}
	}

	prefix := flagOut
	if prefix == "" {
		prefix = strings.TrimSuffix(flagIn, filepath.Ext(flagIn))
	}
	err = os.WriteFile(prefix+".vert", []byte(vertex), 0o644)
	if err != nil {
		return err
	}
	err = os.WriteFile(prefix+".frag", []byte(fragment), 0o644)
	if err != nil {
		return err
	}
	glbuild.Logger().Info("wrote program", "vertex", prefix+".vert", "fragment", prefix+".frag",
		"attributes", prog.Attributes, "varyings", prog.Varyings, "samplers", prog.Samplers)
	return nil
}

func check(vertex, fragment string, defines map[string]string) error {
	terminate, err := glcheck.Init1x1GLFW()
	if err != nil {
		return err
	}
	defer terminate()
	err = glcheck.CompileProgram(vertex, fragment, defines)
	if err != nil {
		return err
	}
	glbuild.Logger().Info("program compiled", "driver", "opengl")
	return nil
}
