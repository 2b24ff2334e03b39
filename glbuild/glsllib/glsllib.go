// Package glsllib provides the library of named GLSL fragments that material nodes include
// in generated shaders.
package glsllib

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/soypat/nodemat/glbuild"
)

// Keys of the includes shipped in the default library.
const (
	// HelperFunctions declares PI, toLinearSpace, toGammaSpace and square.
	//
	//	vec3 toGammaSpace(vec3 color)
	HelperFunctions = "helperFunctions"
	// LightFunctions declares the point light contribution function.
	//
	//	vec3 computePointLighting(vec3 positionW, vec3 normalW, vec4 lightData, vec4 diffuseColor)
	LightFunctions = "lightFunctions"
	// LightFragmentDeclaration declares the uniforms of light {X}. Meant to be repeated.
	LightFragmentDeclaration = "lightFragmentDeclaration"
	// LightFragment accumulates light {X} into diffuseBase. Meant to be repeated.
	LightFragment = "lightFragment"
	// FogFragmentDeclaration declares fog uniforms, varying and CalcFogFactor guarded by FOG.
	FogFragmentDeclaration = "fogFragmentDeclaration"
	// MorphTargetsVertexDeclaration declares the position attribute of morph target {X}. Meant to be repeated.
	MorphTargetsVertexDeclaration = "morphTargetsVertexDeclaration"
)

//go:embed shaders/*.glsl
var shadersFS embed.FS

var _ glbuild.IncludeLibrary = (*Library)(nil) // Interface implementation compile-time check.

// Library maps include keys to GLSL source. It is read-only once handed to a compilation.
type Library struct {
	sources map[string]string
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{sources: make(map[string]string)}
}

// Default returns a new library containing the includes embedded in this package.
func Default() *Library {
	lib, err := LoadFS(shadersFS, "shaders")
	if err != nil {
		panic(err) // Embedded files are known to be well formed.
	}
	return lib
}

// LoadFS returns a library with every *.glsl file in dir of fsys, keyed by file name without extension.
func LoadFS(fsys fs.FS, dir string) (*Library, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	lib := NewLibrary()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".glsl" {
			continue
		}
		src, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		err = lib.Add(strings.TrimSuffix(name, ".glsl"), string(src))
		if err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// Add registers src under key. Trailing newlines are trimmed since emission adds its own.
func (lib *Library) Add(key, src string) error {
	if key == "" {
		return fmt.Errorf("glsllib: empty include key")
	} else if _, ok := lib.sources[key]; ok {
		return fmt.Errorf("glsllib: duplicate include key %q", key)
	}
	lib.sources[key] = strings.TrimRight(src, "\r\n")
	return nil
}

// Lookup returns the source stored under key. Implements [glbuild.IncludeLibrary].
func (lib *Library) Lookup(key string) (string, bool) {
	src, ok := lib.sources[key]
	return src, ok
}

// Len returns the number of includes in the library.
func (lib *Library) Len() int { return len(lib.sources) }
