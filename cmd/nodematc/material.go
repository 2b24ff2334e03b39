package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/nodemat"
	"github.com/soypat/nodemat/glbuild"
)

// material is the TOML description of a node graph. Nodes may only reference
// nodes declared before them.
type material struct {
	Config nodemat.Config `toml:"config"`
	// Defines are set when expanding includes and compile checking.
	Defines map[string]string `toml:"defines"`
	Nodes   []nodeSpec        `toml:"node"`
}

type nodeSpec struct {
	ID     string    `toml:"id"`
	Kind   string    `toml:"kind"`
	Name   string    `toml:"name"`
	Type   string    `toml:"type"`
	Value  []float32 `toml:"value"`
	Inputs []string  `toml:"inputs"`
	Gamma  bool      `toml:"gamma"`
	Cutoff float32   `toml:"cutoff"`
}

func decodeMaterial(r io.Reader) (material, error) {
	var m material
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	err := dec.Decode(&m)
	var strict *toml.StrictMissingError
	if errors.As(err, &strict) {
		keys := make([]string, len(strict.Errors))
		for i := range strict.Errors {
			keys[i] = strings.Join(strict.Errors[i].Key(), ".")
		}
		return m, fmt.Errorf("unknown fields %s:\n%s", strings.Join(keys, ", "), strict.String())
	} else if err != nil {
		return m, err
	}
	if len(m.Nodes) == 0 {
		return m, errors.New("material has no nodes")
	}
	return m, nil
}

// graph builds the material's nodes and returns its output nodes.
func (m *material) graph() ([]nodemat.Node, error) {
	bld := nodemat.Builder{NoGraphPanic: true}
	byID := make(map[string]nodemat.Node, len(m.Nodes))
	var outputs []nodemat.Node
	for i, spec := range m.Nodes {
		inputs := make([]nodemat.Node, len(spec.Inputs))
		for j, id := range spec.Inputs {
			in, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("node[%d] %q: input %q not declared before use", i, spec.ID, id)
			}
			inputs[j] = in
		}
		n, err := spec.build(&bld, inputs)
		if err != nil {
			return nil, fmt.Errorf("node[%d] %q: %w", i, spec.ID, err)
		}
		switch spec.Kind {
		case "vertexOutput", "fragmentOutput", "alphaTest":
			outputs = append(outputs, n)
		}
		if spec.ID != "" {
			if _, dup := byID[spec.ID]; dup {
				return nil, fmt.Errorf("node[%d]: duplicate id %q", i, spec.ID)
			}
			byID[spec.ID] = n
		}
	}
	if err := bld.Err(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (spec *nodeSpec) build(bld *nodemat.Builder, in []nodemat.Node) (nodemat.Node, error) {
	wantInputs := map[string]int{
		"texture": 1, "scale": 1, "swizzle": 1, "morphTargets": 1, "vertexOutput": 1, "alphaTest": 1,
		"add": 2, "subtract": 2, "multiply": 2, "transform": 2, "lights": 2, "fog": 2,
	}
	if n, ok := wantInputs[spec.Kind]; ok && len(in) != n {
		return nil, fmt.Errorf("%s wants %d inputs, got %d", spec.Kind, n, len(in))
	}
	v := spec.Value
	switch spec.Kind {
	case "float":
		if err := spec.wantValues(1); err != nil {
			return nil, err
		}
		return bld.FloatConstant(v[0]), nil
	case "vec2":
		if err := spec.wantValues(2); err != nil {
			return nil, err
		}
		return bld.Vec2Constant(ms2.Vec{X: v[0], Y: v[1]}), nil
	case "vec3", "color3":
		if err := spec.wantValues(3); err != nil {
			return nil, err
		}
		if spec.Kind == "color3" {
			return bld.Color3Constant(ms3.Vec{X: v[0], Y: v[1], Z: v[2]}), nil
		}
		return bld.Vec3Constant(ms3.Vec{X: v[0], Y: v[1], Z: v[2]}), nil
	case "color4":
		if err := spec.wantValues(4); err != nil {
			return nil, err
		}
		return bld.Color4Constant(ms3.Vec{X: v[0], Y: v[1], Z: v[2]}, v[3]), nil
	case "position":
		return bld.Position(), nil
	case "normal":
		return bld.Normal(), nil
	case "uv":
		return bld.UV(), nil
	case "attribute", "uniform":
		typ, ok := glbuild.ParseType(spec.Type)
		if !ok {
			return nil, fmt.Errorf("unknown type %q", spec.Type)
		}
		if spec.Kind == "attribute" {
			return bld.Attribute(spec.Name, typ), nil
		}
		return bld.Uniform(spec.Name, typ), nil
	case "worldViewProjection":
		return bld.WorldViewProjection(), nil
	case "texture":
		return bld.Texture(spec.Name, in[0]), nil
	case "swizzle":
		return bld.Swizzle(in[0], spec.Name), nil
	case "add":
		return bld.Add(in[0], in[1]), nil
	case "subtract":
		return bld.Subtract(in[0], in[1]), nil
	case "multiply":
		return bld.Multiply(in[0], in[1]), nil
	case "scale":
		if err := spec.wantValues(1); err != nil {
			return nil, err
		}
		return bld.Scale(in[0], v[0]), nil
	case "transform":
		return bld.Transform(in[0], in[1]), nil
	case "lights":
		return bld.Lights(in[0], in[1]), nil
	case "fog":
		return bld.Fog(in[0], in[1]), nil
	case "morphTargets":
		return bld.MorphTargets(in[0]), nil
	case "vertexOutput":
		return bld.VertexOutput(in[0]), nil
	case "fragmentOutput":
		if len(in) != 1 && len(in) != 2 {
			return nil, fmt.Errorf("fragmentOutput wants color and optional alpha inputs, got %d", len(in))
		}
		opts := nodemat.FragmentOutputOptions{ConvertToGamma: spec.Gamma}
		if len(in) == 2 {
			opts.Alpha = in[1]
		}
		return bld.FragmentOutput(in[0], opts), nil
	case "alphaTest":
		return bld.AlphaTest(in[0], spec.Cutoff), nil
	}
	return nil, fmt.Errorf("unknown node kind %q", spec.Kind)
}

func (spec *nodeSpec) wantValues(n int) error {
	if len(spec.Value) != n {
		return fmt.Errorf("%s wants %d values, got %d", spec.Kind, n, len(spec.Value))
	}
	return nil
}
