package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ImageVersion is the version of the binary image format written by
// MarshalImage.
const ImageVersion = 1

var imageEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	imageEncMode = em
}

// Serialization types

type constantDef struct {
	Type   string `cbor:"1,keyasint"`
	Number int64  `cbor:"2,keyasint,omitempty"`
	String string `cbor:"3,keyasint,omitempty"`
}

type functionDef struct {
	Name         string   `cbor:"1,keyasint"`
	HasOutVar    bool     `cbor:"2,keyasint,omitempty"`
	Parameters   []string `cbor:"3,keyasint,omitempty"`
	Variables    []string `cbor:"4,keyasint,omitempty"`
	Instructions []byte   `cbor:"5,keyasint,omitempty"`
}

type imageDef struct {
	Version      int           `cbor:"1,keyasint"`
	Constants    []constantDef `cbor:"2,keyasint,omitempty"`
	Functions    []functionDef `cbor:"3,keyasint,omitempty"`
	Variables    []string      `cbor:"4,keyasint,omitempty"`
	Instructions []byte        `cbor:"5,keyasint,omitempty"`
}

// MarshalImage serializes a Program to a canonical CBOR image.
func MarshalImage(p *Program) ([]byte, error) {
	img := imageDef{
		Version:      ImageVersion,
		Constants:    make([]constantDef, len(p.constants)),
		Functions:    make([]functionDef, len(p.functions)),
		Variables:    p.main.variables,
		Instructions: p.main.instructions,
	}
	for i, c := range p.constants {
		switch c.Kind() {
		case NumberKind:
			img.Constants[i] = constantDef{Type: NumberKind.String(), Number: c.number}
		case StringKind:
			img.Constants[i] = constantDef{Type: StringKind.String(), String: c.str}
		default:
			return nil, fmt.Errorf("bytecode: constant %d has no kind", i)
		}
	}
	for i, fn := range p.functions {
		img.Functions[i] = functionDef{
			Name:         fn.name,
			HasOutVar:    fn.hasOutVar,
			Parameters:   fn.parameters,
			Variables:    fn.variables,
			Instructions: fn.instructions,
		}
	}
	return imageEncMode.Marshal(img)
}

// UnmarshalImage deserializes a Program from a CBOR image. The result is not
// validated; call Validate before trusting it.
func UnmarshalImage(data []byte) (*Program, error) {
	var img imageDef
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal image: %w", err)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("bytecode: unsupported image version %d", img.Version)
	}
	params := ProgramParams{
		Constants:    make([]Constant, len(img.Constants)),
		Functions:    make([]*Function, len(img.Functions)),
		Variables:    img.Variables,
		Instructions: img.Instructions,
	}
	for i, c := range img.Constants {
		switch c.Type {
		case NumberKind.String():
			params.Constants[i] = NumberConstant(c.Number)
		case StringKind.String():
			params.Constants[i] = StringConstant(c.String)
		default:
			return nil, fmt.Errorf("bytecode: constant %d has unsupported type %q", i, c.Type)
		}
	}
	for i, fn := range img.Functions {
		params.Functions[i] = NewFunction(FunctionParams{
			Name:         fn.Name,
			HasOutVar:    fn.HasOutVar,
			Parameters:   fn.Parameters,
			Variables:    fn.Variables,
			Instructions: fn.Instructions,
		})
	}
	return NewProgram(params), nil
}
