package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/wasmlink/ffigen/abi"
)

// The interface description document is plain JSON: objects with
// methods, free functions and enums, with types written as nested
// {"kind": ...} nodes.

type ifaceDoc struct {
	Doc       []string    `json:"doc,omitempty"`
	Objects   []objectDoc `json:"objects,omitempty"`
	Functions []funcDoc   `json:"functions,omitempty"`
	Enums     []enumDoc   `json:"enums,omitempty"`
}

type objectDoc struct {
	Name    string    `json:"name"`
	Doc     []string  `json:"doc,omitempty"`
	Methods []funcDoc `json:"methods,omitempty"`
}

type funcDoc struct {
	Name   string   `json:"name"`
	Static bool     `json:"static,omitempty"`
	Async  bool     `json:"async,omitempty"`
	Args   []argDoc `json:"args,omitempty"`
	Ret    *typeDoc `json:"ret,omitempty"`
	Doc    []string `json:"doc,omitempty"`
}

type argDoc struct {
	Name string  `json:"name"`
	Type typeDoc `json:"type"`
}

type enumDoc struct {
	Name     string   `json:"name"`
	Doc      []string `json:"doc,omitempty"`
	Variants []string `json:"variants"`
}

type typeDoc struct {
	Kind  string    `json:"kind"`
	Name  string    `json:"name,omitempty"`
	Owned bool      `json:"owned,omitempty"`
	Elem  *typeDoc  `json:"elem,omitempty"`
	Inner *typeDoc  `json:"inner,omitempty"`
	Elems []typeDoc `json:"elems,omitempty"`
}

// loadInterface reads and resolves an interface description document.
func loadInterface(path string) (*abi.Interface, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseInterface(data)
}

func parseInterface(data []byte) (*abi.Interface, error) {
	var doc ifaceDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse interface document: %w", err)
	}

	iface := &abi.Interface{Doc: doc.Doc}
	for _, o := range doc.Objects {
		decl := abi.ObjectDecl{Name: o.Name, Doc: o.Doc}
		for _, m := range o.Methods {
			fn, err := resolveFunc(m)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", o.Name, m.Name, err)
			}
			decl.Methods = append(decl.Methods, fn)
		}
		iface.Objects = append(iface.Objects, decl)
	}
	for _, f := range doc.Functions {
		fn, err := resolveFunc(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		iface.Functions = append(iface.Functions, fn)
	}
	for _, e := range doc.Enums {
		iface.Enums = append(iface.Enums, abi.Enum{Name: e.Name, Doc: e.Doc, Variants: e.Variants})
	}
	if err := iface.Validate(); err != nil {
		return nil, err
	}
	return iface, nil
}

func resolveFunc(f funcDoc) (abi.Function, error) {
	fn := abi.Function{
		Name:     f.Name,
		IsStatic: f.Static,
		IsAsync:  f.Async,
		Doc:      f.Doc,
	}
	for _, a := range f.Args {
		t, err := resolveType(&a.Type)
		if err != nil {
			return fn, fmt.Errorf("argument %q: %w", a.Name, err)
		}
		fn.Args = append(fn.Args, abi.Arg{Name: a.Name, Type: t})
	}
	if f.Ret != nil {
		t, err := resolveType(f.Ret)
		if err != nil {
			return fn, fmt.Errorf("return: %w", err)
		}
		fn.Ret = t
	}
	return fn, nil
}

var primKinds = map[string]abi.PrimType{
	"u8": abi.U8, "u16": abi.U16, "u32": abi.U32, "u64": abi.U64,
	"usize": abi.Usize,
	"i8":    abi.I8, "i16": abi.I16, "i32": abi.I32, "i64": abi.I64,
	"isize": abi.Isize,
	"bool":  abi.Bool,
	"f32":   abi.F32, "f64": abi.F64,
}

func resolveType(t *typeDoc) (abi.Type, error) {
	if p, ok := primKinds[t.Kind]; ok {
		return abi.Prim{Kind: p}, nil
	}
	switch t.Kind {
	case "string":
		return abi.Str{Owned: t.Owned}, nil
	case "unit":
		return abi.Unit(), nil

	case "buffer", "slice", "vector":
		if t.Elem == nil {
			return nil, fmt.Errorf("%s needs an elem", t.Kind)
		}
		p, ok := primKinds[t.Elem.Kind]
		if !ok {
			return nil, fmt.Errorf("%s elem must be primitive, got %q", t.Kind, t.Elem.Kind)
		}
		switch t.Kind {
		case "buffer":
			return abi.Buffer{Elem: p}, nil
		case "slice":
			return abi.Slice{Elem: p}, nil
		default:
			return abi.Vector{Elem: p}, nil
		}

	case "object":
		if t.Name == "" {
			return nil, fmt.Errorf("object needs a name")
		}
		return abi.Object{Name: t.Name, Owned: t.Owned}, nil

	case "option", "result", "iter", "future", "stream":
		inner := t.Inner
		if inner == nil {
			inner = t.Elem
		}
		if inner == nil {
			return nil, fmt.Errorf("%s needs an inner type", t.Kind)
		}
		in, err := resolveType(inner)
		if err != nil {
			return nil, err
		}
		switch t.Kind {
		case "option":
			return abi.Option{Inner: in}, nil
		case "result":
			return abi.Result{Inner: in}, nil
		case "iter":
			return abi.Iter{Inner: in, Owned: t.Owned}, nil
		case "future":
			return abi.Future{Inner: in, Owned: t.Owned}, nil
		default:
			return abi.Stream{Inner: in, Owned: t.Owned}, nil
		}

	case "tuple":
		elems := make([]abi.Type, 0, len(t.Elems))
		for i := range t.Elems {
			e, err := resolveType(&t.Elems[i])
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return abi.Tuple{Elems: elems}, nil
	}
	return nil, fmt.Errorf("unknown type kind %q", t.Kind)
}
