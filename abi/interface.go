package abi

import (
	"github.com/wasmlink/ffigen/errors"
)

// ObjectDecl is a declared object: a named collection of methods.
type ObjectDecl struct {
	Name    string
	Doc     []string
	Methods []Function
}

// Enum is a declared enumeration. Enums carry no lowering of their
// own; the parser resolves enum-typed values to their primitive
// representation before entities reach the generator. They are kept so
// backends can emit the named constants.
type Enum struct {
	Name     string
	Doc      []string
	Variants []string
}

// Interface is one parsed interface definition: the immutable input to
// generation.
type Interface struct {
	Doc       []string
	Objects   []ObjectDecl
	Functions []Function
	Enums     []Enum
}

// Validate checks the interface for duplicate identifiers and object
// references that resolve to nothing. Validation failures are fatal;
// generation never proceeds past them.
func (i *Interface) Validate() error {
	seen := make(map[string]bool)
	declare := func(name string) error {
		if seen[name] {
			return errors.DuplicateIdent(name)
		}
		seen[name] = true
		return nil
	}

	for _, o := range i.Objects {
		if err := declare(o.Name); err != nil {
			return err
		}
		methods := make(map[string]bool)
		for _, m := range o.Methods {
			if methods[m.Name] {
				return errors.DuplicateIdent(o.Name + "." + m.Name)
			}
			methods[m.Name] = true
		}
	}
	for _, f := range i.Functions {
		if err := declare(f.Name); err != nil {
			return err
		}
	}
	for _, e := range i.Enums {
		if err := declare(e.Name); err != nil {
			return err
		}
		vs := make(map[string]bool)
		for _, v := range e.Variants {
			if vs[v] {
				return errors.DuplicateIdent(e.Name + "." + v)
			}
			vs[v] = true
		}
	}

	objects := make(map[string]bool, len(i.Objects))
	for _, o := range i.Objects {
		objects[o.Name] = true
	}
	for _, f := range i.AllFunctions() {
		for _, a := range f.Args {
			if err := checkRefs(a.Type, objects); err != nil {
				return err
			}
		}
		if f.Ret != nil {
			if err := checkRefs(f.Ret, objects); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkRefs(t Type, objects map[string]bool) error {
	switch v := t.(type) {
	case Object:
		if !objects[v.Name] {
			return errors.UnknownObject(v.Name)
		}
	case Option:
		return checkRefs(v.Inner, objects)
	case Result:
		return checkRefs(v.Inner, objects)
	case Tuple:
		for _, e := range v.Elems {
			if err := checkRefs(e, objects); err != nil {
				return err
			}
		}
	case Iter:
		return checkRefs(v.Inner, objects)
	case Future:
		return checkRefs(v.Inner, objects)
	case Stream:
		return checkRefs(v.Inner, objects)
	}
	return nil
}

// AllFunctions returns every declared callable in deterministic order:
// free functions first, then each object's constructors and methods in
// declaration order. Object and Kind fields are normalized on method
// copies. Synthesized next/poll operations are not included; see
// Companions.
func (i *Interface) AllFunctions() []Function {
	out := make([]Function, 0, len(i.Functions))
	out = append(out, i.Functions...)
	for _, o := range i.Objects {
		for _, m := range o.Methods {
			fn := m
			fn.Object = o.Name
			if fn.Kind == KindFree {
				if fn.IsStatic {
					fn.Kind = KindConstructor
				} else {
					fn.Kind = KindMethod
				}
			}
			out = append(out, fn)
		}
	}
	return out
}

// AllCompanions returns the synthesized next/poll operations for every
// iterator, future and stream appearing in any declared function's
// return type, in deterministic order.
func (i *Interface) AllCompanions() []Function {
	var out []Function
	for _, f := range i.AllFunctions() {
		out = append(out, Companions(&f)...)
	}
	return out
}
