package weakevent

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-errors"
)

// PassMode describes how a parameter reaches the callee.
type PassMode int

const (
	ByValue PassMode = iota
	ByRefMutable
	ByRefReadonly
	ByRefWriteOnly
)

func (m PassMode) String() string {
	switch m {
	case ByValue:
		return "value"
	case ByRefMutable:
		return "ref"
	case ByRefReadonly:
		return "in"
	case ByRefWriteOnly:
		return "out"
	default:
		return fmt.Sprintf("PassMode(%d)", int(m))
	}
}

// Param is one positional parameter of a CallShape. For reference modes Type
// is the referenced element type and Wrapper the Ref, In or Out type itself.
type Param struct {
	Type    reflect.Type
	Mode    PassMode
	Wrapper reflect.Type
}

func (p Param) String() string {
	if p.Mode == ByValue {
		return p.Type.String()
	}
	return p.Mode.String() + " " + p.Type.String()
}

// CallShape is the call signature of a slot or a callable.
type CallShape struct {
	Params   []Param
	Results  []reflect.Type
	Variadic bool
}

// ShapeOf derives the call shape of a func type.
func ShapeOf(t reflect.Type) (CallShape, error) {
	return shapeOf(t, 0)
}

// ShapeFor derives the call shape of the func type F.
func ShapeFor[F any]() (CallShape, error) {
	return ShapeOf(reflect.TypeFor[F]())
}

// shapeOf skips the first skip parameters, which is how a method expression
// drops its receiver.
func shapeOf(t reflect.Type, skip int) (CallShape, error) {
	if t == nil || t.Kind() != reflect.Func {
		return CallShape{}, errors.New(fmt.Sprintf("%v is not a func type", t), errors.CategoryBadInput).
			WithTextCode("NOT_A_FUNC_TYPE")
	}
	if t.NumIn() < skip {
		return CallShape{}, errors.New(fmt.Sprintf("%v has fewer than %d parameters", t, skip), errors.CategoryBadInput).
			WithTextCode("NOT_A_FUNC_TYPE")
	}

	shape := CallShape{
		Params:   make([]Param, 0, t.NumIn()-skip),
		Variadic: t.IsVariadic(),
	}
	for i := skip; i < t.NumIn(); i++ {
		shape.Params = append(shape.Params, paramOf(t.In(i)))
	}
	for i := 0; i < t.NumOut(); i++ {
		shape.Results = append(shape.Results, t.Out(i))
	}
	return shape, nil
}

func paramOf(t reflect.Type) Param {
	if isRefWrapper(t) {
		rp := reflect.Zero(t).Interface().(refParam)
		return Param{Type: rp.elemType(), Mode: rp.passMode(), Wrapper: t}
	}
	return Param{Type: t, Mode: ByValue}
}

// isRefWrapper matches Ref, In and Out instantiations only. Structs embedding
// one of them pick up its methods by promotion and are plain values.
func isRefWrapper(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t.PkgPath() != refParamType.PkgPath() {
		return false
	}
	if t.NumField() != 1 || t.Field(0).Anonymous {
		return false
	}
	return t.Implements(refParamType)
}

// readOnlyWrapper is the In type a Ref wrapper narrows to, or nil.
func readOnlyWrapper(t reflect.Type) reflect.Type {
	if t == nil || !isRefWrapper(t) {
		return nil
	}
	n, ok := reflect.Zero(t).Interface().(narrowable)
	if !ok {
		return nil
	}
	return reflect.TypeOf(n.readOnlyView())
}

// IsVoid reports whether the shape returns nothing.
func (s CallShape) IsVoid() bool {
	return len(s.Results) == 0
}

// WriteOnlyIndex returns the position of the first write-only parameter or -1.
func (s CallShape) WriteOnlyIndex() int {
	for i, p := range s.Params {
		if p.Mode == ByRefWriteOnly {
			return i
		}
	}
	return -1
}

func (s CallShape) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
		if s.Variadic && i == len(s.Params)-1 {
			params[i] = "..." + strings.TrimPrefix(p.Type.String(), "[]")
		}
	}
	out := "func(" + strings.Join(params, ", ") + ")"
	switch len(s.Results) {
	case 0:
	case 1:
		out += " " + s.Results[0].String()
	default:
		results := make([]string, len(s.Results))
		for i, r := range s.Results {
			results[i] = r.String()
		}
		out += " (" + strings.Join(results, ", ") + ")"
	}
	return out
}

// Accepts reports whether a callee with shape callee can be invoked through a
// caller with shape s. It returns the index of the first mismatching
// parameter, -1 when the mismatch is not positional.
func (s CallShape) Accepts(callee CallShape) (bool, int) {
	if len(s.Params) != len(callee.Params) || s.Variadic != callee.Variadic {
		return false, -1
	}
	if len(s.Results) != len(callee.Results) {
		return false, -1
	}
	for i := range s.Results {
		if s.Results[i] != callee.Results[i] {
			return false, -1
		}
	}
	for i := range s.Params {
		if !compatibleParam(s.Params[i], callee.Params[i]) {
			return false, i
		}
	}
	return true, -1
}

func compatibleParam(caller, callee Param) bool {
	if caller.Type != callee.Type {
		return false
	}
	if caller.Mode == ByValue || callee.Mode == ByValue {
		return caller.Mode == callee.Mode
	}
	if caller.Wrapper == callee.Wrapper {
		return true
	}
	// a callee must never gain write access through a read-only reference
	return needsNarrowing(caller, callee) && callee.Wrapper == readOnlyWrapper(caller.Wrapper)
}

// needsNarrowing reports whether the argument must be converted from a mutable
// reference into a read-only view before it reaches the callee.
func needsNarrowing(caller, callee Param) bool {
	return caller.Mode == ByRefMutable && callee.Mode == ByRefReadonly
}
