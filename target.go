package weakevent

import (
	"fmt"
	"reflect"
	"runtime"
	"weak"
)

// Callable is anything that decomposes into an ordered list of single targets.
type Callable interface {
	Targets() []Target
}

// Target is a single subscriber: a weakly held receiver plus the method to
// call on it. The method is a method expression or any func whose first
// parameter accepts the receiver, e.g. (*Listener).OnChanged.
//
// The method must not capture the receiver itself, otherwise the receiver can
// never be collected.
type Target struct {
	recvType reflect.Type
	receiver func() (reflect.Value, bool)
	method   reflect.Value
	name     string
	invalid  string
}

// Method binds method to a weak reference of recv.
func Method[R any](recv *R, method any) Target {
	t := Target{
		recvType: reflect.TypeFor[*R](),
		method:   reflect.ValueOf(method),
	}
	if t.method.IsValid() && t.method.Kind() == reflect.Func && !t.method.IsNil() {
		t.name = funcName(t.method)
	}
	return bindReceiver(t, recv)
}

// MethodByName binds the exported method name of *R to a weak reference of recv.
func MethodByName[R any](recv *R, name string) Target {
	recvType := reflect.TypeFor[*R]()
	t := Target{
		recvType: recvType,
		name:     fmt.Sprintf("(%s).%s", recvType, name),
	}
	m, ok := recvType.MethodByName(name)
	if !ok {
		t.invalid = fmt.Sprintf("%s has no exported method %q", recvType, name)
		return t
	}
	t.method = m.Func
	return bindReceiver(t, recv)
}

func bindReceiver[R any](t Target, recv *R) Target {
	if t.invalid != "" {
		return t
	}
	if recv == nil {
		t.invalid = "callable has no receiver"
		return t
	}
	if reason := checkWeakReceiver[R](); reason != "" {
		t.invalid = reason
		return t
	}
	t.receiver = weakReceiver(recv)
	return t
}

// Targets returns t as a single target callable.
func (t Target) Targets() []Target {
	return []Target{t}
}

// Name identifies the method for logging.
func (t Target) Name() string {
	if t.name == "" {
		return "<invalid>"
	}
	return t.name
}

// Alive reports whether the receiver is still reachable.
func (t Target) Alive() bool {
	if t.receiver == nil {
		return false
	}
	_, ok := t.receiver()
	return ok
}

// validate returns the callee shape of the method once the receiver is
// dropped, or a reason the target cannot be used.
func (t Target) validate() (CallShape, string) {
	if t.invalid != "" {
		return CallShape{}, t.invalid
	}
	if t.receiver == nil {
		return CallShape{}, "callable has no receiver"
	}
	if !t.method.IsValid() || t.method.Kind() != reflect.Func || t.method.IsNil() {
		return CallShape{}, "method is not a func"
	}
	mt := t.method.Type()
	if mt.NumIn() == 0 {
		return CallShape{}, fmt.Sprintf("method %s takes no receiver parameter", mt)
	}
	if !t.recvType.AssignableTo(mt.In(0)) {
		return CallShape{}, fmt.Sprintf("receiver %s is not assignable to %s", t.recvType, mt.In(0))
	}
	shape, err := shapeOf(mt, 1)
	if err != nil {
		return CallShape{}, err.Error()
	}
	return shape, ""
}

// Multi is an ordered multi-target callable.
type Multi []Target

func (m Multi) Targets() []Target {
	out := make([]Target, len(m))
	copy(out, m)
	return out
}

// Combine flattens callables into one multi-target callable, keeping order.
func Combine(callables ...Callable) Multi {
	var out Multi
	for _, c := range callables {
		if c == nil {
			continue
		}
		out = append(out, c.Targets()...)
	}
	return out
}

func funcName(fn reflect.Value) string {
	if f := runtime.FuncForPC(fn.Pointer()); f != nil {
		return f.Name()
	}
	return fn.Type().String()
}

// checkWeakReceiver rejects receivers weak.Make cannot track. Zero size values
// share one address and never become unreachable.
func checkWeakReceiver[R any]() string {
	if reflect.TypeFor[R]().Size() == 0 {
		return "receiver has zero size and cannot be weakly observed"
	}
	return ""
}

func weakReceiver[R any](recv *R) func() (reflect.Value, bool) {
	wp := weak.Make(recv)
	return func() (reflect.Value, bool) {
		p := wp.Value()
		if p == nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(p), true
	}
}
