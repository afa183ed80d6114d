package weakevent

import "reflect"

// Ref is a mutable reference parameter. Writes through Set are visible to the
// broadcaster after the call returns.
type Ref[T any] struct {
	p *T
}

// RefOf wraps p as a mutable reference parameter.
func RefOf[T any](p *T) Ref[T] {
	return Ref[T]{p: p}
}

func (r Ref[T]) Get() T {
	if r.p == nil {
		var zero T
		return zero
	}
	return *r.p
}

func (r Ref[T]) Set(v T) {
	if r.p != nil {
		*r.p = v
	}
}

// ReadOnly returns a read-only view over the same storage.
func (r Ref[T]) ReadOnly() In[T] {
	return In[T]{p: r.p}
}

// In is a read-only reference parameter. The callee can observe the value but
// has no way to write through it.
type In[T any] struct {
	p *T
}

// InOf wraps p as a read-only reference parameter.
func InOf[T any](p *T) In[T] {
	return In[T]{p: p}
}

func (r In[T]) Get() T {
	if r.p == nil {
		var zero T
		return zero
	}
	return *r.p
}

// Out is a write-only parameter. Slots declaring one are rejected, the type
// exists so such shapes can be described and refused.
type Out[T any] struct {
	p *T
}

// OutOf wraps p as a write-only parameter.
func OutOf[T any](p *T) Out[T] {
	return Out[T]{p: p}
}

func (o Out[T]) Set(v T) {
	if o.p != nil {
		*o.p = v
	}
}

type refParam interface {
	passMode() PassMode
	elemType() reflect.Type
}

type narrowable interface {
	readOnlyView() any
}

func (Ref[T]) passMode() PassMode     { return ByRefMutable }
func (Ref[T]) elemType() reflect.Type { return reflect.TypeFor[T]() }
func (r Ref[T]) readOnlyView() any    { return r.ReadOnly() }

func (In[T]) passMode() PassMode     { return ByRefReadonly }
func (In[T]) elemType() reflect.Type { return reflect.TypeFor[T]() }

func (Out[T]) passMode() PassMode     { return ByRefWriteOnly }
func (Out[T]) elemType() reflect.Type { return reflect.TypeFor[T]() }

var refParamType = reflect.TypeFor[refParam]()
