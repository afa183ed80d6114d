package weakevent

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/goliatone/go-errors"
)

// SlotBinding is a type erased view over a Slot[F]. Build one with Expose.
type SlotBinding interface {
	HandlerType() reflect.Type
	bind(fn reflect.Value) (attach, detach func() error)
}

type slotBinding[F any] struct {
	slot Slot[F]
}

// Expose erases the handler type of slot so it can be located by name.
func Expose[F any](slot Slot[F]) SlotBinding {
	return slotBinding[F]{slot: slot}
}

func (b slotBinding[F]) HandlerType() reflect.Type {
	return reflect.TypeFor[F]()
}

func (b slotBinding[F]) bind(fn reflect.Value) (func() error, func() error) {
	h := NewHandler(fn.Interface().(F))
	attach := func() error { return b.slot.Attach(h) }
	detach := func() error { return b.slot.Detach(h) }
	return attach, detach
}

// SlotSource lets a publisher resolve its own instance slots without being
// registered.
type SlotSource interface {
	LookupSlot(name string) (SlotBinding, bool)
}

// Descriptor is a resolved broadcast slot.
type Descriptor struct {
	Name      string
	Owner     any
	OwnerType reflect.Type
	// Static is true for process-wide slots declared on a type.
	Static bool

	binding SlotBinding
}

// HandlerType is the handler func type the slot was declared with.
func (d Descriptor) HandlerType() reflect.Type {
	if d.binding == nil {
		return nil
	}
	return d.binding.HandlerType()
}

// Shape is the call shape of the slot's handler type.
func (d Descriptor) Shape() (CallShape, error) {
	return ShapeOf(d.HandlerType())
}

type slotKey struct {
	owner reflect.Type
	name  string
}

// Registry resolves slots by owner type and name.
type Registry struct {
	mu       sync.RWMutex
	instance map[slotKey]func(owner any) SlotBinding
	static   map[slotKey]SlotBinding
}

func NewRegistry() *Registry {
	return &Registry{
		instance: make(map[slotKey]func(owner any) SlotBinding),
		static:   make(map[slotKey]SlotBinding),
	}
}

// RegisterInstance declares an instance slot name on *T. get returns the slot
// of a given owner.
func RegisterInstance[T any, F any](r *Registry, name string, get func(*T) Slot[F]) error {
	if r == nil {
		return errors.New("registry cannot be nil", errors.CategoryBadInput).
			WithTextCode("NIL_REGISTRY")
	}
	if get == nil {
		return errors.New("slot accessor cannot be nil", errors.CategoryBadInput).
			WithTextCode("NIL_SLOT_ACCESSOR")
	}
	key := slotKey{owner: reflect.TypeFor[*T](), name: name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instance[key]; exists {
		return alreadyRegistered(key, false)
	}
	r.instance[key] = func(owner any) SlotBinding {
		typed, ok := owner.(*T)
		if !ok || typed == nil {
			return nil
		}
		slot := get(typed)
		if slot == nil {
			return nil
		}
		return Expose(slot)
	}
	return nil
}

// RegisterType declares a process-wide slot name on T.
func RegisterType[T any, F any](r *Registry, name string, slot Slot[F]) error {
	if r == nil {
		return errors.New("registry cannot be nil", errors.CategoryBadInput).
			WithTextCode("NIL_REGISTRY")
	}
	if slot == nil {
		return errors.New("slot cannot be nil", errors.CategoryBadInput).
			WithTextCode("NIL_SLOT")
	}
	key := slotKey{owner: staticOwner(reflect.TypeFor[T]()), name: name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.static[key]; exists {
		return alreadyRegistered(key, true)
	}
	r.static[key] = Expose(slot)
	return nil
}

func alreadyRegistered(key slotKey, static bool) error {
	return cloneError(ErrSlotAlreadyRegistered,
		fmt.Sprintf("slot %q already registered on %s", key.name, typeName(key.owner)),
		map[string]any{
			"slot_name":  key.name,
			"owner_type": typeName(key.owner),
			"static":     static,
		})
}

// Locate resolves an instance slot on owner.
func (r *Registry) Locate(owner any, name string) (Descriptor, error) {
	ownerType := reflect.TypeOf(owner)

	if src, ok := owner.(SlotSource); ok {
		if b, found := src.LookupSlot(name); found && b != nil {
			return Descriptor{Name: name, Owner: owner, OwnerType: ownerType, binding: b}, nil
		}
	}

	if r != nil && ownerType != nil {
		r.mu.RLock()
		get, ok := r.instance[slotKey{owner: ownerType, name: name}]
		r.mu.RUnlock()
		if ok {
			if b := get(owner); b != nil {
				return Descriptor{Name: name, Owner: owner, OwnerType: ownerType, binding: b}, nil
			}
		}
	}

	return Descriptor{}, slotNotFound(name, ownerType, false)
}

// LocateType resolves a process-wide slot declared on ownerType. Pointer
// types resolve to their element type.
func (r *Registry) LocateType(ownerType reflect.Type, name string) (Descriptor, error) {
	ownerType = staticOwner(ownerType)
	if r != nil && ownerType != nil {
		r.mu.RLock()
		b, ok := r.static[slotKey{owner: ownerType, name: name}]
		r.mu.RUnlock()
		if ok {
			return Descriptor{Name: name, OwnerType: ownerType, Static: true, binding: b}, nil
		}
	}
	return Descriptor{}, slotNotFound(name, ownerType, true)
}

// Names lists the slot names known for ownerType: its instance slots when it
// is a pointer type, plus the process-wide slots of the underlying type.
func (r *Registry) Names(ownerType reflect.Type) []string {
	if r == nil || ownerType == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	if ownerType.Kind() == reflect.Pointer {
		for k := range r.instance {
			if k.owner == ownerType {
				names = append(names, k.name)
			}
		}
	}
	for k := range r.static {
		if k.owner == staticOwner(ownerType) {
			names = append(names, k.name)
		}
	}
	sort.Strings(names)
	return names
}

func staticOwner(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}
