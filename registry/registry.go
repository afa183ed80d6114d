package registry

import (
	"context"
	"os"
	"reflect"
	"slices"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-weakevent"
)

var (
	globalMu       sync.RWMutex
	globalRegistry = weakevent.NewRegistry()
	globalOptions  []weakevent.Option
)

var globalSubsMu sync.Mutex
var globalSubs []weakevent.Handle

// defaultLogger reports failures nobody else can see, such as a self detach
// the publisher rejected. SetOptions with weakevent.WithLogger replaces it.
var defaultLogger weakevent.Logger = weakevent.NewTextLogger(os.Stderr, weakevent.LevelWarn)

// RegisterInstance declares an instance slot on *T in the global registry.
func RegisterInstance[T any, F any](name string, get func(*T) weakevent.Slot[F]) error {
	return weakevent.RegisterInstance(current(), name, get)
}

// RegisterType declares a process-wide slot on T in the global registry.
func RegisterType[T any, F any](name string, slot weakevent.Slot[F]) error {
	return weakevent.RegisterType[T, F](current(), name, slot)
}

// SetOptions sets the options applied to every manager the package creates,
// e.g. a logger or a config. Without a logger option managers log warnings
// and errors to stderr. The global registry always wins over
// weakevent.WithRegistry.
func SetOptions(opts ...weakevent.Option) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalOptions = append([]weakevent.Option(nil), opts...)
}

// Registry returns the global registry.
func Registry() *weakevent.Registry {
	return current()
}

// Subscribe weakly subscribes callable to the instance slot name of owner and
// tracks the handle until Stop.
func Subscribe[F any](owner any, name string, callable weakevent.Callable) (weakevent.Handle, error) {
	h, err := manager[F]().Subscribe(owner, name, callable)
	if err != nil {
		return nil, err
	}
	trackSubscription(h)
	return h, nil
}

// SubscribeType weakly subscribes callable to a process-wide slot and tracks
// the handle until Stop.
func SubscribeType[F any](ownerType reflect.Type, name string, callable weakevent.Callable) (weakevent.Handle, error) {
	h, err := manager[F]().SubscribeType(ownerType, name, callable)
	if err != nil {
		return nil, err
	}
	trackSubscription(h)
	return h, nil
}

// Tracked returns the number of handles that still have an attached member.
func Tracked() int {
	globalSubsMu.Lock()
	defer globalSubsMu.Unlock()
	globalSubs = pruneInactive(globalSubs)
	return len(globalSubs)
}

// Stop disposes every tracked handle and resets the global registry.
func Stop(_ context.Context) error {
	err := disposeAll()
	globalMu.Lock()
	globalRegistry = weakevent.NewRegistry()
	globalOptions = nil
	globalMu.Unlock()
	return err
}

// WithTestRegistry runs fn against a fresh registry, disposes whatever fn
// subscribed and restores the previous state.
func WithTestRegistry(fn func()) {
	globalMu.Lock()
	oldRegistry, oldOptions := globalRegistry, globalOptions
	globalRegistry = weakevent.NewRegistry()
	globalOptions = nil
	globalMu.Unlock()

	oldSubs := stashSubscriptions()
	defer func() {
		_ = disposeAll()
		restoreSubscriptions(oldSubs)

		globalMu.Lock()
		globalRegistry, globalOptions = oldRegistry, oldOptions
		globalMu.Unlock()
	}()

	fn()
}

func current() *weakevent.Registry {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalRegistry
}

func manager[F any]() *weakevent.Manager[F] {
	globalMu.RLock()
	opts := append([]weakevent.Option{weakevent.WithLogger(defaultLogger)}, globalOptions...)
	reg := globalRegistry
	globalMu.RUnlock()

	opts = append(opts, weakevent.WithRegistry(reg))
	return weakevent.NewManager[F](opts...)
}

func trackSubscription(h weakevent.Handle) {
	if h == nil {
		return
	}
	globalSubsMu.Lock()
	defer globalSubsMu.Unlock()
	globalSubs = append(pruneInactive(globalSubs), h)
}

// pruneInactive drops handles whose members all detached themselves after
// their receivers were collected.
func pruneInactive(subs []weakevent.Handle) []weakevent.Handle {
	return slices.DeleteFunc(subs, func(h weakevent.Handle) bool {
		return !h.Active()
	})
}

func stashSubscriptions() []weakevent.Handle {
	globalSubsMu.Lock()
	defer globalSubsMu.Unlock()
	old := globalSubs
	globalSubs = nil
	return old
}

func restoreSubscriptions(subs []weakevent.Handle) {
	globalSubsMu.Lock()
	defer globalSubsMu.Unlock()
	globalSubs = subs
}

func disposeAll() error {
	globalSubsMu.Lock()
	subs := globalSubs
	globalSubs = nil
	globalSubsMu.Unlock()

	var errs error
	for _, h := range subs {
		if h == nil {
			continue
		}
		if err := h.Dispose(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}
