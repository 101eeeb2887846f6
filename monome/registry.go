package monome

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a device of one protocol generation bound to t.
type Factory func(t Transport) Device

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a protocol generation available to New. Bindings call it
// from init.
func Register(name string, f Factory) {
	if f == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// New constructs a device of the named generation.
func New(name string, t Transport) (Device, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProto, name)
	}
	return f(t), nil
}

// List returns the registered generation names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
