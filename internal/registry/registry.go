package registry

import (
	"slices"
	"sync/atomic"

	"github.com/alphadose/haxmap"
)

type entry[T any] struct {
	seq   uint64
	value T
}

// Registry is a concurrent name to value map that remembers insertion order.
// Replacing a value moves it to the end of the order.
type Registry[T any] struct {
	values *haxmap.Map[string, entry[T]]
	seq    atomic.Uint64
}

func New[T any]() *Registry[T] {
	return &Registry[T]{
		values: haxmap.New[string, entry[T]](),
	}
}

func (r *Registry[T]) Get(name string) (T, bool) {
	e, ok := r.values.Get(name)
	return e.value, ok
}

func (r *Registry[T]) Add(name string, value T) {
	r.values.Set(name, entry[T]{seq: r.seq.Add(1), value: value})
}

// Del removes name and reports whether it was registered.
func (r *Registry[T]) Del(name string) bool {
	_, ok := r.values.Get(name)
	r.values.Del(name)
	return ok
}

func (r *Registry[T]) Len() int {
	return int(r.values.Len())
}

// Values returns the registered values in insertion order.
func (r *Registry[T]) Values() []T {
	entries := make([]entry[T], 0, r.Len())
	r.values.ForEach(func(_ string, e entry[T]) bool {
		entries = append(entries, e)
		return true
	})
	slices.SortFunc(entries, func(a, b entry[T]) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})

	values := make([]T, len(entries))
	for i, e := range entries {
		values[i] = e.value
	}
	return values
}
