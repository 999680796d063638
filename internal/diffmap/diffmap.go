// Package diffmap wraps a map and records enough about every write to report
// which keys were added, updated or deleted since the wrapper was created.
package diffmap

import (
	"reflect"

	mapset "github.com/deckarep/golang-set/v2"
)

// Diff partitions the keys whose entries changed.
type Diff[K comparable] struct {
	Added   mapset.Set[K]
	Updated mapset.Set[K]
	Deleted mapset.Set[K]
	// Touched is the union of Added, Updated and Deleted.
	Touched mapset.Set[K]
}

// EmptyDiff returns a Diff with four empty sets.
func EmptyDiff[K comparable]() Diff[K] {
	return Diff[K]{
		Added:   mapset.NewThreadUnsafeSet[K](),
		Updated: mapset.NewThreadUnsafeSet[K](),
		Deleted: mapset.NewThreadUnsafeSet[K](),
		Touched: mapset.NewThreadUnsafeSet[K](),
	}
}

// origin is the state of a key before its first write.
type origin[V any] struct {
	present bool
	value   V
}

// Map records the original state of each key the first time it is written.
// Writes go straight through to the wrapped map.
type Map[K comparable, V any] struct {
	m       map[K]V
	changes map[K]origin[V]
	same    func(a, b V) bool
}

// Option configures a Map.
type Option[K comparable, V any] func(*Map[K, V])

// WithComparer replaces the identity comparison used to decide whether a
// present key was updated.
func WithComparer[K comparable, V any](same func(a, b V) bool) Option[K, V] {
	return func(d *Map[K, V]) {
		d.same = same
	}
}

// Wrap starts tracking writes to m. m must not be nil.
func Wrap[K comparable, V any](m map[K]V, opts ...Option[K, V]) *Map[K, V] {
	d := &Map[K, V]{
		m:       m,
		changes: make(map[K]origin[V]),
		same:    Identical[V],
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Get returns the current value for key.
func (d *Map[K, V]) Get(key K) (V, bool) {
	v, ok := d.m[key]
	return v, ok
}

// Has reports whether key is currently present.
func (d *Map[K, V]) Has(key K) bool {
	_, ok := d.m[key]
	return ok
}

// Set stores v under key.
func (d *Map[K, V]) Set(key K, v V) {
	d.register(key)
	d.m[key] = v
}

// Delete removes key. Deleting an absent key is recorded but harmless.
func (d *Map[K, V]) Delete(key K) {
	d.register(key)
	delete(d.m, key)
}

// Original returns the value key held before it was first written through
// d. For keys never written it returns the current value.
func (d *Map[K, V]) Original(key K) (V, bool) {
	if o, ok := d.changes[key]; ok {
		return o.value, o.present
	}
	return d.Get(key)
}

func (d *Map[K, V]) register(key K) {
	if _, ok := d.changes[key]; ok {
		return
	}
	v, present := d.m[key]
	d.changes[key] = origin[V]{present: present, value: v}
}

// Diff compares the current state of every written key with its original
// state.
func (d *Map[K, V]) Diff() Diff[K] {
	diff := EmptyDiff[K]()
	for key, o := range d.changes {
		cur, present := d.m[key]
		switch {
		case !o.present && present:
			diff.Added.Add(key)
		case o.present && !present:
			diff.Deleted.Add(key)
		case o.present && present && !d.same(o.value, cur):
			diff.Updated.Add(key)
		default:
			continue
		}
		diff.Touched.Add(key)
	}
	return diff
}

// Reset forgets every recorded write, making the current state the new
// baseline.
func (d *Map[K, V]) Reset() {
	clear(d.changes)
}

// Identical reports whether a and b are the same value in the sense of ==.
// Values whose dynamic type is not comparable are never identical, so the
// comparison cannot panic.
func Identical[V any](a, b V) bool {
	x, y := any(a), any(b)
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	tx, ty := reflect.TypeOf(x), reflect.TypeOf(y)
	if tx != ty || !tx.Comparable() {
		return false
	}
	return x == y
}
