// Package sched implements the deterministic fixed-timestep tick scheduler:
// a type-keyed Resources registry with borrow tracking, a World entity
// store, a registration-ordered SeqSchedule, and a Replay command log.
package sched

import (
	"fmt"
	"reflect"
	"sync"
)

// ErrBorrowConflict is returned when a borrow would create
// {shared,exclusive} or {exclusive,exclusive} simultaneously on the same
// resource type.
var ErrBorrowConflict = fmt.Errorf("sched: borrow conflict")

type borrowState struct {
	shared    int
	exclusive bool
}

// Resources is a type-keyed map: at most one value per concrete type, with
// shared/exclusive borrow tracking enforced at borrow time.
//
// This is the thread-safe variant (a mutex guards the registry), for systems that
// parallelise across entities within a tick; LocalResources below is the
// single-threaded interior-mutability counterpart for a schedule that runs
// every system on one goroutine and wants to skip the lock overhead.
type Resources struct {
	mu      sync.Mutex
	values  map[reflect.Type]interface{}
	borrows map[reflect.Type]*borrowState
}

func NewResources() *Resources {
	return &Resources{
		values:  make(map[reflect.Type]interface{}),
		borrows: make(map[reflect.Type]*borrowState),
	}
}

// Put installs v as the sole value of its concrete type.
func Put[T any](r *Resources, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	r.values[t] = v
	if _, ok := r.borrows[t]; !ok {
		r.borrows[t] = &borrowState{}
	}
}

// BorrowShared acquires a shared (read) borrow of T's value and returns a
// release function. Fails if an exclusive borrow is outstanding.
func BorrowShared[T any](r *Resources) (T, func(), error) {
	var zero T
	r.mu.Lock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	st := r.borrowOf(t)
	if st.exclusive {
		r.mu.Unlock()
		return zero, func() {}, ErrBorrowConflict
	}
	st.shared++
	v, ok := r.values[t].(T)
	r.mu.Unlock()
	if !ok {
		return zero, func() {}, fmt.Errorf("sched: resource %s not present", t)
	}
	release := func() {
		r.mu.Lock()
		st.shared--
		r.mu.Unlock()
	}
	return v, release, nil
}

// BorrowExclusive acquires an exclusive (write) borrow. Fails if any
// shared or exclusive borrow is outstanding.
func BorrowExclusive[T any](r *Resources) (*T, func(), error) {
	r.mu.Lock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	st := r.borrowOf(t)
	if st.exclusive || st.shared > 0 {
		r.mu.Unlock()
		return nil, func() {}, ErrBorrowConflict
	}
	st.exclusive = true
	v, ok := r.values[t].(T)
	r.mu.Unlock()
	if !ok {
		r.mu.Lock()
		st.exclusive = false
		r.mu.Unlock()
		return nil, func() {}, fmt.Errorf("sched: resource %s not present", t)
	}
	release := func() {
		r.mu.Lock()
		r.values[t] = v
		st.exclusive = false
		r.mu.Unlock()
	}
	return &v, release, nil
}

func (r *Resources) borrowOf(t reflect.Type) *borrowState {
	st, ok := r.borrows[t]
	if !ok {
		st = &borrowState{}
		r.borrows[t] = st
	}
	return st
}

// LocalResources is the single-threaded variant: the same type-keyed,
// borrow-checked registry as Resources, but with no mutex — borrow
// conflicts are still tracked and rejected (interior mutability, not
// unchecked access), just without any locking, for a schedule that never
// calls in from more than one goroutine.
type LocalResources struct {
	values  map[reflect.Type]interface{}
	borrows map[reflect.Type]*borrowState
}

func NewLocalResources() *LocalResources {
	return &LocalResources{
		values:  make(map[reflect.Type]interface{}),
		borrows: make(map[reflect.Type]*borrowState),
	}
}

// PutLocal installs v as the sole value of its concrete type.
func PutLocal[T any](r *LocalResources, v T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	r.values[t] = v
	if _, ok := r.borrows[t]; !ok {
		r.borrows[t] = &borrowState{}
	}
}

// BorrowSharedLocal acquires a shared (read) borrow of T's value and
// returns a release function. Fails if an exclusive borrow is outstanding.
func BorrowSharedLocal[T any](r *LocalResources) (T, func(), error) {
	var zero T
	t := reflect.TypeOf((*T)(nil)).Elem()
	st := r.borrowOfLocal(t)
	if st.exclusive {
		return zero, func() {}, ErrBorrowConflict
	}
	st.shared++
	v, ok := r.values[t].(T)
	if !ok {
		st.shared--
		return zero, func() {}, fmt.Errorf("sched: resource %s not present", t)
	}
	release := func() { st.shared-- }
	return v, release, nil
}

// BorrowExclusiveLocal acquires an exclusive (write) borrow. Fails if any
// shared or exclusive borrow is outstanding.
func BorrowExclusiveLocal[T any](r *LocalResources) (*T, func(), error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	st := r.borrowOfLocal(t)
	if st.exclusive || st.shared > 0 {
		return nil, func() {}, ErrBorrowConflict
	}
	st.exclusive = true
	v, ok := r.values[t].(T)
	if !ok {
		st.exclusive = false
		return nil, func() {}, fmt.Errorf("sched: resource %s not present", t)
	}
	release := func() {
		r.values[t] = v
		st.exclusive = false
	}
	return &v, release, nil
}

func (r *LocalResources) borrowOfLocal(t reflect.Type) *borrowState {
	st, ok := r.borrows[t]
	if !ok {
		st = &borrowState{}
		r.borrows[t] = st
	}
	return st
}
