// Package value implements the dynamic value container PLEB's message
// envelope carries (spec.md §4.I: "Dynamic value container") and the
// conversion registry that bridges nominal types without exposing
// reflection to callers.
//
// Value is an erased single-value box: a type-id plus the boxed value
// (spec.md §9: "where the target language has a natural 'any'
// container use it"). Go's any/interface{} is exactly that container,
// so Value is a thin wrapper adding typed inspection, move-out, and
// conversion-registry-assisted coercion on top of it.
package value

import (
	"fmt"
	"reflect"
	"sync"

	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Value holds at most one dynamically-typed payload.
type Value struct {
	typ reflect.Type
	v   any
}

// Empty is the zero Value: no type, no payload.
var Empty = Value{}

// Of boxes v into a Value. Of(nil) returns Empty.
func Of(v any) Value {
	if v == nil {
		return Empty
	}
	return Value{typ: reflect.TypeOf(v), v: v}
}

// IsEmpty reports whether the value holds nothing.
func (val Value) IsEmpty() bool { return val.typ == nil }

// Type returns the reflect.Type of the boxed payload, or nil if empty.
func (val Value) Type() reflect.Type { return val.typ }

// Raw returns the boxed payload as an untyped any.
func (val Value) Raw() any { return val.v }

// As attempts a direct (non-converting) typed extraction.
func As[T any](val Value) (T, bool) {
	var zero T
	if val.IsEmpty() {
		return zero, false
	}
	t, ok := val.v.(T)
	return t, ok
}

// Into extracts val as type T, first trying a direct assertion and
// falling back to the global conversion Registry if that fails. It
// returns ErrIncompatibleType (wrapped) when neither succeeds.
func Into[T any](val Value) (T, error) {
	var zero T
	if v, ok := As[T](val); ok {
		return v, nil
	}
	dst := reflect.TypeOf(zero)
	if dst == nil {
		// T is an interface type; reflect.TypeOf(zero) is nil for a nil
		// interface value, so fall back to reflecting the target via a
		// typed pointer trick.
		dst = reflect.TypeOf((*T)(nil)).Elem()
	}
	converted, err := defaultRegistry.Convert(val, dst)
	if err != nil {
		return zero, err
	}
	v, ok := As[T](converted)
	if !ok {
		return zero, fmt.Errorf("value: conversion registry returned %s, want %s: %w", converted.Type(), dst, ErrIncompatibleType)
	}
	return v, nil
}

// ErrIncompatibleType is returned when a value cannot be interpreted
// as the type a handler expected (spec.md §7).
var ErrIncompatibleType = fmt.Errorf("pleb: incompatible value type")

// ConvertFunc converts a boxed value of one concrete type to another.
type ConvertFunc func(Value) (Value, error)

// Registry maps (source type, target type) pairs to conversion
// functions. The zero Registry is ready to use; all methods are safe
// for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	fns map[conversionKey]ConvertFunc
}

type conversionKey struct {
	src, dst reflect.Type
}

// NewRegistry returns an empty, independent conversion registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[conversionKey]ConvertFunc)}
}

// Register installs a conversion function from src to dst. It
// overwrites any previously registered conversion for the same pair.
func (r *Registry) Register(src, dst reflect.Type, fn ConvertFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fns == nil {
		r.fns = make(map[conversionKey]ConvertFunc)
	}
	r.fns[conversionKey{src, dst}] = fn
}

// Convert looks up and applies the conversion from val's current type
// to dst. It fails with ErrIncompatibleType if no such conversion was
// registered.
func (r *Registry) Convert(val Value, dst reflect.Type) (Value, error) {
	if val.IsEmpty() {
		return Empty, fmt.Errorf("value: cannot convert an empty value to %s: %w", dst, ErrIncompatibleType)
	}
	r.mu.RLock()
	fn, ok := r.fns[conversionKey{val.typ, dst}]
	r.mu.RUnlock()
	if !ok {
		return Empty, fmt.Errorf("value: no conversion registered from %s to %s: %w", val.typ, dst, ErrIncompatibleType)
	}
	return fn(val)
}

// defaultRegistry is the process-wide conversion registry (spec.md §9:
// "The conversion registry is similarly global"), tolerant of
// concurrent initialization the way the global root topic is (see
// pleb.Root).
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide conversion registry.
func DefaultRegistry() *Registry { return defaultRegistry }

// FromProtoStruct boxes a protobuf Struct, the canonical JSON-like
// dynamic value protobuf itself offers — handy when a message
// originates from a system that already speaks protobuf Struct/Any
// rather than plain Go values.
func FromProtoStruct(s *structpb.Struct) Value { return Of(s) }

// FromProtoAny boxes a protobuf Any.
func FromProtoAny(a *anypb.Any) Value { return Of(a) }
