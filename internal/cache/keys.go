package cache

import (
	"context"
	"reflect"
	"runtime"

	"github.com/Borislavv/go-localcache/internal/cache/db/model"
)

// Call describes a cached computation: the function, its receiver if any and its inputs.
type Call struct {
	Func     any
	Parent   any
	Inputs   []any
	KwInputs map[string]any
}

// KeyGenerator derives the key parts of a call.
type KeyGenerator interface {
	Parts(ctx context.Context, call Call) []any
}

type ctxKey int

const (
	userCtxKey ctxKey = iota
	componentCtxKey
)

// WithUser attaches the identity of the current caller to ctx.
func WithUser(ctx context.Context, user any) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// WithComponent attaches the current component key to ctx.
func WithComponent(ctx context.Context, component any) context.Context {
	return context.WithValue(ctx, componentCtxKey, component)
}

func UserFrom(ctx context.Context) any      { return ctx.Value(userCtxKey) }
func ComponentFrom(ctx context.Context) any { return ctx.Value(componentCtxKey) }

// SimpleKeys keys a call by what is computed: the receiver type and the function name.
// Without a receiver the fully qualified function name is used alone.
type SimpleKeys struct{}

func (SimpleKeys) Parts(_ context.Context, call Call) []any {
	if call.Parent == nil {
		return []any{FuncName(call.Func)}
	}
	return []any{typeName(call.Parent), FuncName(call.Func)}
}

// ExtendedKeys keys a call by function name, inputs, component and optionally the user.
type ExtendedKeys struct {
	ConsiderUser bool
}

func (k ExtendedKeys) Parts(ctx context.Context, call Call) []any {
	parts := []any{FuncName(call.Func), call.Inputs, call.KwInputs, ComponentFrom(ctx)}
	if k.ConsiderUser {
		parts = append(parts, UserFrom(ctx))
	}
	return parts
}

// TypedKeys is ExtendedKeys plus the receiver type, so all receivers of one type share entries.
type TypedKeys struct {
	ExtendedKeys
}

func (k TypedKeys) Parts(ctx context.Context, call Call) []any {
	var parent string
	if call.Parent != nil {
		parent = typeName(call.Parent)
	}
	return append([]any{parent}, k.ExtendedKeys.Parts(ctx, call)...)
}

// FuncName returns the fully qualified name of fn. Strings pass through unchanged.
func FuncName(fn any) string {
	switch f := fn.(type) {
	case nil:
		return ""
	case string:
		return f
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return typeName(fn)
	}
	if rf := runtime.FuncForPC(v.Pointer()); rf != nil {
		return rf.Name()
	}
	return v.Type().String()
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	return base.PkgPath() + "." + t.String()
}

func hashCall(ctx context.Context, keys KeyGenerator, call Call) (*model.Key, error) {
	return model.NewKey(keys.Parts(ctx, call)...)
}
