// internal/bridge/registry.go
package bridge

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Handler is the native side of a callable function. It receives arguments
// already decoded against the function's signature.
type Handler func(ctx context.Context, args Args) (any, error)

// CallableFunction binds a keyword to a native handler.
type CallableFunction struct {
	// Owner is the object hosting the method. It is borrowed for diagnostics only.
	Owner      any
	MethodName string
	Keyword    string
	// Signature fixes the parameter kinds. A nil signature disables checking
	// and passes coerced values through unchanged.
	Signature []Kind

	handler Handler

	mu        sync.Mutex
	arguments []Value
}

// Arguments returns the values used for the most recent invocation.
func (f *CallableFunction) Arguments() []Value {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Value, len(f.arguments))
	copy(out, f.arguments)
	return out
}

func (f *CallableFunction) setArguments(args []Value) {
	f.mu.Lock()
	f.arguments = args
	f.mu.Unlock()
}

// decode checks args against the declared signature.
func (f *CallableFunction) decode(args []Value) (Args, error) {
	if f.Signature == nil {
		return Args(args), nil
	}
	if len(args) != len(f.Signature) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(f.Signature), len(args))
	}
	out := make(Args, len(args))
	for i, want := range f.Signature {
		v, err := args[i].As(want)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// invoke replaces the argument slots and calls the handler, converting panics
// into errors.
func (f *CallableFunction) invoke(ctx context.Context, args []Value) (result any, err error) {
	f.setArguments(args)

	decoded, err := f.decode(args)
	if err != nil {
		return nil, &InvocationError{Keyword: f.Keyword, MethodName: f.MethodName, Err: err}
	}

	defer func() {
		if r := recover(); r != nil {
			err = &InvocationError{
				Keyword:    f.Keyword,
				MethodName: f.MethodName,
				Err:        fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()

	result, err = f.handler(ctx, decoded)
	if err != nil {
		return nil, &InvocationError{Keyword: f.Keyword, MethodName: f.MethodName, Err: err}
	}
	return result, nil
}

// Registry maps keywords to callable functions. It is safe for concurrent use.
type Registry struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	entries map[string]*CallableFunction
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:  logger,
		entries: make(map[string]*CallableFunction),
	}
}

// Register adds or overwrites the entry for keyword. The last registration wins.
func (r *Registry) Register(owner any, methodName, keyword string, handler Handler, signature ...Kind) *CallableFunction {
	fn := &CallableFunction{
		Owner:      owner,
		MethodName: methodName,
		Keyword:    keyword,
		Signature:  signature,
		handler:    handler,
	}

	r.mu.Lock()
	_, replaced := r.entries[keyword]
	r.entries[keyword] = fn
	r.mu.Unlock()

	r.logger.Debug("Registered callable function.",
		zap.String("keyword", keyword),
		zap.String("method", methodName),
		zap.Int("arity", len(signature)),
		zap.Bool("replaced", replaced))
	return fn
}

// Unregister removes keyword if present.
func (r *Registry) Unregister(keyword string) {
	r.mu.Lock()
	delete(r.entries, keyword)
	r.mu.Unlock()
}

// Lookup returns the function registered under keyword.
func (r *Registry) Lookup(keyword string) (*CallableFunction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.entries[keyword]
	return fn, ok
}

// Keywords returns the registered keywords in sorted order.
func (r *Registry) Keywords() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Invoke calls the function registered under keyword with already typed
// arguments and returns its result.
func (r *Registry) Invoke(ctx context.Context, keyword string, args []Value) (any, error) {
	fn, ok := r.Lookup(keyword)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, keyword)
	}
	return fn.invoke(ctx, args)
}

// Dispatch coerces raw and invokes the function registered under keyword.
// Unknown keywords are skipped and invocation failures are logged; the caller
// never observes either.
func (r *Registry) Dispatch(ctx context.Context, keyword string, raw []string) {
	fn, ok := r.Lookup(keyword)
	if !ok {
		r.logger.Debug("No callable function registered for keyword.", zap.String("keyword", keyword))
		return
	}

	if _, err := fn.invoke(ctx, CoerceAll(raw)); err != nil {
		r.logger.Error("Callable function invocation failed.",
			zap.String("keyword", keyword),
			zap.String("method", fn.MethodName),
			zap.Strings("args", raw),
			zap.Error(err))
	}
}
