// internal/webview/context.go
package webview

import (
	"context"
)

// CombineContext creates a new context derived from ctx1 (the tab context)
// that is canceled when either ctx1 or ctx2 (the operational context) is
// canceled. Values, including the CDP target, come from ctx1 only.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	// The goroutine stops when either context is done.
	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}
