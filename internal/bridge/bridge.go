// internal/bridge/bridge.go
package bridge

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/webbridge/internal/config"
	"github.com/xkilldash9x/webbridge/internal/htmlnode"
	"github.com/xkilldash9x/webbridge/internal/platform"
	"github.com/xkilldash9x/webbridge/internal/shim"
)

// Built-in fragment keywords, each taking a single string.
const (
	KeywordLoadURL            = "loadUrl"
	KeywordLoadData           = "loadData"
	KeywordSetPageNotFoundURL = "setPageNotFoundUrl"
)

// Host is the web view the bridge drives.
type Host interface {
	// Navigate starts loading url. It returns once the navigation is
	// committed or has failed; load completion is reported separately.
	Navigate(ctx context.Context, url string) error
	// Evaluate runs script in the current page and returns the JSON encoding
	// of its result ("null" for undefined).
	Evaluate(ctx context.Context, script string) (string, error)
	GoBack(ctx context.Context) (bool, error)
	SetJavaScriptEnabled(ctx context.Context, enabled bool) error
	SetCacheEnabled(ctx context.Context, enabled bool) error
	AddBinding(ctx context.Context, name string) error
	AddScriptOnNewDocument(ctx context.Context, source string) error
}

// Bridge connects native code with the page loaded in a Host. Native code
// registers keywords that page scripts invoke through the URL fragment, and
// runs scripts whose results land in a single-slot mailbox.
type Bridge struct {
	host   Host
	cfg    config.BridgeConfig
	logger *zap.Logger

	registry   *Registry
	dispatcher *Dispatcher
	iface      *JSInterface
	mailbox    Mailbox

	scriptTimeout   time.Duration
	allowFileAccess atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.RWMutex
	closed       bool
	onLoadScript string
}

// New creates a bridge over host. The built-in keywords are registered
// immediately; Install must be called before page scripts can use the
// capability interface.
func New(host Host, caps platform.Capabilities, cfg config.Interface, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("bridge")
	bcfg := cfg.Bridge()

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		host:          host,
		cfg:           bcfg,
		logger:        logger,
		registry:      NewRegistry(logger.Named("registry")),
		scriptTimeout: cfg.Browser().ScriptTimeout,
		ctx:           ctx,
		cancel:        cancel,
	}
	b.allowFileAccess.Store(bcfg.AllowFileAccess)
	b.dispatcher = NewDispatcher(b.registry, b.load, bcfg.DecodeFragmentArgs, logger.Named("dispatcher"))
	b.dispatcher.SetPageNotFoundURL(bcfg.PageNotFoundURL)
	b.iface = NewJSInterface(caps, b.GoBack, rate.Limit(bcfg.InterfaceRate), bcfg.InterfaceBurst, logger.Named("interface"))

	b.registerBuiltins()
	return b
}

func (b *Bridge) registerBuiltins() {
	b.registry.Register(b, "LoadURL", KeywordLoadURL, func(ctx context.Context, args Args) (any, error) {
		return nil, b.LoadURL(ctx, args.String(0))
	}, KindString)
	b.registry.Register(b, "LoadData", KeywordLoadData, func(ctx context.Context, args Args) (any, error) {
		return nil, b.LoadData(ctx, args.String(0))
	}, KindString)
	b.registry.Register(b, "SetPageNotFoundURL", KeywordSetPageNotFoundURL, func(_ context.Context, args Args) (any, error) {
		b.SetPageNotFoundURL(args.String(0))
		return nil, nil
	}, KindString)
}

// Install exposes the capability interface and the helper object to every
// document loaded from now on.
func (b *Bridge) Install(ctx context.Context) error {
	script, err := shim.Build(shim.Config{
		InterfaceName:    b.cfg.InterfaceName,
		NativeObjectName: b.cfg.NativeObjectName,
		BindingName:      b.cfg.BindingName,
		ResolveName:      ResolveFunctionName,
		Methods:          b.iface.Methods(),
	})
	if err != nil {
		return fmt.Errorf("failed to build bridge shim: %w", err)
	}
	if err := b.host.AddBinding(ctx, b.cfg.BindingName); err != nil {
		return fmt.Errorf("failed to add binding %q: %w", b.cfg.BindingName, err)
	}
	if err := b.host.AddScriptOnNewDocument(ctx, script); err != nil {
		return fmt.Errorf("failed to install bridge shim: %w", err)
	}
	b.logger.Debug("Bridge installed.",
		zap.String("interface", b.cfg.InterfaceName),
		zap.String("native_object", b.cfg.NativeObjectName))
	return nil
}

// Registry exposes the fragment keyword registry.
func (b *Bridge) Registry() *Registry { return b.registry }

// AddCallableFunction registers handler under keyword. A later registration
// for the same keyword replaces this one.
func (b *Bridge) AddCallableFunction(owner any, methodName, keyword string, handler Handler, signature ...Kind) *CallableFunction {
	return b.registry.Register(owner, methodName, keyword, handler, signature...)
}

// RemoveCallableFunction unregisters keyword.
func (b *Bridge) RemoveCallableFunction(keyword string) {
	b.registry.Unregister(keyword)
}

// LoadURL navigates the host to url. file:// URLs are refused while file
// access is disabled.
func (b *Bridge) LoadURL(ctx context.Context, url string) error {
	b.dispatcher.NavigationStarted()
	return b.load(ctx, url)
}

// load navigates without resetting the dispatcher's fallback state.
func (b *Bridge) load(ctx context.Context, url string) error {
	if !b.allowFileAccess.Load() && strings.HasPrefix(strings.ToLower(url), "file:") {
		return &NavigationError{URL: url, Message: "navigation refused", Err: ErrFileAccessDisabled}
	}
	if err := b.host.Navigate(ctx, url); err != nil {
		return &NavigationError{URL: url, Message: "navigation failed", Err: err}
	}
	return nil
}

// LoadData renders markup as a text/html document.
func (b *Bridge) LoadData(ctx context.Context, markup string) error {
	return b.LoadURL(ctx, DataURL(markup))
}

// DataURL encodes markup as a base64 text/html data URL.
func DataURL(markup string) string {
	return "data:text/html;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(markup))
}

// SetPageNotFoundURL configures the page loaded when a navigation fails with
// a page-not-found error. An empty value disables the fallback.
func (b *Bridge) SetPageNotFoundURL(url string) {
	b.dispatcher.SetPageNotFoundURL(url)
}

// PageNotFoundURL returns the configured fallback page.
func (b *Bridge) PageNotFoundURL() string { return b.dispatcher.PageNotFoundURL() }

// CurrentURL returns the fragment of the last completed load that carried one.
func (b *Bridge) CurrentURL() string { return b.dispatcher.CurrentURL() }

// GoBack moves one step back in history and reports whether it moved.
func (b *Bridge) GoBack(ctx context.Context) (bool, error) {
	return b.host.GoBack(ctx)
}

// Reload reloads the current document, bypassing the cache.
func (b *Bridge) Reload(ctx context.Context) error {
	if _, err := b.host.Evaluate(ctx, "location.reload(true)"); err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	return nil
}

// ExecuteJavaScript evaluates script without waiting for it. A successful
// result is stored as the JSON encoding of the value and can be read with
// LastCallbackValue; failures leave the previous value in place.
func (b *Bridge) ExecuteJavaScript(script string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.logger.Debug("Bridge closed, dropping script.")
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := b.scriptContext()
		defer cancel()

		result, err := b.host.Evaluate(ctx, script)
		if err != nil {
			b.logger.Warn("Script evaluation failed.", zap.Error(err))
			return
		}
		b.mailbox.Put(result)
	}()
}

// EvaluateJavaScript evaluates script, waits for its result and records it
// like ExecuteJavaScript does.
func (b *Bridge) EvaluateJavaScript(ctx context.Context, script string) (string, error) {
	if b.scriptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.scriptTimeout)
		defer cancel()
	}
	result, err := b.host.Evaluate(ctx, script)
	if err != nil {
		return "", fmt.Errorf("script evaluation failed: %w", err)
	}
	b.mailbox.Put(result)
	return result, nil
}

// ExecuteJavaScriptOnLoad schedules script to run after every completed load.
// It replaces any script scheduled earlier; an empty script clears the slot.
func (b *Bridge) ExecuteJavaScriptOnLoad(script string) {
	b.mu.Lock()
	b.onLoadScript = script
	b.mu.Unlock()
}

// LastCallbackValue returns the most recent script result.
func (b *Bridge) LastCallbackValue() string { return b.mailbox.Get() }

// Mailbox exposes the result slot, mostly for callers that want to observe
// its version.
func (b *Bridge) Mailbox() *Mailbox { return &b.mailbox }

// SetJavaScriptEnabled toggles script execution in the host.
func (b *Bridge) SetJavaScriptEnabled(ctx context.Context, enabled bool) error {
	return b.host.SetJavaScriptEnabled(ctx, enabled)
}

// SetCacheEnabled toggles the HTTP cache in the host.
func (b *Bridge) SetCacheEnabled(ctx context.Context, enabled bool) error {
	return b.host.SetCacheEnabled(ctx, enabled)
}

// LoadCacheElseNetwork prefers cached resources over the network.
func (b *Bridge) LoadCacheElseNetwork(ctx context.Context) error {
	return b.host.SetCacheEnabled(ctx, true)
}

// SetAllowFileAccess toggles whether file:// URLs may be loaded.
func (b *Bridge) SetAllowFileAccess(allow bool) {
	b.allowFileAccess.Store(allow)
}

// -- DOM mutation helpers --

// SetCSS assigns an inline style property on the target.
func (b *Bridge) SetCSS(t Target, property, value string) {
	b.ExecuteJavaScript(SetCSSScript(t, property, value))
}

// SetHTMLAttribute assigns an element property on the target.
func (b *Bridge) SetHTMLAttribute(t Target, attribute, value string) {
	b.ExecuteJavaScript(SetHTMLAttributeScript(t, attribute, value))
}

// SetInnerHTML replaces the inner HTML of the target.
func (b *Bridge) SetInnerHTML(t Target, value string) {
	b.ExecuteJavaScript(SetInnerHTMLScript(t, value))
}

// SetImageSource replaces the src of the target.
func (b *Bridge) SetImageSource(t Target, src string) {
	b.ExecuteJavaScript(SetImageSourceScript(t, src))
}

// AppendNode inserts the serialized node at pos relative to the target.
func (b *Bridge) AppendNode(t Target, node *htmlnode.Node, pos NodePosition) {
	b.ExecuteJavaScript(AppendNodeScript(t, node.Get(), pos))
}

// ReplaceNode replaces the inner HTML of the target with the serialized node.
func (b *Bridge) ReplaceNode(t Target, node *htmlnode.Node) {
	b.SetInnerHTML(t, node.Get())
}

// RemoveNode removes the target from the document.
func (b *Bridge) RemoveNode(t Target) {
	b.ExecuteJavaScript(RemoveNodeScript(t))
}

// -- Host events --

// OnPageFinished handles a completed load: fragment calls are dispatched and
// the on-load script is scheduled.
func (b *Bridge) OnPageFinished(ctx context.Context, url string) {
	b.dispatcher.OnPageFinished(ctx, url)

	b.mu.RLock()
	script := b.onLoadScript
	b.mu.RUnlock()
	if script != "" {
		b.ExecuteJavaScript(script)
	}
}

// OnLoadError handles a failed load.
func (b *Bridge) OnLoadError(ctx context.Context, url, errText string) {
	b.dispatcher.OnLoadError(ctx, url, errText)
}

// OnBindingCalled answers a capability interface call. Calls run off the
// caller's goroutine since capabilities may block.
func (b *Bridge) OnBindingCalled(ctx context.Context, name, payload string) {
	if name != b.cfg.BindingName {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := b.scriptContext()
		defer cancel()

		script, ok := b.iface.Handle(ctx, payload)
		if !ok {
			return
		}
		if _, err := b.host.Evaluate(ctx, script); err != nil {
			b.logger.Warn("Failed to resolve interface call.", zap.Error(err))
		}
	}()
}

func (b *Bridge) scriptContext() (context.Context, context.CancelFunc) {
	if b.scriptTimeout > 0 {
		return context.WithTimeout(b.ctx, b.scriptTimeout)
	}
	return context.WithCancel(b.ctx)
}

// Wait blocks until every pending evaluation has finished.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

// Close cancels pending evaluations and waits for them to return.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	return nil
}
