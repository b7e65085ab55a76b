// internal/webview/view.go
package webview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webbridge/internal/config"
)

// EventHandler receives page events on the view's event loop, one at a time.
type EventHandler interface {
	OnPageFinished(ctx context.Context, url string)
	OnLoadError(ctx context.Context, url, errText string)
	OnBindingCalled(ctx context.Context, name, payload string)
}

// View is a single Chrome tab acting as a web view.
type View struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    config.BrowserConfig

	// runActions executes CDP actions against the tab. Replaced in tests.
	runActions func(ctx context.Context, actions ...chromedp.Action) error

	events  chan event
	tracker *loadTracker

	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New launches Chrome and opens the tab backing the view. The returned view
// does not deliver events until Start is called.
func New(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*View, error) {
	bcfg := cfg.Browser()
	if logger == nil {
		logger = zap.NewNop()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, ExecAllocatorOptions(bcfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, contextOptions(bcfg, logger)...)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	v := newView(tabCtx, cancel, bcfg, logger)
	v.runActions = func(ctx context.Context, actions ...chromedp.Action) error {
		runCtx, runCancel := CombineContext(v.ctx, ctx)
		defer runCancel()
		return chromedp.Run(runCtx, actions...)
	}

	// Ensure the target (tab) is created and CDP is connected.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	chromedp.ListenTarget(tabCtx, v.handleEvent)

	initCtx, initCancel := context.WithTimeout(ctx, v.navigationTimeout())
	defer initCancel()
	if err := v.initialize(initCtx); err != nil {
		cancel()
		return nil, err
	}

	v.logger.Info("Web view ready.", zap.Bool("headless", bcfg.Headless))
	return v, nil
}

func newView(ctx context.Context, cancel context.CancelFunc, cfg config.BrowserConfig, logger *zap.Logger) *View {
	id := uuid.New().String()
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = 64
	}
	return &View{
		id:      id,
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.Named("webview").With(zap.String("view_id", id)),
		cfg:     cfg,
		events:  make(chan event, buffer),
		tracker: newLoadTracker(),
	}
}

// initialize enables the CDP domains the view listens on and records the
// main frame.
func (v *View) initialize(ctx context.Context) error {
	var tree *page.FrameTree
	err := v.runActions(ctx,
		network.Enable(),
		page.Enable(),
		chromedp.ActionFunc(func(c context.Context) error {
			var err error
			tree, err = page.GetFrameTree().Do(c)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize web view: %w", err)
	}
	if tree != nil && tree.Frame != nil {
		v.tracker.setMainFrame(tree.Frame.ID)
	}
	return nil
}

// ID returns the view's session identifier.
func (v *View) ID() string { return v.id }

// Start begins delivering events to handler on a single goroutine. Only the
// first call has any effect.
func (v *View) Start(handler EventHandler) {
	v.startOnce.Do(func() {
		v.wg.Add(1)
		go v.loop(handler)
	})
}

func (v *View) loop(handler EventHandler) {
	defer v.wg.Done()
	for {
		select {
		case <-v.ctx.Done():
			return
		case ev := <-v.events:
			v.deliver(handler, ev)
		}
	}
}

func (v *View) deliver(handler EventHandler, ev event) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("Panic in web view event handler.", zap.Any("panic_reason", r), zap.Stringer("event", ev.kind))
		}
	}()

	switch ev.kind {
	case eventPageFinished:
		handler.OnPageFinished(v.ctx, ev.url)
	case eventLoadError:
		handler.OnLoadError(v.ctx, ev.url, ev.text)
	case eventBindingCalled:
		handler.OnBindingCalled(v.ctx, ev.name, ev.text)
	}
}

// post queues ev for the event loop. CDP listeners must never block, so
// events are dropped when the queue is full.
func (v *View) post(ev event) {
	select {
	case v.events <- ev:
	default:
		v.logger.Warn("Web view event queue full, dropping event.", zap.Stringer("event", ev.kind), zap.String("url", ev.url))
	}
}

func (v *View) navigationTimeout() time.Duration {
	if v.cfg.NavigationTimeout > 0 {
		return v.cfg.NavigationTimeout
	}
	return 60 * time.Second
}

// Navigate starts loading url without waiting for the load to finish.
// Completion arrives as a page-finished event. A failed navigation is both
// returned and reported as a load error.
func (v *View) Navigate(ctx context.Context, url string) error {
	v.logger.Debug("Navigating.", zap.String("url", url))

	navCtx, navCancel := context.WithTimeout(ctx, v.navigationTimeout())
	defer navCancel()

	var res page.NavigateReturns
	err := v.runActions(navCtx, chromedp.ActionFunc(func(c context.Context) error {
		return cdp.Execute(c, page.CommandNavigate, page.Navigate(url), &res)
	}))
	if err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation to %s timed out after %v: %w", url, v.navigationTimeout(), navCtx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	if res.ErrorText != "" {
		if v.tracker.reportFailure(string(res.LoaderID)) {
			v.post(event{kind: eventLoadError, url: url, text: res.ErrorText})
		}
		return fmt.Errorf("page load error %s", res.ErrorText)
	}
	return nil
}

// Evaluate runs script in the page, awaiting promises, and returns the JSON
// encoding of the result. Undefined and non-serializable results encode as
// "null".
func (v *View) Evaluate(ctx context.Context, script string) (string, error) {
	result := "null"
	err := v.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		obj, exc, err := runtime.Evaluate(script).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			WithSilent(true).
			Do(c)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script threw: %s", exc.Error())
		}
		result = remoteObjectJSON(obj)
		return nil
	}))
	if err != nil {
		return "", err
	}
	return result, nil
}

func remoteObjectJSON(obj *runtime.RemoteObject) string {
	if obj == nil || obj.Type == runtime.TypeUndefined || len(obj.Value) == 0 {
		return "null"
	}
	return string(obj.Value)
}

// GoBack moves one entry back in the tab history. It reports false when the
// tab is already at the first entry.
func (v *View) GoBack(ctx context.Context) (bool, error) {
	moved := false
	err := v.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		current, entries, err := page.GetNavigationHistory().Do(c)
		if err != nil {
			return err
		}
		if current <= 0 || int(current) > len(entries)-1 {
			return nil
		}
		if err := page.NavigateToHistoryEntry(entries[current-1].ID).Do(c); err != nil {
			return err
		}
		moved = true
		return nil
	}))
	if err != nil {
		return false, fmt.Errorf("failed to go back: %w", err)
	}
	return moved, nil
}

// SetJavaScriptEnabled toggles script execution in the tab.
func (v *View) SetJavaScriptEnabled(ctx context.Context, enabled bool) error {
	return v.runActions(ctx, emulation.SetScriptExecutionDisabled(!enabled))
}

// SetCacheEnabled toggles the tab's HTTP cache.
func (v *View) SetCacheEnabled(ctx context.Context, enabled bool) error {
	return v.runActions(ctx, network.SetCacheDisabled(!enabled))
}

// AddBinding exposes a function named name on every page's window. Calls
// arrive as binding events.
func (v *View) AddBinding(ctx context.Context, name string) error {
	if err := v.runActions(ctx, runtime.AddBinding(name)); err != nil {
		return fmt.Errorf("failed to add binding '%s': %w", name, err)
	}
	return nil
}

// AddScriptOnNewDocument installs source to run before any page script on
// every document loaded from now on.
func (v *View) AddScriptOnNewDocument(ctx context.Context, source string) error {
	var scriptID page.ScriptIdentifier
	err := v.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		scriptID, err = page.AddScriptToEvaluateOnNewDocument(source).Do(c)
		return err
	}))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("could not inject persistent script: %w", err)
	}
	v.logger.Debug("Injected persistent script.", zap.String("scriptID", string(scriptID)))
	return nil
}

// Done is closed when the tab or the browser goes away.
func (v *View) Done() <-chan struct{} { return v.ctx.Done() }

// Close shuts down the tab and the browser and waits for the event loop.
func (v *View) Close() error {
	v.closeOnce.Do(func() {
		v.logger.Info("Closing web view.")
		v.cancel()
		v.wg.Wait()
	})
	return nil
}
