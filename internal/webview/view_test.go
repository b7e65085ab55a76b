// internal/webview/view_test.go
package webview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/webbridge/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordedEvent struct {
	kind    string
	url     string
	text    string
	binding string
}

type recordingHandler struct {
	mu     sync.Mutex
	events []recordedEvent
	seen   chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{seen: make(chan struct{}, 64)}
}

func (h *recordingHandler) add(e recordedEvent) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
	h.seen <- struct{}{}
}

func (h *recordingHandler) OnPageFinished(_ context.Context, url string) {
	h.add(recordedEvent{kind: "finished", url: url})
}

func (h *recordingHandler) OnLoadError(_ context.Context, url, errText string) {
	h.add(recordedEvent{kind: "error", url: url, text: errText})
}

func (h *recordingHandler) OnBindingCalled(_ context.Context, name, payload string) {
	h.add(recordedEvent{kind: "binding", binding: name, text: payload})
}

func (h *recordingHandler) waitFor(t *testing.T, n int) []recordedEvent {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-h.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, n)
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]recordedEvent(nil), h.events...)
}

// newTestView builds a view without a browser; CDP actions go to run.
func newTestView(t *testing.T, run func(ctx context.Context, actions ...chromedp.Action) error) *View {
	t.Helper()
	cfg := config.NewDefaultConfig().Browser()
	cfg.NavigationTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	v := newView(ctx, cancel, cfg, zaptest.NewLogger(t))
	if run == nil {
		run = func(context.Context, ...chromedp.Action) error { return nil }
	}
	v.runActions = run
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func TestView_EventLoop(t *testing.T) {
	v := newTestView(t, nil)
	h := newRecordingHandler()
	v.Start(h)

	v.handleEvent(&page.EventFrameNavigated{Frame: &cdp.Frame{ID: "main", URL: "file:///index.html"}})
	v.handleEvent(&page.EventLoadEventFired{})
	v.handleEvent(&page.EventNavigatedWithinDocument{FrameID: "main", URL: "file:///index.html#loadUrl=file:///b.html"})
	v.handleEvent(&page.EventNavigatedWithinDocument{FrameID: "child", URL: "file:///frame.html#x=1"})
	v.handleEvent(&runtime.EventBindingCalled{Name: "__webbridgeInvoke", Payload: `{"id":1}`})

	got := h.waitFor(t, 3)
	assert.Equal(t, []recordedEvent{
		{kind: "finished", url: "file:///index.html"},
		{kind: "finished", url: "file:///index.html#loadUrl=file:///b.html"},
		{kind: "binding", binding: "__webbridgeInvoke", text: `{"id":1}`},
	}, got)
}

func TestView_SubframeNavigationIgnored(t *testing.T) {
	v := newTestView(t, nil)
	v.handleEvent(&page.EventFrameNavigated{Frame: &cdp.Frame{ID: "main", URL: "file:///index.html", URLFragment: "#a=1"}})
	v.handleEvent(&page.EventFrameNavigated{Frame: &cdp.Frame{ID: "ad", ParentID: "main", URL: "https://ads.test/"}})
	assert.Equal(t, "file:///index.html#a=1", v.tracker.url())
}

func TestView_LoadErrors(t *testing.T) {
	v := newTestView(t, nil)
	h := newRecordingHandler()
	v.Start(h)

	v.handleEvent(&page.EventFrameNavigated{Frame: &cdp.Frame{ID: "main", URL: "about:blank"}})

	// HTTP 404 on the main document.
	v.handleEvent(&network.EventResponseReceived{
		LoaderID: "L1", FrameID: "main", Type: network.ResourceTypeDocument,
		Response: &network.Response{URL: "https://x.test/missing", Status: 404},
	})
	// A 404 for a sub resource is not a page error.
	v.handleEvent(&network.EventResponseReceived{
		LoaderID: "L1", FrameID: "main", Type: network.ResourceTypeImage,
		Response: &network.Response{URL: "https://x.test/a.png", Status: 404},
	})

	// Network failure of a tracked document, seen twice.
	v.handleEvent(&network.EventRequestWillBeSent{
		RequestID: "L2", LoaderID: "L2", FrameID: "main", Type: network.ResourceTypeDocument,
		Request: &network.Request{URL: "https://nowhere.invalid/"},
	})
	v.handleEvent(&network.EventLoadingFailed{RequestID: "L2", Type: network.ResourceTypeDocument, ErrorText: "net::ERR_NAME_NOT_RESOLVED"})
	v.handleEvent(&network.EventLoadingFailed{RequestID: "L2", Type: network.ResourceTypeDocument, ErrorText: "net::ERR_NAME_NOT_RESOLVED"})

	// Canceled loads are not errors.
	v.handleEvent(&network.EventRequestWillBeSent{
		RequestID: "L3", LoaderID: "L3", FrameID: "main", Type: network.ResourceTypeDocument,
		Request: &network.Request{URL: "https://x.test/slow"},
	})
	v.handleEvent(&network.EventLoadingFailed{RequestID: "L3", Type: network.ResourceTypeDocument, ErrorText: "net::ERR_ABORTED", Canceled: true})

	got := h.waitFor(t, 2)
	assert.Equal(t, []recordedEvent{
		{kind: "error", url: "https://x.test/missing", text: "HTTP 404"},
		{kind: "error", url: "https://nowhere.invalid/", text: "net::ERR_NAME_NOT_RESOLVED"},
	}, got)
}

func TestView_QueueFullDropsEvents(t *testing.T) {
	v := newTestView(t, nil)
	for i := 0; i < cap(v.events)+10; i++ {
		v.handleEvent(&page.EventLoadEventFired{})
	}
	assert.Equal(t, cap(v.events), len(v.events))
}

func TestView_Navigate(t *testing.T) {
	t.Run("error from CDP is wrapped", func(t *testing.T) {
		v := newTestView(t, func(context.Context, ...chromedp.Action) error {
			return errors.New("target closed")
		})
		err := v.Navigate(context.Background(), "https://example.com/")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "navigation failed: target closed")
	})

	t.Run("timeout is reported", func(t *testing.T) {
		v := newTestView(t, func(ctx context.Context, _ ...chromedp.Action) error {
			<-ctx.Done()
			return ctx.Err()
		})
		err := v.Navigate(context.Background(), "https://slow.test/")
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "timed out after 1s")
	})

	t.Run("issues a single action", func(t *testing.T) {
		var captured []chromedp.Action
		v := newTestView(t, func(_ context.Context, actions ...chromedp.Action) error {
			captured = actions
			return nil
		})
		require.NoError(t, v.Navigate(context.Background(), "https://example.com/"))
		require.Len(t, captured, 1)
		assert.IsType(t, (chromedp.ActionFunc)(nil), captured[0])
	})
}

func TestView_SettingsActions(t *testing.T) {
	var captured []chromedp.Action
	v := newTestView(t, func(_ context.Context, actions ...chromedp.Action) error {
		captured = append(captured, actions...)
		return nil
	})
	ctx := context.Background()

	require.NoError(t, v.SetJavaScriptEnabled(ctx, false))
	require.NoError(t, v.SetCacheEnabled(ctx, true))
	require.NoError(t, v.AddBinding(ctx, "__webbridgeInvoke"))
	require.Len(t, captured, 3)

	js, ok := captured[0].(*emulation.SetScriptExecutionDisabledParams)
	require.True(t, ok)
	assert.True(t, js.Value)

	cache, ok := captured[1].(*network.SetCacheDisabledParams)
	require.True(t, ok)
	assert.False(t, cache.CacheDisabled)

	binding, ok := captured[2].(*runtime.AddBindingParams)
	require.True(t, ok)
	assert.Equal(t, "__webbridgeInvoke", binding.Name)
}

func TestView_ActionErrors(t *testing.T) {
	boom := errors.New("boom")
	v := newTestView(t, func(context.Context, ...chromedp.Action) error { return boom })
	ctx := context.Background()

	_, err := v.Evaluate(ctx, "1")
	assert.ErrorIs(t, err, boom)

	_, err = v.GoBack(ctx)
	assert.ErrorIs(t, err, boom)

	err = v.AddBinding(ctx, "b")
	assert.ErrorIs(t, err, boom)

	err = v.AddScriptOnNewDocument(ctx, "void 0")
	assert.ErrorIs(t, err, boom)
}

func TestRemoteObjectJSON(t *testing.T) {
	assert.Equal(t, "null", remoteObjectJSON(nil))
	assert.Equal(t, "null", remoteObjectJSON(&runtime.RemoteObject{Type: runtime.TypeUndefined}))
	assert.Equal(t, "null", remoteObjectJSON(&runtime.RemoteObject{Type: runtime.TypeFunction}))
	assert.Equal(t, `"hi"`, remoteObjectJSON(&runtime.RemoteObject{Type: runtime.TypeString, Value: jsontext.Value(`"hi"`)}))
	assert.Equal(t, `{"a":1}`, remoteObjectJSON(&runtime.RemoteObject{Type: runtime.TypeObject, Value: jsontext.Value(`{"a":1}`)}))
}

func TestLoadTracker_ReportFailureOnce(t *testing.T) {
	tr := newLoadTracker()
	assert.True(t, tr.reportFailure("L1"))
	assert.False(t, tr.reportFailure("L1"))
	assert.True(t, tr.reportFailure(""))
	assert.True(t, tr.reportFailure(""))
}

func TestView_CloseStopsLoop(t *testing.T) {
	v := newTestView(t, nil)
	v.Start(newRecordingHandler())
	require.NoError(t, v.Close())
	require.NoError(t, v.Close())

	select {
	case <-v.Done():
	default:
		t.Fatal("view context should be canceled after Close")
	}
}

func TestExecAllocatorOptions(t *testing.T) {
	base := len(chromedp.DefaultExecAllocatorOptions)

	headless := config.BrowserConfig{Headless: true}
	assert.Len(t, ExecAllocatorOptions(headless), base+2)

	full := config.BrowserConfig{
		Headless:     false,
		DisableGPU:   true,
		ExecPath:     "/usr/bin/chromium",
		WindowWidth:  412,
		WindowHeight: 915,
		Args:         []string{"--lang=de-DE", "disable-extensions", "--"},
	}
	// headless+scrollbars, gpu, exec path, window size, two args.
	assert.Len(t, ExecAllocatorOptions(full), base+2+2+1+1+1+2)
}
