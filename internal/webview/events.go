// internal/webview/events.go
package webview

import (
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
)

type eventKind int

const (
	eventPageFinished eventKind = iota
	eventLoadError
	eventBindingCalled
)

func (k eventKind) String() string {
	switch k {
	case eventPageFinished:
		return "page_finished"
	case eventLoadError:
		return "load_error"
	case eventBindingCalled:
		return "binding_called"
	default:
		return "unknown"
	}
}

type event struct {
	kind eventKind
	url  string
	// text carries the error text of a load error or the payload of a binding call.
	text string
	name string
}

// loadTracker follows main frame navigations so that load events, which
// carry no URL, can be attributed, and so that a failed load is reported once
// even when both the navigate command and the network domain see it.
type loadTracker struct {
	mu         sync.Mutex
	mainFrame  cdp.FrameID
	currentURL string
	documents  map[network.RequestID]string
	reported   map[string]bool
}

func newLoadTracker() *loadTracker {
	return &loadTracker{
		documents: make(map[network.RequestID]string),
		reported:  make(map[string]bool),
	}
}

func (t *loadTracker) setMainFrame(id cdp.FrameID) {
	t.mu.Lock()
	t.mainFrame = id
	t.mu.Unlock()
}

// isMainFrame reports whether id is the main frame. Before the main frame is
// known every frame is accepted.
func (t *loadTracker) isMainFrame(id cdp.FrameID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mainFrame == "" || t.mainFrame == id
}

func (t *loadTracker) setURL(u string) {
	t.mu.Lock()
	t.currentURL = u
	t.mu.Unlock()
}

func (t *loadTracker) url() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentURL
}

func (t *loadTracker) trackDocument(id network.RequestID, u string) {
	t.mu.Lock()
	t.documents[id] = u
	t.mu.Unlock()
}

func (t *loadTracker) document(id network.RequestID) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.documents[id]
	delete(t.documents, id)
	return u, ok
}

// reportFailure returns true the first time a failure is seen for loaderID.
// An empty loader id cannot be deduplicated and is always reported.
func (t *loadTracker) reportFailure(loaderID string) bool {
	if loaderID == "" {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reported[loaderID] {
		return false
	}
	t.reported[loaderID] = true
	return true
}

// handleEvent runs on chromedp's event goroutine. It must not issue CDP
// commands, so it only translates events and queues them.
func (v *View) handleEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *page.EventFrameNavigated:
		if ev.Frame == nil || ev.Frame.ParentID != "" {
			return
		}
		v.tracker.setMainFrame(ev.Frame.ID)
		v.tracker.setURL(ev.Frame.URL + ev.Frame.URLFragment)

	case *page.EventLoadEventFired:
		v.post(event{kind: eventPageFinished, url: v.tracker.url()})

	case *page.EventNavigatedWithinDocument:
		if !v.tracker.isMainFrame(ev.FrameID) {
			return
		}
		v.tracker.setURL(ev.URL)
		v.post(event{kind: eventPageFinished, url: ev.URL})

	case *network.EventRequestWillBeSent:
		if ev.Type == network.ResourceTypeDocument && v.tracker.isMainFrame(ev.FrameID) && ev.Request != nil {
			v.tracker.trackDocument(ev.RequestID, ev.Request.URL+ev.Request.URLFragment)
		}

	case *network.EventResponseReceived:
		if ev.Type != network.ResourceTypeDocument || ev.Response == nil || !v.tracker.isMainFrame(ev.FrameID) {
			return
		}
		if ev.Response.Status == 404 && v.tracker.reportFailure(string(ev.LoaderID)) {
			v.post(event{kind: eventLoadError, url: ev.Response.URL, text: "HTTP 404"})
		}

	case *network.EventLoadingFailed:
		if ev.Type != network.ResourceTypeDocument || ev.Canceled {
			return
		}
		u, ok := v.tracker.document(ev.RequestID)
		if !ok {
			return
		}
		// The main document request id doubles as its loader id.
		if v.tracker.reportFailure(string(ev.RequestID)) {
			v.post(event{kind: eventLoadError, url: u, text: ev.ErrorText})
		}

	case *runtime.EventBindingCalled:
		v.post(event{kind: eventBindingCalled, name: ev.Name, text: ev.Payload})
	}
}
