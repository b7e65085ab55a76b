// internal/bridge/dispatcher.go
package bridge

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// notFoundErrors are the load failures treated as "page not found".
var notFoundErrors = []string{
	"net::ERR_NAME_NOT_RESOLVED",
	"net::ERR_FILE_NOT_FOUND",
	"net::ERR_ADDRESS_UNREACHABLE",
	"net::ERR_INTERNET_DISCONNECTED",
	"HTTP 404",
}

// IsPageNotFound reports whether a load error text belongs to the
// page-not-found class.
func IsPageNotFound(errText string) bool {
	for _, e := range notFoundErrors {
		if strings.Contains(errText, e) {
			return true
		}
	}
	return false
}

// Dispatcher turns completed navigations into registry calls and redirects
// page-not-found errors to a configured fallback page.
type Dispatcher struct {
	registry   *Registry
	logger     *zap.Logger
	navigate   func(ctx context.Context, url string) error
	decodeArgs bool

	mu              sync.RWMutex
	currentURL      string
	pageNotFoundURL string
	// fallbackPending is set from the moment the fallback page is requested
	// until it finishes loading or another navigation starts.
	fallbackPending bool
}

// NewDispatcher creates a dispatcher that routes calls into registry and uses
// navigate for the error page fallback. When decodeArgs is set, arguments are
// percent-decoded after splitting.
func NewDispatcher(registry *Registry, navigate func(ctx context.Context, url string) error, decodeArgs bool, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		registry:   registry,
		logger:     logger,
		navigate:   navigate,
		decodeArgs: decodeArgs,
	}
}

// CurrentURL returns the last fragment observed on a completed load.
func (d *Dispatcher) CurrentURL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.currentURL
}

// PageNotFoundURL returns the configured fallback page.
func (d *Dispatcher) PageNotFoundURL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pageNotFoundURL
}

// SetPageNotFoundURL configures the fallback page. An empty value disables it.
func (d *Dispatcher) SetPageNotFoundURL(u string) {
	d.mu.Lock()
	d.pageNotFoundURL = u
	d.mu.Unlock()
}

// NavigationStarted marks the start of a navigation that is not the fallback
// page, so the next page-not-found error may redirect again.
func (d *Dispatcher) NavigationStarted() {
	d.mu.Lock()
	d.fallbackPending = false
	d.mu.Unlock()
}

// OnPageFinished handles a completed page load. URLs carrying a fragment are
// decoded as calls; malformed fragments are ignored.
func (d *Dispatcher) OnPageFinished(ctx context.Context, loadedURL string) {
	d.mu.Lock()
	if d.fallbackPending && sameURL(loadedURL, d.pageNotFoundURL) {
		d.fallbackPending = false
	}
	d.mu.Unlock()

	fragment, ok := FragmentOf(loadedURL)
	if !ok {
		return
	}

	d.mu.Lock()
	d.currentURL = fragment
	d.mu.Unlock()

	call, ok := ParseCall(fragment)
	if !ok {
		d.logger.Debug("Ignoring fragment that is not a call.", zap.String("fragment", fragment))
		return
	}

	args := call.Args
	if d.decodeArgs {
		args = unescapeArgs(args)
	}
	d.registry.Dispatch(ctx, call.Keyword, args)
}

// OnLoadError handles a failed load. Page-not-found errors navigate to the
// fallback page when one is configured. While the fallback is loading no
// further redirect happens, so a failing fallback cannot loop.
func (d *Dispatcher) OnLoadError(ctx context.Context, failedURL, errText string) {
	if !IsPageNotFound(errText) {
		d.logger.Debug("Load error is not a page-not-found error.", zap.String("url", failedURL), zap.String("error", errText))
		return
	}
	if d.navigate == nil {
		return
	}

	d.mu.Lock()
	fallback := d.pageNotFoundURL
	if fallback == "" {
		d.mu.Unlock()
		return
	}
	if d.fallbackPending || sameURL(failedURL, fallback) {
		d.mu.Unlock()
		d.logger.Debug("Fallback page already requested, not redirecting.", zap.String("url", failedURL), zap.String("fallback", fallback))
		return
	}
	d.fallbackPending = true
	d.mu.Unlock()

	d.logger.Info("Page not found, loading fallback page.", zap.String("url", failedURL), zap.String("fallback", fallback))
	// The flag stays set on failure; the fallback's own load error must not redirect.
	if err := d.navigate(ctx, fallback); err != nil {
		d.logger.Warn("Failed to load fallback page.", zap.String("fallback", fallback), zap.Error(err))
	}
}

// sameURL compares two URLs after normalization: scheme and host are
// case-insensitive and an empty path on a URL with a host is "/".
func sameURL(a, b string) bool {
	if a == b {
		return true
	}
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return normalizeURL(ua) == normalizeURL(ub)
}

func normalizeURL(u *url.URL) string {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	if n.Host != "" && n.Path == "" && n.Opaque == "" {
		n.Path = "/"
	}
	n.RawPath = ""
	return n.String()
}
