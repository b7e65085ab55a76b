// internal/bridge/dispatcher_test.go
package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type navRecorder struct {
	urls []string
	err  error
}

func (n *navRecorder) navigate(_ context.Context, url string) error {
	n.urls = append(n.urls, url)
	return n.err
}

func TestDispatcher_OnPageFinished(t *testing.T) {
	logger := zaptest.NewLogger(t)
	reg := NewRegistry(logger)
	var got []string
	reg.Register(nil, "Echo", "echo", func(_ context.Context, args Args) (any, error) {
		got = append(got, args.String(0))
		return nil, nil
	}, KindString)

	d := NewDispatcher(reg, nil, false, logger)
	ctx := context.Background()

	t.Run("fragment call is dispatched", func(t *testing.T) {
		got = nil
		d.OnPageFinished(ctx, "file:///index.html#echo=hi")
		assert.Equal(t, []string{"hi"}, got)
		assert.Equal(t, "echo=hi", d.CurrentURL())
	})

	t.Run("url without fragment is ignored", func(t *testing.T) {
		got = nil
		d.OnPageFinished(ctx, "file:///index.html")
		assert.Empty(t, got)
		assert.Equal(t, "echo=hi", d.CurrentURL(), "current url keeps the last fragment")
	})

	t.Run("fragment without equals is a no-op", func(t *testing.T) {
		got = nil
		d.OnPageFinished(ctx, "file:///index.html#top")
		assert.Empty(t, got)
		assert.Equal(t, "top", d.CurrentURL())
	})

	t.Run("unregistered keyword is ignored", func(t *testing.T) {
		got = nil
		assert.NotPanics(t, func() { d.OnPageFinished(ctx, "file:///index.html#setCss=red") })
		assert.Empty(t, got)
	})

	t.Run("arguments are not decoded by default", func(t *testing.T) {
		got = nil
		d.OnPageFinished(ctx, "file:///index.html#echo=a%20b")
		assert.Equal(t, []string{"a%20b"}, got)
	})
}

func TestDispatcher_DecodeArgs(t *testing.T) {
	logger := zaptest.NewLogger(t)
	reg := NewRegistry(logger)
	var got string
	reg.Register(nil, "Echo", "echo", func(_ context.Context, args Args) (any, error) {
		got = args.String(0)
		return nil, nil
	}, KindString)

	d := NewDispatcher(reg, nil, true, logger)
	d.OnPageFinished(context.Background(), "file:///index.html#echo=a%20b")
	assert.Equal(t, "a b", got)
}

func TestDispatcher_OnLoadError(t *testing.T) {
	ctx := context.Background()

	t.Run("page not found loads the fallback", func(t *testing.T) {
		nav := &navRecorder{}
		d := NewDispatcher(NewRegistry(nil), nav.navigate, false, zaptest.NewLogger(t))
		d.SetPageNotFoundURL("file:///404.html")

		d.OnLoadError(ctx, "file:///missing.html", "net::ERR_FILE_NOT_FOUND")
		assert.Equal(t, []string{"file:///404.html"}, nav.urls)
	})

	t.Run("other errors are ignored", func(t *testing.T) {
		nav := &navRecorder{}
		d := NewDispatcher(NewRegistry(nil), nav.navigate, false, zaptest.NewLogger(t))
		d.SetPageNotFoundURL("file:///404.html")

		d.OnLoadError(ctx, "https://x.test/", "net::ERR_CONNECTION_RESET")
		assert.Empty(t, nav.urls)
	})

	t.Run("no fallback configured", func(t *testing.T) {
		nav := &navRecorder{}
		d := NewDispatcher(NewRegistry(nil), nav.navigate, false, zaptest.NewLogger(t))

		d.OnLoadError(ctx, "https://x.test/", "net::ERR_NAME_NOT_RESOLVED")
		assert.Empty(t, nav.urls)
	})

	t.Run("failing fallback does not loop", func(t *testing.T) {
		nav := &navRecorder{err: errors.New("net::ERR_FILE_NOT_FOUND")}
		d := NewDispatcher(NewRegistry(nil), nav.navigate, false, zaptest.NewLogger(t))
		d.SetPageNotFoundURL("file:///404.html")

		d.OnLoadError(ctx, "file:///missing.html", "net::ERR_FILE_NOT_FOUND")
		d.OnLoadError(ctx, "file:///404.html", "net::ERR_FILE_NOT_FOUND")
		assert.Equal(t, []string{"file:///404.html"}, nav.urls)
	})

	t.Run("normalized fallback url does not loop", func(t *testing.T) {
		nav := &navRecorder{}
		d := NewDispatcher(NewRegistry(nil), nav.navigate, false, zaptest.NewLogger(t))
		d.SetPageNotFoundURL("http://offline.invalid")

		d.OnLoadError(ctx, "https://x.test/", "net::ERR_NAME_NOT_RESOLVED")
		for i := 0; i < 5; i++ {
			d.OnLoadError(ctx, "http://offline.invalid/", "net::ERR_NAME_NOT_RESOLVED")
		}
		assert.Equal(t, []string{"http://offline.invalid"}, nav.urls)
	})

	t.Run("redirects again once the fallback has loaded", func(t *testing.T) {
		nav := &navRecorder{}
		d := NewDispatcher(NewRegistry(nil), nav.navigate, false, zaptest.NewLogger(t))
		d.SetPageNotFoundURL("HTTP://Fallback.test")

		d.OnLoadError(ctx, "https://a.test/", "net::ERR_NAME_NOT_RESOLVED")
		d.OnLoadError(ctx, "https://b.test/", "net::ERR_NAME_NOT_RESOLVED")
		require.Len(t, nav.urls, 1)

		d.OnPageFinished(ctx, "http://fallback.test/")
		d.OnLoadError(ctx, "https://c.test/", "net::ERR_NAME_NOT_RESOLVED")
		assert.Len(t, nav.urls, 2)
	})

	t.Run("new navigation clears the pending fallback", func(t *testing.T) {
		nav := &navRecorder{err: errors.New("net::ERR_NAME_NOT_RESOLVED")}
		d := NewDispatcher(NewRegistry(nil), nav.navigate, false, zaptest.NewLogger(t))
		d.SetPageNotFoundURL("https://fallback.test/")

		d.OnLoadError(ctx, "https://a.test/", "net::ERR_NAME_NOT_RESOLVED")
		d.OnLoadError(ctx, "https://b.test/", "net::ERR_NAME_NOT_RESOLVED")
		require.Len(t, nav.urls, 1)

		d.NavigationStarted()
		d.OnLoadError(ctx, "https://c.test/", "net::ERR_NAME_NOT_RESOLVED")
		assert.Len(t, nav.urls, 2)
	})
}

func TestSameURL(t *testing.T) {
	assert.True(t, sameURL("http://offline.invalid", "http://offline.invalid/"))
	assert.True(t, sameURL("HTTP://Example.COM/a", "http://example.com/a"))
	assert.True(t, sameURL("file:///404.html", "file:///404.html"))
	assert.False(t, sameURL("http://example.com/a", "http://example.com/b"))
	assert.False(t, sameURL("http://example.com/", ""))
}

func TestIsPageNotFound(t *testing.T) {
	for _, e := range []string{
		"net::ERR_NAME_NOT_RESOLVED",
		"net::ERR_FILE_NOT_FOUND",
		"net::ERR_ADDRESS_UNREACHABLE",
		"net::ERR_INTERNET_DISCONNECTED",
		"HTTP 404",
	} {
		assert.True(t, IsPageNotFound(e), e)
	}
	assert.False(t, IsPageNotFound("net::ERR_ABORTED"))
	assert.False(t, IsPageNotFound(""))
}
