// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/webbridge/internal/bridge"
	"github.com/xkilldash9x/webbridge/internal/config"
	"github.com/xkilldash9x/webbridge/internal/livereload"
	"github.com/xkilldash9x/webbridge/internal/observability"
	"github.com/xkilldash9x/webbridge/internal/platform"
	"github.com/xkilldash9x/webbridge/internal/webview"
)

// viewHost is the web view the run command drives.
type viewHost interface {
	bridge.Host
	Start(handler webview.EventHandler)
	Done() <-chan struct{}
	Close() error
}

// newViewHost launches the browser. Replaced in tests.
var newViewHost = func(ctx context.Context, cfg config.Interface, logger *zap.Logger) (viewHost, error) {
	v, err := webview.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return v, nil
}

var errViewClosed = errors.New("web view closed")

func newRunCmd() *cobra.Command {
	var (
		headless bool
		execPath string
		notFound string
		watch    []string
	)

	runCmd := &cobra.Command{
		Use:   "run [url-or-path]",
		Short: "Open a web view and serve the bridge until interrupted",
		Long: `Opens Chrome on the given URL (or bridge.start_url), installs the native
bridge into every page and handles fragment calls and capability requests until
the window is closed or the process is interrupted. A local path is loaded as a
file:// URL.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 1 {
				startURL, err := resolveStartURL(args[0])
				if err != nil {
					return err
				}
				cfg.SetBridgeStartURL(startURL)
			}
			if cmd.Flags().Changed("headless") {
				cfg.SetBrowserHeadless(headless)
			}
			if execPath != "" {
				cfg.SetBrowserExecPath(execPath)
			}
			if notFound != "" {
				cfg.SetBridgePageNotFoundURL(notFound)
			}
			if len(watch) > 0 {
				cfg.SetLiveReloadPaths(watch)
				cfg.SetLiveReloadEnabled(true)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			return runSession(cmd.Context(), cfg, observability.GetLogger())
		},
	}

	runCmd.Flags().BoolVar(&headless, "headless", false, "run Chrome without a window")
	runCmd.Flags().StringVar(&execPath, "chrome", "", "path to the Chrome executable")
	runCmd.Flags().StringVar(&notFound, "not-found", "", "page loaded when a navigation fails")
	runCmd.Flags().StringSliceVar(&watch, "watch", nil, "reload the page when files under these paths change")
	return runCmd
}

// resolveStartURL turns a bare path into an absolute file URL and leaves
// anything with a scheme alone.
func resolveStartURL(arg string) (string, error) {
	if u, err := url.Parse(arg); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return arg, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("failed to resolve '%s': %w", arg, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// runSession wires the platform, the web view and the bridge together and
// blocks until ctx is canceled or the browser goes away.
func runSession(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	caps, err := platform.NewDesktop(cfg.Platform(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize platform: %w", err)
	}

	view, err := newViewHost(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start web view: %w", err)
	}
	defer view.Close()

	b := bridge.New(view, caps, cfg, logger)
	defer b.Close()

	if err := b.Install(ctx); err != nil {
		return err
	}
	view.Start(b)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.LiveReload().Enabled {
		w, err := livereload.New(cfg.LiveReload(), b.Reload, logger)
		if err != nil {
			return fmt.Errorf("failed to set up live reload: %w", err)
		}
		g.Go(func() error { return w.Run(gctx) })
	}

	g.Go(func() error {
		startURL := cfg.Bridge().StartURL
		if err := b.LoadURL(gctx, startURL); err != nil {
			if errors.Is(err, bridge.ErrFileAccessDisabled) {
				return err
			}
			// Load errors also reach the dispatcher, which handles the fallback page.
			logger.Warn("Start page failed to load.", zap.String("url", startURL), zap.Error(err))
		}
		logger.Info("Web view running. Press Ctrl+C to exit.", zap.String("url", startURL))

		select {
		case <-gctx.Done():
			return nil
		case <-view.Done():
			return errViewClosed
		}
	})

	err = g.Wait()
	if errors.Is(err, errViewClosed) {
		logger.Info("Browser closed, shutting down.")
		return nil
	}
	return err
}
