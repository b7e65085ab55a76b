// internal/webview/options.go
package webview

import (
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webbridge/internal/config"
)

// ExecAllocatorOptions translates the browser configuration into Chrome
// launch options.
func ExecAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	// Start with chromedp defaults
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		// Recommended for stability in containers.
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	// DefaultExecAllocatorOptions starts headless; a visible window needs the flag cleared.
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false), chromedp.Flag("hide-scrollbars", false))
	}

	if cfg.DisableGPU {
		opts = append(opts, chromedp.DisableGPU)
	}

	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}

	// Add additional flags from the config file's 'args' slice.
	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(arg, "-")
		if arg == "" {
			continue
		}
		key, value, found := strings.Cut(arg, "=")
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			// Handle boolean flags like --disable-dev-shm-usage
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

// contextOptions routes chromedp's own logging through zap.
func contextOptions(cfg config.BrowserConfig, logger *zap.Logger) []chromedp.ContextOption {
	sugar := logger.Named("cdp").Sugar()
	opts := []chromedp.ContextOption{
		chromedp.WithLogf(sugar.Infof),
		chromedp.WithErrorf(sugar.Errorf),
	}
	if cfg.Debug {
		opts = append(opts, chromedp.WithDebugf(sugar.Debugf))
	}
	return opts
}
