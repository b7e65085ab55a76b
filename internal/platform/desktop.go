// internal/platform/desktop.go
package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webbridge/internal/config"
)

// Notification is a message posted through PushNotification.
type Notification struct {
	Title   string
	Content string
	Posted  time.Time
}

// State is a point in time view of the mutable device state.
type State struct {
	Orientation    Orientation
	Torch          bool
	StatusBarColor string
	LastVibration  time.Duration
	Notifications  []Notification
}

// Desktop implements Capabilities for a desktop host. Dialogs and toasts are
// surfaced through the logger, device hardware is simulated, and files live
// under the configured storage directory.
type Desktop struct {
	logger     *zap.Logger
	cfg        config.PlatformConfig
	storageDir string

	outMu  sync.Mutex
	stdout io.Writer
	stderr io.Writer

	dial func(ctx context.Context, network, addr string) (net.Conn, error)
	now  func() time.Time

	mu      sync.RWMutex
	granted map[string]bool
	state   State
}

var _ Capabilities = (*Desktop)(nil)

// Option configures a Desktop.
type Option func(*Desktop)

// WithOutput redirects the console print capabilities.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(d *Desktop) {
		d.stdout = stdout
		d.stderr = stderr
	}
}

// WithDialer replaces the dialer used by the connectivity probe.
func WithDialer(dial func(ctx context.Context, network, addr string) (net.Conn, error)) Option {
	return func(d *Desktop) { d.dial = dial }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Desktop) { d.now = now }
}

// NewDesktop creates the desktop capability set. The storage directory is
// expanded (a leading ~ resolves to the user's home) but not created until the
// first write.
func NewDesktop(cfg config.PlatformConfig, logger *zap.Logger, opts ...Option) (*Desktop, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	storageDir, err := homedir.Expand(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand storage directory %q: %w", cfg.StorageDir, err)
	}

	var dialer net.Dialer
	d := &Desktop{
		logger:     logger.Named("platform"),
		cfg:        cfg,
		storageDir: storageDir,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		dial:       dialer.DialContext,
		now:        time.Now,
		granted:    make(map[string]bool, len(cfg.GrantedPermissions)),
		state:      State{Orientation: OrientationSensor},
	}
	for _, p := range cfg.GrantedPermissions {
		d.granted[p] = true
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// StorageDir returns the resolved internal storage directory.
func (d *Desktop) StorageDir() string { return d.storageDir }

// Grant marks permission as granted for the rest of the session.
func (d *Desktop) Grant(permission string) {
	d.mu.Lock()
	d.granted[permission] = true
	d.mu.Unlock()
}

// State returns a copy of the simulated device state.
func (d *Desktop) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := d.state
	s.Notifications = append([]Notification(nil), d.state.Notifications...)
	return s
}

// ShowToast logs message at info level in place of a transient popup.
func (d *Desktop) ShowToast(message string) {
	d.logger.Info("Toast.", zap.String("message", message))
}

// ShowWarning logs a warning dialog.
func (d *Desktop) ShowWarning(title, text string) {
	d.logger.Warn("Warning dialog.", zap.String("title", title), zap.String("text", text))
}

// ShowError logs an error dialog.
func (d *Desktop) ShowError(title, text string) {
	d.logger.Error("Error dialog.", zap.String("title", title), zap.String("text", text))
}

// SystemOut writes message to standard output, followed by a newline when
// newline is set.
func (d *Desktop) SystemOut(message string, newline bool) {
	d.print(d.stdout, message, newline)
}

// SystemErr is SystemOut for standard error.
func (d *Desktop) SystemErr(message string, newline bool) {
	d.print(d.stderr, message, newline)
}

func (d *Desktop) print(w io.Writer, message string, newline bool) {
	d.outMu.Lock()
	defer d.outMu.Unlock()
	if newline {
		fmt.Fprintln(w, message)
		return
	}
	fmt.Fprint(w, message)
}

// NightModeEnabled reports the configured night mode, or "null" when the
// configured value is not one of the known modes.
func (d *Desktop) NightModeEnabled() string {
	switch d.cfg.NightMode {
	case NightModeYes, NightModeNo, NightModeUndefined:
		return d.cfg.NightMode
	default:
		return Null
	}
}

// DisplayRotationMode records the requested orientation: 0 is portrait, 1 is
// landscape and anything else follows the sensor.
func (d *Desktop) DisplayRotationMode(value int) {
	o := OrientationFromInt(value)
	d.mu.Lock()
	d.state.Orientation = o
	d.mu.Unlock()
	d.logger.Debug("Display rotation requested.", zap.Stringer("orientation", o))
}

// ConnectivityStatus dials the probe host. A desktop cannot tell Wi-Fi from a
// mobile link, so any reachable network reports as Wi-Fi.
func (d *Desktop) ConnectivityStatus(ctx context.Context) string {
	host := d.cfg.ConnectivityProbeHost
	if host == "" {
		return ConnectivityError
	}
	if d.cfg.ConnectivityTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.ConnectivityTimeout)
		defer cancel()
	}

	conn, err := d.dial(ctx, "tcp", host)
	if err != nil {
		d.logger.Debug("Connectivity probe failed.", zap.String("host", host), zap.Error(err))
		return ConnectivityNotConnected
	}
	_ = conn.Close()
	return ConnectivityWiFi
}

// CheckPermission reports whether permission has been granted.
func (d *Desktop) CheckPermission(permission string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.granted[permission]
}

// RequestPermission never prompts. Only permissions granted through
// configuration or Grant are reported as held.
func (d *Desktop) RequestPermission(permission string) bool {
	ok := d.CheckPermission(permission)
	if !ok {
		d.logger.Info("Permission requested but not granted.", zap.String("permission", permission))
	}
	return ok
}

// CurrentLocation returns "latitude,longitude" when both location
// permissions are held and a fixed location is configured.
func (d *Desktop) CurrentLocation(ctx context.Context) string {
	d.ShowToast("The application wants to get your location.")
	fine := d.RequestPermission(PermissionFineLocation)
	coarse := d.RequestPermission(PermissionCoarseLocation)
	if !fine || !coarse || !d.cfg.Location.Enabled {
		return Null
	}
	return fmt.Sprintf("%v,%v", d.cfg.Location.Latitude, d.cfg.Location.Longitude)
}

// TakePhoto returns the path the captured image is written to. The desktop
// has no camera, so the path is only reported when a photo directory is
// configured and the camera permission is held.
func (d *Desktop) TakePhoto(ctx context.Context) string {
	if d.cfg.PhotoDir == "" || !d.RequestPermission(PermissionCamera) {
		return Null
	}
	dir, err := homedir.Expand(d.cfg.PhotoDir)
	if err != nil {
		d.logger.Warn("Camera could not be started.", zap.Error(err))
		return Null
	}
	name := "IMG_" + d.now().Format("20060102_150405") + ".jpg"
	return filepath.Join(dir, name)
}

// Vibrate records the requested vibration length.
func (d *Desktop) Vibrate(milliseconds int) {
	dur := time.Duration(milliseconds) * time.Millisecond
	d.mu.Lock()
	d.state.LastVibration = dur
	d.mu.Unlock()
	d.logger.Debug("Vibrate.", zap.Duration("duration", dur))
}

// PushNotification posts a notification when the notification permission is
// held and shows a toast otherwise.
func (d *Desktop) PushNotification(title, content string) {
	if !d.RequestPermission(PermissionNotifications) {
		d.ShowToast("Could not show Notification")
		return
	}
	n := Notification{Title: title, Content: content, Posted: d.now()}
	d.mu.Lock()
	d.state.Notifications = append(d.state.Notifications, n)
	d.mu.Unlock()
	d.logger.Info("Notification posted.", zap.String("title", title), zap.String("content", content))
}

// Flashlight switches the simulated torch on or off.
func (d *Desktop) Flashlight(on bool) {
	d.mu.Lock()
	d.state.Torch = on
	d.mu.Unlock()
	d.logger.Debug("Flashlight toggled.", zap.Bool("on", on))
}

// WriteTextToInternalStorage replaces the named file with content. Names are
// reduced to their base element so writes cannot leave the storage directory.
func (d *Desktop) WriteTextToInternalStorage(fileName, content string) error {
	path, err := d.storagePath(fileName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d.storageDir, 0o700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write %q: %w", fileName, err)
	}
	return nil
}

// ReadTextFromInternalStorage returns the named file's content, or "" when it
// cannot be read.
func (d *Desktop) ReadTextFromInternalStorage(fileName string) string {
	path, err := d.storagePath(fileName)
	if err != nil {
		d.logger.Warn("Invalid storage file name.", zap.String("file", fileName), zap.Error(err))
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		d.logger.Warn("Failed to read from internal storage.", zap.String("file", fileName), zap.Error(err))
		return ""
	}
	return string(data)
}

// SetStatusBarColor stores color as #AARRGGBB. Colors that do not parse are
// rejected and leave the current color unchanged.
func (d *Desktop) SetStatusBarColor(color string) error {
	normalized, err := ParseColor(color)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.state.StatusBarColor = normalized
	d.mu.Unlock()
	return nil
}

var errEmptyFileName = errors.New("file name is empty")

func (d *Desktop) storagePath(fileName string) (string, error) {
	base := filepath.Base(filepath.Clean("/" + fileName))
	if fileName == "" || base == "/" || base == "." {
		return "", errEmptyFileName
	}
	return filepath.Join(d.storageDir, base), nil
}
