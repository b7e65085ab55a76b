// internal/platform/desktop_test.go
package platform

import (
	"bytes"
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/webbridge/internal/config"
)

func newTestDesktop(t *testing.T, mutate func(*config.PlatformConfig), opts ...Option) *Desktop {
	t.Helper()
	cfg := config.NewDefaultConfig().Platform()
	cfg.StorageDir = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := NewDesktop(cfg, zaptest.NewLogger(t), opts...)
	require.NoError(t, err)
	return d
}

func TestDesktop_InternalStorage(t *testing.T) {
	d := newTestDesktop(t, nil)

	t.Run("write then read returns content", func(t *testing.T) {
		require.NoError(t, d.WriteTextToInternalStorage("notes.txt", "line one\nline two"))
		assert.Equal(t, "line one\nline two", d.ReadTextFromInternalStorage("notes.txt"))
	})

	t.Run("write replaces previous content", func(t *testing.T) {
		require.NoError(t, d.WriteTextToInternalStorage("notes.txt", "first"))
		require.NoError(t, d.WriteTextToInternalStorage("notes.txt", "second"))
		assert.Equal(t, "second", d.ReadTextFromInternalStorage("notes.txt"))
	})

	t.Run("missing file reads as empty", func(t *testing.T) {
		assert.Equal(t, "", d.ReadTextFromInternalStorage("missing.txt"))
	})

	t.Run("names cannot escape the storage directory", func(t *testing.T) {
		require.NoError(t, d.WriteTextToInternalStorage("../../escape.txt", "x"))
		assert.FileExists(t, filepath.Join(d.StorageDir(), "escape.txt"))
		assert.Equal(t, "x", d.ReadTextFromInternalStorage("escape.txt"))
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		assert.ErrorIs(t, d.WriteTextToInternalStorage("", "x"), errEmptyFileName)
		assert.Equal(t, "", d.ReadTextFromInternalStorage(""))
	})
}

func TestDesktop_StorageDirExpandsHome(t *testing.T) {
	d := newTestDesktop(t, func(c *config.PlatformConfig) { c.StorageDir = "~/webbridge-storage" })
	assert.True(t, filepath.IsAbs(d.StorageDir()))
	assert.Equal(t, "webbridge-storage", filepath.Base(d.StorageDir()))
}

func TestDesktop_Permissions(t *testing.T) {
	d := newTestDesktop(t, func(c *config.PlatformConfig) {
		c.GrantedPermissions = []string{PermissionCamera}
	})

	assert.True(t, d.CheckPermission(PermissionCamera))
	assert.False(t, d.CheckPermission(PermissionFineLocation))
	assert.False(t, d.RequestPermission(PermissionFineLocation))

	d.Grant(PermissionFineLocation)
	assert.True(t, d.RequestPermission(PermissionFineLocation))
}

func TestDesktop_CurrentLocation(t *testing.T) {
	located := func(c *config.PlatformConfig) {
		c.Location = config.LocationConfig{Enabled: true, Latitude: 52.52, Longitude: 13.405}
	}

	t.Run("without permissions", func(t *testing.T) {
		d := newTestDesktop(t, located)
		assert.Equal(t, Null, d.CurrentLocation(context.Background()))
	})

	t.Run("with permissions", func(t *testing.T) {
		d := newTestDesktop(t, located)
		d.Grant(PermissionFineLocation)
		d.Grant(PermissionCoarseLocation)
		assert.Equal(t, "52.52,13.405", d.CurrentLocation(context.Background()))
	})

	t.Run("no configured location", func(t *testing.T) {
		d := newTestDesktop(t, nil)
		d.Grant(PermissionFineLocation)
		d.Grant(PermissionCoarseLocation)
		assert.Equal(t, Null, d.CurrentLocation(context.Background()))
	})
}

func TestDesktop_TakePhoto(t *testing.T) {
	fixed := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	photoDir := t.TempDir()

	d := newTestDesktop(t, func(c *config.PlatformConfig) { c.PhotoDir = photoDir },
		WithClock(func() time.Time { return fixed }))
	assert.Equal(t, Null, d.TakePhoto(context.Background()), "camera permission is required")

	d.Grant(PermissionCamera)
	assert.Equal(t, filepath.Join(photoDir, "IMG_20240309_140507.jpg"), d.TakePhoto(context.Background()))
}

func TestDesktop_NightMode(t *testing.T) {
	tests := []struct {
		configured string
		want       string
	}{
		{NightModeYes, NightModeYes},
		{NightModeNo, NightModeNo},
		{NightModeUndefined, NightModeUndefined},
		{"dusk", Null},
	}
	for _, tt := range tests {
		t.Run(tt.configured, func(t *testing.T) {
			d := newTestDesktop(t, func(c *config.PlatformConfig) { c.NightMode = tt.configured })
			assert.Equal(t, tt.want, d.NightModeEnabled())
		})
	}
}

func TestDesktop_ConnectivityStatus(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		var dialed string
		d := newTestDesktop(t, nil, WithDialer(func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialed = addr
			client, server := net.Pipe()
			t.Cleanup(func() { _ = server.Close() })
			return client, nil
		}))
		assert.Equal(t, ConnectivityWiFi, d.ConnectivityStatus(context.Background()))
		assert.Equal(t, "1.1.1.1:53", dialed)
	})

	t.Run("unreachable", func(t *testing.T) {
		d := newTestDesktop(t, nil, WithDialer(func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, errors.New("network is unreachable")
		}))
		assert.Equal(t, ConnectivityNotConnected, d.ConnectivityStatus(context.Background()))
	})

	t.Run("no probe host", func(t *testing.T) {
		d := newTestDesktop(t, func(c *config.PlatformConfig) { c.ConnectivityProbeHost = "" })
		assert.Equal(t, ConnectivityError, d.ConnectivityStatus(context.Background()))
	})
}

func TestDesktop_DeviceState(t *testing.T) {
	d := newTestDesktop(t, func(c *config.PlatformConfig) {
		c.GrantedPermissions = append(c.GrantedPermissions, PermissionNotifications)
	})

	d.DisplayRotationMode(1)
	d.Flashlight(true)
	d.Vibrate(250)
	d.PushNotification("Title", "Body")
	require.NoError(t, d.SetStatusBarColor("#336699"))

	s := d.State()
	assert.Equal(t, OrientationLandscape, s.Orientation)
	assert.True(t, s.Torch)
	assert.Equal(t, 250*time.Millisecond, s.LastVibration)
	assert.Equal(t, "#FF336699", s.StatusBarColor)
	require.Len(t, s.Notifications, 1)
	assert.Equal(t, "Title", s.Notifications[0].Title)

	d.DisplayRotationMode(7)
	assert.Equal(t, OrientationSensor, d.State().Orientation)

	assert.Error(t, d.SetStatusBarColor("not-a-color"))
	assert.Equal(t, "#FF336699", d.State().StatusBarColor)

	assert.False(t, d.CheckPermission(PermissionCamera))
	d.Grant(PermissionCamera)
	assert.True(t, d.CheckPermission(PermissionCamera))
}

func TestDesktop_PushNotificationWithoutPermission(t *testing.T) {
	d := newTestDesktop(t, nil)
	d.PushNotification("Title", "Body")
	assert.Empty(t, d.State().Notifications)
}

func TestDesktop_SystemPrint(t *testing.T) {
	var out, errOut bytes.Buffer
	d := newTestDesktop(t, nil, WithOutput(&out, &errOut))

	d.SystemOut("a", false)
	d.SystemOut("b", true)
	d.SystemErr("c", true)

	assert.Equal(t, "ab\n", out.String())
	assert.Equal(t, "c\n", errOut.String())
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "#ff0000", want: "#FFFF0000"},
		{in: "#80112233", want: "#80112233"},
		{in: "Teal", want: "#FF008080"},
		{in: "#12345", wantErr: true},
		{in: "#GGGGGG", wantErr: true},
		{in: "blurple", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
