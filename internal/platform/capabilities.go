// internal/platform/capabilities.go
package platform

import "context"

// Sentinel returned to page scripts when a capability has no value to report.
const Null = "null"

// Night mode values reported by NightModeEnabled.
const (
	NightModeYes       = "UI_MODE_NIGHT_YES"
	NightModeNo        = "UI_MODE_NIGHT_NO"
	NightModeUndefined = "UI_MODE_NIGHT_UNDEFINED"
)

// Connectivity values reported by ConnectivityStatus.
const (
	ConnectivityWiFi         = "TYPE_WIFI"
	ConnectivityMobile       = "TYPE_MOBILE"
	ConnectivityNotConnected = "TYPE_NOT_CONNECTED"
	ConnectivityError        = "Type_Error"
)

// Permission names understood by the desktop platform.
const (
	PermissionFineLocation   = "android.permission.ACCESS_FINE_LOCATION"
	PermissionCoarseLocation = "android.permission.ACCESS_COARSE_LOCATION"
	PermissionCamera         = "android.permission.CAMERA"
	PermissionNotifications  = "android.permission.POST_NOTIFICATIONS"
)

// Orientation is the requested display rotation.
type Orientation int

const (
	OrientationPortrait Orientation = iota
	OrientationLandscape
	OrientationSensor
)

func (o Orientation) String() string {
	switch o {
	case OrientationPortrait:
		return "portrait"
	case OrientationLandscape:
		return "landscape"
	default:
		return "sensor"
	}
}

// OrientationFromInt maps the script-facing rotation code: 0 portrait,
// 1 landscape, anything else follows the sensor.
func OrientationFromInt(v int) Orientation {
	switch v {
	case 0:
		return OrientationPortrait
	case 1:
		return OrientationLandscape
	default:
		return OrientationSensor
	}
}

// Capabilities is the set of native features exposed to page scripts.
// Implementations must be safe for concurrent use.
type Capabilities interface {
	ShowToast(message string)
	ShowWarning(title, text string)
	ShowError(title, text string)
	SystemOut(message string, newline bool)
	SystemErr(message string, newline bool)

	NightModeEnabled() string
	DisplayRotationMode(value int)
	ConnectivityStatus(ctx context.Context) string

	CheckPermission(permission string) bool
	RequestPermission(permission string) bool

	CurrentLocation(ctx context.Context) string
	TakePhoto(ctx context.Context) string
	Vibrate(milliseconds int)
	PushNotification(title, content string)
	Flashlight(on bool)

	WriteTextToInternalStorage(fileName, content string) error
	ReadTextFromInternalStorage(fileName string) string

	SetStatusBarColor(color string) error
}
