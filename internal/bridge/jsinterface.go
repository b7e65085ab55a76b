// internal/bridge/jsinterface.go
package bridge

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/webbridge/internal/platform"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ResolveFunctionName is the page global that settles pending interface calls.
const ResolveFunctionName = "__webbridgeResolve"

// interfaceRequest is the payload page scripts post through the binding.
type interfaceRequest struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// JSInterface exposes platform capabilities to page scripts. Each method has
// a fixed signature; calls arrive as JSON payloads and are answered with a
// script that settles the caller's promise.
type JSInterface struct {
	registry    *Registry
	limiter     *rate.Limiter
	logger      *zap.Logger
	resolveName string
}

// NewJSInterface registers the capability methods. goBack backs the goBack
// method, since history belongs to the view and not the platform.
func NewJSInterface(caps platform.Capabilities, goBack func(ctx context.Context) (bool, error), limit rate.Limit, burst int, logger *zap.Logger) *JSInterface {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &JSInterface{
		registry:    NewRegistry(logger.Named("interface_registry")),
		limiter:     rate.NewLimiter(limit, burst),
		logger:      logger,
		resolveName: ResolveFunctionName,
	}
	j.registerCapabilities(caps, goBack)
	return j
}

func (j *JSInterface) registerCapabilities(caps platform.Capabilities, goBack func(ctx context.Context) (bool, error)) {
	reg := func(name string, h Handler, sig ...Kind) {
		if sig == nil {
			sig = []Kind{}
		}
		j.registry.Register(caps, name, name, h, sig...)
	}
	void := func(fn func(Args)) Handler {
		return func(_ context.Context, args Args) (any, error) {
			fn(args)
			return nil, nil
		}
	}

	reg("goBack", func(ctx context.Context, _ Args) (any, error) {
		if goBack == nil {
			return false, nil
		}
		return goBack(ctx)
	})
	reg("showToast", void(func(a Args) { caps.ShowToast(a.String(0)) }), KindString)
	reg("showWarning", void(func(a Args) { caps.ShowWarning(a.String(0), a.String(1)) }), KindString, KindString)
	reg("showError", void(func(a Args) { caps.ShowError(a.String(0), a.String(1)) }), KindString, KindString)
	reg("systemOutPrintln", void(func(a Args) { caps.SystemOut(a.String(0), true) }), KindString)
	reg("systemErrPrintln", void(func(a Args) { caps.SystemErr(a.String(0), true) }), KindString)
	reg("systemOutPrint", void(func(a Args) { caps.SystemOut(a.String(0), false) }), KindString)
	reg("systemErrPrint", void(func(a Args) { caps.SystemErr(a.String(0), false) }), KindString)
	reg("nightModeEnabled", func(context.Context, Args) (any, error) {
		return caps.NightModeEnabled(), nil
	})
	reg("displayRotationMode", void(func(a Args) { caps.DisplayRotationMode(a.Int(0)) }), KindInt)
	reg("getConnectivityStatus", func(ctx context.Context, _ Args) (any, error) {
		return caps.ConnectivityStatus(ctx), nil
	})
	reg("checkPermission", func(_ context.Context, a Args) (any, error) {
		return caps.CheckPermission(a.String(0)), nil
	}, KindString)
	reg("requestPermission", func(_ context.Context, a Args) (any, error) {
		return caps.RequestPermission(a.String(0)), nil
	}, KindString)
	reg("getCurrentLocation", func(ctx context.Context, _ Args) (any, error) {
		return caps.CurrentLocation(ctx), nil
	})
	reg("takePhoto", func(ctx context.Context, _ Args) (any, error) {
		return caps.TakePhoto(ctx), nil
	})
	reg("vibrate", void(func(a Args) { caps.Vibrate(a.Int(0)) }), KindInt)
	reg("pushNotification", void(func(a Args) { caps.PushNotification(a.String(0), a.String(1)) }), KindString, KindString)
	reg("flashlight", void(func(a Args) { caps.Flashlight(a.Bool(0)) }), KindBool)
	reg("writeTextToInternalStorage", func(_ context.Context, a Args) (any, error) {
		return nil, caps.WriteTextToInternalStorage(a.String(0), a.String(1))
	}, KindString, KindString)
	reg("readTextFromInternalStorage", func(_ context.Context, a Args) (any, error) {
		return caps.ReadTextFromInternalStorage(a.String(0)), nil
	}, KindString)
	reg("setStatusBarColor", func(_ context.Context, a Args) (any, error) {
		return nil, caps.SetStatusBarColor(a.String(0))
	}, KindString)
}

// Methods returns the method names exposed to page scripts.
func (j *JSInterface) Methods() []string {
	return j.registry.Keywords()
}

// Handle decodes a binding payload, runs the requested method and returns the
// script that settles the page-side promise. ok is false when the payload
// cannot be decoded, in which case there is no promise to settle.
func (j *JSInterface) Handle(ctx context.Context, payload string) (script string, ok bool) {
	var req interfaceRequest
	if err := json.UnmarshalFromString(payload, &req); err != nil {
		j.logger.Warn("Discarding malformed interface payload.", zap.String("payload", payload), zap.Error(err))
		return "", false
	}

	if !j.limiter.Allow() {
		j.logger.Warn("Interface call dropped by rate limiter.", zap.String("method", req.Method))
		return j.resolveScript(req.ID, nil, nil), true
	}

	result, err := j.call(ctx, req)
	if err != nil {
		j.logger.Error("Interface call failed.", zap.String("method", req.Method), zap.Error(err))
	}
	return j.resolveScript(req.ID, result, err), true
}

func (j *JSInterface) call(ctx context.Context, req interfaceRequest) (any, error) {
	values := make([]Value, len(req.Args))
	for i, a := range req.Args {
		v, err := valueFromJSON(a)
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", req.Method, i, err)
		}
		values[i] = v
	}
	return j.registry.Invoke(ctx, req.Method, values)
}

func (j *JSInterface) resolveScript(id int64, result any, callErr error) string {
	resultJSON, err := json.MarshalToString(result)
	if err != nil {
		callErr = fmt.Errorf("failed to encode result: %w", err)
		resultJSON = "null"
	}
	errJSON := "null"
	if callErr != nil {
		errJSON, _ = json.MarshalToString(callErr.Error())
	}
	return fmt.Sprintf("window.%s(%d, %s, %s);", j.resolveName, id, resultJSON, errJSON)
}
