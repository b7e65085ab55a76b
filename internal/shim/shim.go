// internal/shim/shim.go
package shim

import (
	_ "embed"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const (
	// ConfigPlaceholder is the string replaced in the JS template with the actual JSON configuration.
	ConfigPlaceholder = "/*{{WEBBRIDGE_CONFIG}}*/"
)

//go:embed bridge.js
var bridgeTemplate string

// Config is the page-side view of the bridge.
type Config struct {
	InterfaceName    string   `json:"interfaceName"`
	NativeObjectName string   `json:"nativeObjectName"`
	BindingName      string   `json:"bindingName"`
	ResolveName      string   `json:"resolveName"`
	Methods          []string `json:"methods"`
}

// Template returns the embedded bridge script template.
func Template() string { return bridgeTemplate }

// Build renders the embedded bridge script for cfg.
func Build(cfg Config) (string, error) {
	if cfg.InterfaceName == "" || cfg.NativeObjectName == "" || cfg.BindingName == "" || cfg.ResolveName == "" {
		return "", fmt.Errorf("shim config requires interface, native object, binding and resolve names")
	}
	if cfg.Methods == nil {
		cfg.Methods = []string{}
	}
	configJSON, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode shim config: %w", err)
	}
	return Inject(bridgeTemplate, configJSON)
}

// Inject replaces the placeholder in template with configJSON.
func Inject(template, configJSON string) (string, error) {
	if template == "" {
		return "", fmt.Errorf("template is empty")
	}

	if !strings.Contains(template, ConfigPlaceholder) {
		return "", fmt.Errorf("template does not contain the required placeholder: %s", ConfigPlaceholder)
	}

	if configJSON == "" {
		configJSON = "{}"
	}

	script := strings.Replace(template, ConfigPlaceholder, configJSON, 1)
	return script, nil
}
