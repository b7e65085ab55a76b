// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Bridge() BridgeConfig
	Platform() PlatformConfig
	LiveReload() LiveReloadConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserExecPath(string)

	// Bridge Setters
	SetBridgeStartURL(string)
	SetBridgePageNotFoundURL(string)

	// LiveReload Setters
	SetLiveReloadEnabled(bool)
	SetLiveReloadPaths([]string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	BrowserCfg    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	BridgeCfg     BridgeConfig     `mapstructure:"bridge" yaml:"bridge"`
	PlatformCfg   PlatformConfig   `mapstructure:"platform" yaml:"platform"`
	LiveReloadCfg LiveReloadConfig `mapstructure:"livereload" yaml:"livereload"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig       { return c.BrowserCfg }
func (c *Config) Bridge() BridgeConfig         { return c.BridgeCfg }
func (c *Config) Platform() PlatformConfig     { return c.PlatformCfg }
func (c *Config) LiveReload() LiveReloadConfig { return c.LiveReloadCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)         { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserExecPath(p string)       { c.BrowserCfg.ExecPath = p }
func (c *Config) SetBridgeStartURL(u string)        { c.BridgeCfg.StartURL = u }
func (c *Config) SetBridgePageNotFoundURL(u string) { c.BridgeCfg.PageNotFoundURL = u }
func (c *Config) SetLiveReloadEnabled(b bool)       { c.LiveReloadCfg.Enabled = b }
func (c *Config) SetLiveReloadPaths(p []string)     { c.LiveReloadCfg.Paths = append([]string(nil), p...) }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls the Chrome instance backing the web view.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	DisableGPU        bool          `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	ScriptTimeout     time.Duration `mapstructure:"script_timeout" yaml:"script_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	EventBuffer       int           `mapstructure:"event_buffer" yaml:"event_buffer"`
	Debug             bool          `mapstructure:"debug" yaml:"debug"`
}

// BridgeConfig controls the native/script bridge.
type BridgeConfig struct {
	StartURL        string `mapstructure:"start_url" yaml:"start_url"`
	PageNotFoundURL string `mapstructure:"page_not_found_url" yaml:"page_not_found_url"`
	// InterfaceName is the global the script-callable object is installed under.
	InterfaceName string `mapstructure:"interface_name" yaml:"interface_name"`
	// NativeObjectName is the global holding the helper object page scripts use.
	NativeObjectName   string  `mapstructure:"native_object_name" yaml:"native_object_name"`
	BindingName        string  `mapstructure:"binding_name" yaml:"binding_name"`
	DecodeFragmentArgs bool    `mapstructure:"decode_fragment_args" yaml:"decode_fragment_args"`
	AllowFileAccess    bool    `mapstructure:"allow_file_access" yaml:"allow_file_access"`
	InterfaceRate      float64 `mapstructure:"interface_rate" yaml:"interface_rate"`
	InterfaceBurst     int     `mapstructure:"interface_burst" yaml:"interface_burst"`
}

// LocationConfig is the fixed position reported by the desktop platform.
type LocationConfig struct {
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
	Latitude  float64 `mapstructure:"latitude" yaml:"latitude"`
	Longitude float64 `mapstructure:"longitude" yaml:"longitude"`
}

// PlatformConfig configures the desktop capability implementations.
type PlatformConfig struct {
	StorageDir            string         `mapstructure:"storage_dir" yaml:"storage_dir"`
	PhotoDir              string         `mapstructure:"photo_dir" yaml:"photo_dir"`
	GrantedPermissions    []string       `mapstructure:"granted_permissions" yaml:"granted_permissions"`
	NightMode             string         `mapstructure:"night_mode" yaml:"night_mode"`
	ConnectivityProbeHost string         `mapstructure:"connectivity_probe_host" yaml:"connectivity_probe_host"`
	ConnectivityTimeout   time.Duration  `mapstructure:"connectivity_timeout" yaml:"connectivity_timeout"`
	Location              LocationConfig `mapstructure:"location" yaml:"location"`
}

// LiveReloadConfig configures reloading the view when local content changes.
type LiveReloadConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Paths    []string      `mapstructure:"paths" yaml:"paths"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "webbridge")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.disable_gpu", false)
	v.SetDefault("browser.window_width", 412)
	v.SetDefault("browser.window_height", 915)
	v.SetDefault("browser.script_timeout", "20s")
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.event_buffer", 64)
	v.SetDefault("browser.debug", false)

	// -- Bridge --
	v.SetDefault("bridge.start_url", "about:blank")
	v.SetDefault("bridge.page_not_found_url", "")
	v.SetDefault("bridge.interface_name", "Android")
	v.SetDefault("bridge.native_object_name", "Native")
	v.SetDefault("bridge.binding_name", "__webbridgeInvoke")
	v.SetDefault("bridge.decode_fragment_args", false)
	v.SetDefault("bridge.allow_file_access", true)
	v.SetDefault("bridge.interface_rate", 50.0)
	v.SetDefault("bridge.interface_burst", 100)

	// -- Platform --
	v.SetDefault("platform.storage_dir", "~/.webbridge/storage")
	v.SetDefault("platform.photo_dir", "")
	v.SetDefault("platform.granted_permissions", []string{
		"android.permission.INTERNET",
		"android.permission.ACCESS_NETWORK_STATE",
		"android.permission.VIBRATE",
	})
	v.SetDefault("platform.night_mode", "UI_MODE_NIGHT_NO")
	v.SetDefault("platform.connectivity_probe_host", "1.1.1.1:53")
	v.SetDefault("platform.connectivity_timeout", "2s")
	v.SetDefault("platform.location.enabled", false)

	// -- LiveReload --
	v.SetDefault("livereload.enabled", false)
	v.SetDefault("livereload.debounce", "250ms")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Machine specific settings that do not belong in a shared config file.
	_ = v.BindEnv("browser.exec_path", "WEBBRIDGE_CHROME_PATH")
	_ = v.BindEnv("bridge.start_url", "WEBBRIDGE_START_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.BrowserCfg.ScriptTimeout <= 0 {
		return fmt.Errorf("browser.script_timeout must be a positive duration")
	}
	if c.BrowserCfg.EventBuffer <= 0 {
		return fmt.Errorf("browser.event_buffer must be a positive integer")
	}
	if err := c.BridgeCfg.Validate(); err != nil {
		return fmt.Errorf("bridge configuration invalid: %w", err)
	}
	if err := c.LiveReloadCfg.Validate(); err != nil {
		return fmt.Errorf("livereload configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the bridge configuration.
func (b *BridgeConfig) Validate() error {
	if b.InterfaceName == "" || b.NativeObjectName == "" || b.BindingName == "" {
		return fmt.Errorf("interface_name, native_object_name and binding_name are required")
	}
	if b.InterfaceName == b.NativeObjectName {
		return fmt.Errorf("interface_name and native_object_name must differ")
	}
	if b.InterfaceRate <= 0 || b.InterfaceBurst <= 0 {
		return fmt.Errorf("interface_rate and interface_burst must be positive")
	}
	return nil
}

// Validate checks the live reload configuration.
func (l *LiveReloadConfig) Validate() error {
	if !l.Enabled {
		return nil
	}
	if l.Debounce <= 0 {
		return fmt.Errorf("debounce must be a positive duration")
	}
	return nil
}
