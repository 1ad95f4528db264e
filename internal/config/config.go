// Package config loads the daemon's own bootstrap configuration: the
// plugin root, profile root, HTTP listen address, and log directory,
// layered env > file > defaults through github.com/spf13/viper.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the daemon's bootstrap configuration, read once at process
// start by cmd/dashostd.
type Config struct {
	// PluginRoot is the directory pluginmgr.Discovery watches for
	// native-process plugin executables.
	PluginRoot string `mapstructure:"plugin_root"`

	// ProfileRoot is the directory holding one subdirectory per
	// settings.Profile.
	ProfileRoot string `mapstructure:"profile_root"`

	// ActiveProfile is the profile id loaded at startup.
	ActiveProfile string `mapstructure:"active_profile"`

	// HTTPAddr is the listen address for internal/httpapi.
	HTTPAddr string `mapstructure:"http_addr"`

	// LogDir is where corelog's rotating file sink writes.
	LogDir string `mapstructure:"log_dir"`

	// CoreName is the log file's base name (logs/<core-name>.log).
	CoreName string `mapstructure:"core_name"`

	// IPCAddr is the listen address for the IPC server's host
	// connections (see internal/ipc/server).
	IPCAddr string `mapstructure:"ipc_addr"`

	// SchedulerPollInterval overrides the scheduler driver's polling
	// cadence; zero means the package default of 100ms.
	SchedulerPollInterval time.Duration `mapstructure:"scheduler_poll_interval"`

	// PythonExecutable is the interpreter binary pluginmgr.Discovery
	// bootstraps the first time it finds a .py plugin module under
	// PluginRoot.
	PythonExecutable string `mapstructure:"python_executable"`
}

// Default returns the configuration used when no file, flag, or env
// var overrides a key.
func Default() Config {
	return Config{
		PluginRoot:    "./plugins",
		ProfileRoot:   "./profiles",
		ActiveProfile: "default",
		HTTPAddr:      ":8080",
		LogDir:        "./logs",
		CoreName:         "dashost",
		IPCAddr:          ":7443",
		PythonExecutable: "python3",
	}
}

// Load builds a Config by layering, lowest to highest precedence: the
// package defaults, an optional config file at path (if non-empty and
// present), and environment variables prefixed DASHOST_ (e.g.
// DASHOST_HTTP_ADDR overrides http_addr).
func Load(path string) (Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("plugin_root", def.PluginRoot)
	v.SetDefault("profile_root", def.ProfileRoot)
	v.SetDefault("active_profile", def.ActiveProfile)
	v.SetDefault("http_addr", def.HTTPAddr)
	v.SetDefault("log_dir", def.LogDir)
	v.SetDefault("core_name", def.CoreName)
	v.SetDefault("ipc_addr", def.IPCAddr)
	v.SetDefault("scheduler_poll_interval", def.SchedulerPollInterval)
	v.SetDefault("python_executable", def.PythonExecutable)

	v.SetEnvPrefix("dashost")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
