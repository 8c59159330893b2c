package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config is the optional config file (~/.config/wgpu-compute/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	Size      *int64 `yaml:"size"`
	Kernel    string `yaml:"kernel"`
	Workgroup *int64 `yaml:"workgroup"`
	Power     string `yaml:"power"`
	Adapter   string `yaml:"adapter"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "wgpu-compute", "config.yaml")
}

// loadConfig reads the config file. Returns a zero Config when the file is
// missing or unreadable; flags always have a usable default.
func loadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// applyLogConfig overlays logging settings when the corresponding flag was
// not set on the command line.
func applyLogConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyRunConfig overlays run defaults from the config file onto unset
// flags.
func applyRunConfig(c *cli.Command, cfg Config,
	size *int64, kernel *string, workgroup *int64, power, adapter *string,
) {
	if cfg.Size != nil && !c.IsSet("size") && !c.IsSet("n") {
		*size = *cfg.Size
	}
	if cfg.Kernel != "" && !c.IsSet("kernel") && !c.IsSet("k") {
		*kernel = cfg.Kernel
	}
	if cfg.Workgroup != nil && !c.IsSet("workgroup") {
		*workgroup = *cfg.Workgroup
	}
	if cfg.Power != "" && !c.IsSet("power") {
		*power = cfg.Power
	}
	if cfg.Adapter != "" && !c.IsSet("adapter") {
		*adapter = cfg.Adapter
	}
}

// applyServeConfig overlays serve defaults from the config file.
func applyServeConfig(c *cli.Command, cfg Config,
	addr *string, workgroup *int64, power, adapter *string,
) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.Workgroup != nil && !c.IsSet("workgroup") {
		*workgroup = *cfg.Workgroup
	}
	if cfg.Power != "" && !c.IsSet("power") {
		*power = cfg.Power
	}
	if cfg.Adapter != "" && !c.IsSet("adapter") {
		*adapter = cfg.Adapter
	}
}
