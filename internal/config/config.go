// Package config loads the kernel simulator's tunables from a YAML file:
// pool and swap sizing, the stack region's bounds, and console buffering.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the kernel simulator's full configuration surface.
type Config struct {
	Memory struct {
		UserFrames int `mapstructure:"user_frames"`
		SwapSlots  int `mapstructure:"swap_slots"`
	} `mapstructure:"memory"`
	Stack struct {
		BaseHex  string `mapstructure:"base_hex"`
		LimitHex string `mapstructure:"limit_hex"`
	} `mapstructure:"stack"`
	Console struct {
		InputBuffer int `mapstructure:"input_buffer"`
	} `mapstructure:"console"`
}

// Default returns the configuration the simulator runs with when no file is
// given: a small pool, a stack region sized like a real Pintos PHYS_BASE
// minus a few megabytes, and a modest console input queue.
func Default() Config {
	var c Config
	c.Memory.UserFrames = 64
	c.Memory.SwapSlots = 128
	c.Stack.BaseHex = "0xc0000000"
	c.Stack.LimitHex = "0xbf800000"
	c.Console.InputBuffer = 256
	return c
}

// Load reads path as YAML, falling back to Default for any field the file
// does not set.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
