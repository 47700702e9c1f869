package config

import (
	"strings"

	"github.com/vearutop/tilesplit/internal/logging"
)

func (c *Config) normalize() {
	c.normalizeOutput()
	c.normalizeLogging()
}

func (c *Config) normalizeOutput() {
	if c.Output.JPEGQuality == 0 {
		c.Output.JPEGQuality = defaultJPEGQuality
	}
	if c.Output.GainmapQuality == 0 {
		c.Output.GainmapQuality = defaultGainmapQuality
	}
	if c.Output.FallbackQuality == 0 {
		c.Output.FallbackQuality = defaultFallbackQuality
	}
	if strings.TrimSpace(c.Output.LeftSuffix) == "" {
		c.Output.LeftSuffix = defaultLeftSuffix
	}
	if strings.TrimSpace(c.Output.RightSuffix) == "" {
		c.Output.RightSuffix = defaultRightSuffix
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if logging.DebugFromEnv() {
		c.Logging.Debug = true
	}
}
