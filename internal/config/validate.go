package config

import (
	"fmt"
	"strings"

	"github.com/vearutop/tilesplit/internal/logging"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOutput(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateOutput() error {
	for _, q := range []struct {
		key   string
		value int
	}{
		{"output.jpeg_quality", c.Output.JPEGQuality},
		{"output.gainmap_quality", c.Output.GainmapQuality},
		{"output.fallback_quality", c.Output.FallbackQuality},
	} {
		if q.value < 1 || q.value > 100 {
			return fmt.Errorf("%s must be between 1 and 100, got %d", q.key, q.value)
		}
	}
	if c.Output.LeftSuffix == c.Output.RightSuffix {
		return fmt.Errorf("output.left_suffix and output.right_suffix must differ, both are %q", c.Output.LeftSuffix)
	}
	for _, s := range []string{c.Output.LeftSuffix, c.Output.RightSuffix} {
		if strings.ContainsAny(s, `/\`) {
			return fmt.Errorf("output suffix %q must not contain path separators", s)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
