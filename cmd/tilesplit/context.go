package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/vearutop/tilesplit"
	"github.com/vearutop/tilesplit/internal/config"
	"github.com/vearutop/tilesplit/internal/logging"
)

type commandContext struct {
	configFlag *string
	debugFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, debugFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, debugFlag: debugFlag}
}

// ensureConfig loads the configuration once. Load failures are usage errors.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("%w: load config: %w", tilesplit.ErrUsage, err)
			return
		}
		if c.debugFlag != nil && *c.debugFlag {
			cfg.Logging.Debug = true
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
		Debug:  cfg.Logging.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tilesplit.ErrUsage, err)
	}
	return log, nil
}

// options converts the loaded configuration into engine options.
func (c *commandContext) options(cmd *cobra.Command, onResult func(res *tilesplit.Result)) (func(o *tilesplit.Options), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log, err := c.logger(cmd)
	if err != nil {
		return nil, err
	}
	return func(o *tilesplit.Options) {
		o.Logger = log
		o.SDRQuality = cfg.Output.JPEGQuality
		o.GainmapQuality = cfg.Output.GainmapQuality
		o.FallbackQuality = cfg.Output.FallbackQuality
		o.OnResult = onResult
	}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// usageArgs marks positional argument errors as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", tilesplit.ErrUsage, err)
		}
		return nil
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
