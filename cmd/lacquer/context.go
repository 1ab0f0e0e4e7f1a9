package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"lacquer/internal/config"
)

// commandContext carries the lazily loaded configuration shared by every
// subcommand. Loading happens at most once per invocation no matter how
// many commands ask for it.
type commandContext struct {
	configFlag *string

	loadOnce sync.Once
	cfg      *config.Config
	loadErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.loadOnce.Do(func() {
		c.cfg, c.loadErr = c.loadConfig()
	})
	return c.cfg, c.loadErr
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	cfg, _, _, err := config.Load(c.requestedPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// requestedPath returns the --config flag value, or empty when the default
// resolution order should apply.
func (c *commandContext) requestedPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// shouldSkipConfig walks up the command chain looking for the annotation
// set by commands that must run without a readable configuration, such as
// config init on a fresh machine.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
