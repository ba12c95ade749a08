package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	named := map[string]string{
		"paths.inbound_dir": c.Paths.InboundDir,
		"paths.archive_dir": c.Paths.ArchiveDir,
		"paths.failed_dir":  c.Paths.FailedDir,
		"paths.log_dir":     c.Paths.LogDir,
	}
	for key, value := range named {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if strings.TrimSpace(c.Paths.InboundDir) == strings.TrimSpace(c.Paths.ArchiveDir) {
		return errors.New("paths.inbound_dir and paths.archive_dir must differ")
	}
	if strings.TrimSpace(c.Paths.InboundDir) == strings.TrimSpace(c.Paths.FailedDir) {
		return errors.New("paths.inbound_dir and paths.failed_dir must differ")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if strings.TrimSpace(c.Worker.Binary) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/fmqueue/config.toml"
		}
		return fmt.Errorf("worker.binary is required. Edit %s (create with 'fmqueue config init')", defaultPath)
	}
	if c.Worker.TimeoutSeconds <= 0 {
		return errors.New("worker.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if !c.Notifications.Enabled {
		return nil
	}
	for key, value := range map[string]string{
		"notifications.start_url":      c.Notifications.StartURL,
		"notifications.completion_url": c.Notifications.CompletionURL,
	} {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return fmt.Errorf("%s must be set when notifications.enabled is true", key)
		}
		parsed, err := url.Parse(trimmed)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL", key)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateRetention() error {
	if c.Retention.MaxAgeDays <= 0 {
		return errors.New("retention.max_age_days must be positive")
	}
	if c.Retention.MinIntervalDays <= 0 {
		return errors.New("retention.min_interval_days must be positive")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.ItemDelayMS < 0 {
		return errors.New("queue.item_delay_ms must not be negative")
	}
	if c.Queue.MaxPasses < 0 {
		return errors.New("queue.max_passes must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
