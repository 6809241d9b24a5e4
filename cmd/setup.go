package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the template when missing, then initializes the database and sessions directory.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Created %s\n", configPath)

		config, err := shared.LoadConfigOrDefault(configPath)
		if err != nil {
			return err
		}
		r.config = config
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if _, err := r.database(); err != nil {
		return err
	}
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)

	dir, err := shared.EnsureSecureDir(r.config.Telegram.SessionsPath)
	if err != nil {
		return fmt.Errorf("failed to prepare sessions directory: %w", err)
	}
	r.writePlain("✓ Sessions directory ready at %s\n", dir)

	if err := r.config.Validate(); err != nil {
		r.writePlainln("⚠ Fill in the missing values in %s before running:", configPath)
		r.writePlain("%v\n", err)
		return nil
	}

	r.writePlainln("Next: nowplaying spotify auth && nowplaying telegram login")
	return nil
}
