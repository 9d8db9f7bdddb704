package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/chapi192/SpotifyMatcher/internal/shared"
)

// Setup writes config.toml from the template when missing, creates the data directory and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := shared.ApplyEnv(config); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		r.config = config
		r.configPath = configPath
		r.logger.Info("config file created", "path", configPath)
	}

	if dir := r.config.Library.DataDir; dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.writePlain("✓ Setup complete\n")
	r.writePlain("Config:   %s\n", configPath)
	r.writePlain("Data dir: %s\n", r.config.Library.DataDir)
	r.writePlain("History:  %s\n", r.config.Database.Path)

	creds := r.config.Credentials.Spotify
	if creds.Token() == nil && creds.ClientID != "" && creds.ClientSecret != "" {
		svc, err := r.unauthenticatedSpotify()
		if err == nil {
			r.writePlain("\nNo Spotify token configured. Authorize the app at:\n  %s\n", svc.GetAuthURL(shared.GenerateID()))
			r.writePlain("then store access_token and refresh_token under [credentials.spotify].\n")
		}
	}
	return nil
}
