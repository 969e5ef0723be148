package commands

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/johanforsgren/dbxutil/internal/config"
	"github.com/johanforsgren/dbxutil/internal/logger"
	"github.com/johanforsgren/dbxutil/internal/provider/common"
	"github.com/johanforsgren/dbxutil/internal/provider/dropbox"
	"github.com/johanforsgren/dbxutil/internal/ui"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	return rootCommand().Run(ctx, args)
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:  "dbxutil",
		Usage: "Browse, upload and download Dropbox files from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "session log file",
			},
			&cli.StringFlag{
				Name:  "download-dir",
				Usage: "default directory for downloads",
			},
			&cli.StringFlag{
				Name:  "settings--backend",
				Usage: "where credentials are stored (file|keyring)",
				Value: string(config.DefaultSettingsBackend),
			},
			&cli.StringFlag{
				Name:  "settings--path",
				Usage: "settings file for the file backend",
			},
			&cli.StringFlag{
				Name:  "settings--keyring-user",
				Usage: "keyring account for the keyring backend",
			},
			&cli.StringFlag{
				Name:  "dropbox--auth-url",
				Usage: "OAuth2 authorization endpoint",
			},
			&cli.StringFlag{
				Name:  "dropbox--token-url",
				Usage: "OAuth2 token endpoint",
			},
			&cli.Int64Flag{
				Name:  "dropbox--chunk-size",
				Usage: "upload session chunk size in bytes",
				Value: dropbox.DefaultChunkSize,
			},
			&cli.Int64Flag{
				Name:  "dropbox--upload-threshold",
				Usage: "files larger than this are uploaded in chunks",
				Value: dropbox.DefaultUploadThreshold,
			},
			&cli.DurationFlag{
				Name:  "dropbox--timeout",
				Usage: "timeout for connecting and for response headers (bodies may stream longer)",
				Value: config.DefaultTimeout,
			},
		},
		Action: rootAction,
	}
}

func rootAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.LogFile); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logger.Close()

	repo, err := cfg.NewSettingsRepository()
	if err != nil {
		return fmt.Errorf("failed to open settings: %w", err)
	}

	logger.Log("Starting dbxutil, settings at %s", repo.Path())

	providers := ui.NewProviderManager(
		cfg.Dropbox.Endpoint(),
		common.NewHTTPClient(cfg.Dropbox.Timeout),
		cfg.ProviderOptions()...,
	)

	model := ui.NewModel(ui.Options{
		Repository:  repo,
		Providers:   providers,
		DownloadDir: cfg.DownloadDir,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("ui failed: %w", err)
	}

	logger.Log("dbxutil stopped")
	return nil
}
