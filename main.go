package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reactcheck/internal/bot"
	"reactcheck/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("Bot stopped")
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "reactcheck",
		Usage: "Discord bot that reports members who did not react to a check",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultSettingsFile,
				Usage:   "Settings file, optional",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Overrides the log level of the settings file",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return start(ctx, c.String("config"), c.String("log-level"))
		},
	}
	return app.Run(context.Background(), os.Args)
}

func start(ctx context.Context, settingsFile string, logLevel string) error {

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	settings, err := config.LoadSettings(settingsFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		settings.LogLevel = logLevel
	}
	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)

	token, err := config.Token()
	if err != nil {
		log.Error().Msgf("Please set %s in your environment or in a .env file", config.TokenVariable)
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("prefix", settings.Prefix).
		Dur("poll", settings.PollInterval).
		Str("config", settings.ConfigFile).
		Msg("Starting reactcheck")
	return bot.Run(ctx, token, settings)
}
