package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/media-downloader"
	_ "github.com/alanbriolat/media-downloader/backends"
	"github.com/alanbriolat/media-downloader/internal/app"
)

const appName = "media-downloader"

func main() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.Level.SetLevel(zap.InfoLevel)
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = media_downloader.WithLogger(ctx, logger)

	cliApp := &cli.App{
		Name:  appName,
		Usage: "download videos, audio and images from social media and video sites",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-dir",
				Value: app.DefaultConfigDir(),
				Usage: "keep settings, history and sessions in `DIR`",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log debug messages",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				config.Level.SetLevel(zap.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			downloadCommand,
			infoCommand,
			queueCommand,
			historyCommand,
			settingsCommand,
			loginCommand,
			logoutCommand,
			watchCommand,
			updateCommand,
		},
		HideHelpCommand: true,
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		logger.Fatal(err.Error())
	}
}
