package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/chapi192/SpotifyMatcher/internal/shared"
)

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:     "spotifymatcher",
		Usage:    "Mirror a Spotify library locally and recommend playlists for liked songs",
		Version:  "0.3.0",
		Flags:    globalFlags(),
		Before:   r.Before,
		Commands: r.register(),
	}
}

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{
		Logger:      logger,
		Interactive: term.IsTerminal(int(os.Stdout.Fd())),
	})

	if err := runner.app().Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
