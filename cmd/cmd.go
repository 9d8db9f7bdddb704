// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// globalFlags are shared by every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}

// setupCommand writes the configuration template, creates the data directory and migrates the history database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml, the data directory and the history database",
		Action: r.Setup,
	}
}

// syncCommand merges the remote library into the local snapshot.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror remote playlists, tracks and artist genres into the local snapshot",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "prune",
				Usage: "Drop stored playlists that no longer exist remotely",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show progress in an interactive terminal view",
			},
		},
		Action: r.Sync,
	}
}

// importCommand merges audio features and genres from an external CSV.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Fill missing audio features and genres from a CSV export",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "path",
			},
		},
		Action: r.Import,
	}
}

// statsCommand derives per-playlist statistics and embeddings.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Compute per-playlist statistics and embeddings",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the stats artifact as JSON",
			},
		},
		Action: r.Stats,
	}
}

// recommendCommand ranks playlists for each liked song.
func recommendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "Rank playlists for each liked song and write a CSV report",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Liked songs CSV (default: recommend.liked_songs_file)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Report path (default: recommend.output_file)",
			},
			&cli.IntFlag{
				Name:  "top",
				Usage: "Playlists per song (default: recommend.top_n)",
			},
		},
		Action: r.Recommend,
	}
}

// libraryCommand adds every snapshot track to a single playlist.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "library",
		Usage: "Add every synced track to the complete-library playlist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "Playlist name (default: complete_library.playlist_name)",
			},
		},
		Action: r.Library,
	}
}

// historyCommand lists recorded sync runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent sync runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 10,
			},
			&cli.StringFlag{
				Name:  "run",
				Usage: "Show the playlists re-fetched by one run",
			},
		},
		Action: r.History,
	}
}
