package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/chapi192/SpotifyMatcher/internal/repositories"
	"github.com/chapi192/SpotifyMatcher/internal/services"
	"github.com/chapi192/SpotifyMatcher/internal/shared"
	"github.com/chapi192/SpotifyMatcher/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	library     services.Library
	writer      services.LibraryWriter
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	interactive bool
	now         func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Library and Writer replace the Spotify client built from the configuration.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Library     services.Library
	Writer      services.LibraryWriter
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	Interactive bool
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		library:     opts.Library,
		writer:      opts.Writer,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		interactive: opts.Interactive,
		now:         time.Now,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, importCommand, statsCommand, recommendCommand, libraryCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config, applies .env overrides and sets the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	config, err := shared.LoadConfigOrDefault(path)
	if err != nil {
		return ctx, err
	}
	if err := shared.ApplyEnv(config); err != nil {
		return ctx, fmt.Errorf("failed to load .env: %w", err)
	}

	r.config = config
	r.configPath = path
	return ctx, nil
}

// saveTokens stores a refreshed token in the configuration and, when a path is known, on disk.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrInvalidConfig)
	}
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.logger.Debug("saved refreshed token", "path", r.configPath)
	return nil
}

// unauthenticatedSpotify builds a Spotify client from the configured credentials without a token.
func (r *Runner) unauthenticatedSpotify() (*services.SpotifyService, error) {
	return services.NewSpotifyService(r.config.Credentials.Spotify.Map(),
		services.WithHTTPClient(r.httpClient),
		services.WithRateLimit(r.config.Sync.RequestsPerSecond),
		services.WithRetryAfter(r.config.Sync.DefaultRetryAfter()),
		services.WithLogger(shared.WithLogger(r.logger, "service", "spotify")),
	)
}

// spotify builds an authenticated Spotify client. Refreshed tokens are written back to the config file.
func (r *Runner) spotify(ctx context.Context) (*services.SpotifyService, error) {
	svc, err := r.unauthenticatedSpotify()
	if err != nil {
		return nil, err
	}

	svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := r.saveTokens(token); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		}
	})
	if err := svc.Authenticate(ctx, r.config.Credentials.Spotify.Token()); err != nil {
		return nil, err
	}
	return svc, nil
}

// remoteLibrary returns the injected library or an authenticated Spotify client.
func (r *Runner) remoteLibrary(ctx context.Context) (services.Library, error) {
	if r.library != nil {
		return r.library, nil
	}
	return r.spotify(ctx)
}

// playlistEditor returns the injected library and writer or an authenticated Spotify client.
func (r *Runner) playlistEditor(ctx context.Context) (tasks.PlaylistEditor, error) {
	if r.library != nil && r.writer != nil {
		return struct {
			services.Library
			services.LibraryWriter
		}{r.library, r.writer}, nil
	}
	return r.spotify(ctx)
}

func (r *Runner) snapshotStore() *repositories.SnapshotStore {
	lib := r.config.Library
	return repositories.NewSnapshotStore(lib.TracksPath(), lib.PlaylistsPath())
}

func (r *Runner) statsStore() *repositories.StatsStore {
	return repositories.NewStatsStore(r.config.Library.StatsPath())
}

// drainProgress consumes updates until the channel closes. On a terminal it renders a progress bar,
// otherwise each update is logged at debug level. The returned channel closes when draining ends.
func (r *Runner) drainProgress(progress <-chan tasks.ProgressUpdate, description string) <-chan struct{} {
	done := make(chan struct{})

	var bar *progressbar.ProgressBar
	if r.interactive {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(r.output),
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
			if bar == nil {
				continue
			}
			if update.Total > 0 && bar.GetMax() != update.Total {
				bar.ChangeMax(update.Total)
			}
			bar.Describe(update.Message)
			_ = bar.Set(update.Step)
		}
		if bar != nil {
			_ = bar.Finish()
		}
	}()

	return done
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
