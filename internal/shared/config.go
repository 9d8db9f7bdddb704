package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials     CredentialsConfig     `toml:"credentials"`
	Library         LibraryConfig         `toml:"library"`
	Sync            SyncConfig            `toml:"sync"`
	Recommend       RecommendConfig       `toml:"recommend"`
	CompleteLibrary CompleteLibraryConfig `toml:"complete_library"`
	Database        DatabaseConfig        `toml:"database"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the last known OAuth2 token.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	TokenExpiry  time.Time `toml:"token_expiry"`
}

// Map returns the credentials in the shape expected by services.NewSpotifyService.
func (c SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
	}
}

// Token builds an [oauth2.Token] from the stored values. Returns nil when no token is stored.
func (c SpotifyConfig) Token() *oauth2.Token {
	if c.AccessToken == "" && c.RefreshToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.TokenExpiry,
	}
}

// Update stores a (possibly refreshed) token. The refresh token is kept when the new token omits it.
func (c *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidInput)
	}
	c.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.RefreshToken = token.RefreshToken
	}
	c.TokenExpiry = token.Expiry
	return nil
}

// LibraryConfig locates the snapshot, stats artifact and skip list on disk.
type LibraryConfig struct {
	DataDir       string `toml:"data_dir"`
	TracksFile    string `toml:"tracks_file"`
	PlaylistsFile string `toml:"playlists_file"`
	StatsFile     string `toml:"stats_file"`
	SkipFile      string `toml:"skip_file"`
}

// TracksPath resolves the tracks file against the data directory.
func (c LibraryConfig) TracksPath() string { return c.resolve(c.TracksFile) }

// PlaylistsPath resolves the playlists file against the data directory.
func (c LibraryConfig) PlaylistsPath() string { return c.resolve(c.PlaylistsFile) }

// StatsPath resolves the stats artifact against the data directory.
func (c LibraryConfig) StatsPath() string { return c.resolve(c.StatsFile) }

func (c LibraryConfig) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) || c.DataDir == "" {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// SyncConfig tunes remote calls made during a sync.
type SyncConfig struct {
	RequestsPerSecond        float64 `toml:"requests_per_second"`
	DefaultRetryAfterSeconds int     `toml:"default_retry_after_seconds"`
	ArtistBatchSize          int     `toml:"artist_batch_size"`
}

// DefaultRetryAfter returns the backoff used when a rate-limited response carries no Retry-After header.
func (c SyncConfig) DefaultRetryAfter() time.Duration {
	if c.DefaultRetryAfterSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.DefaultRetryAfterSeconds) * time.Second
}

// RecommendConfig contains recommendation report settings.
type RecommendConfig struct {
	TopN           int    `toml:"top_n"`
	LikedSongsFile string `toml:"liked_songs_file"`
	OutputFile     string `toml:"output_file"`
}

// CompleteLibraryConfig contains settings for the all-tracks playlist.
type CompleteLibraryConfig struct {
	PlaylistName string `toml:"playlist_name"`
	BatchSize    int    `toml:"batch_size"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if errors.Is(err, ErrMissingConfig) {
		return DefaultConfig(), nil
	}
	return config, err
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes the configuration back to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
