package shared

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// ApplyEnv loads a .env file (when present) and overrides Spotify credentials from the environment.
//
// Only non-empty variables override the file configuration.
func ApplyEnv(config *Config, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	creds := &config.Credentials.Spotify
	for env, dst := range map[string]*string{
		"SPOTIFY_CLIENT_ID":     &creds.ClientID,
		"SPOTIFY_CLIENT_SECRET": &creds.ClientSecret,
		"SPOTIFY_REDIRECT_URI":  &creds.RedirectURI,
		"SPOTIFY_ACCESS_TOKEN":  &creds.AccessToken,
		"SPOTIFY_REFRESH_TOKEN": &creds.RefreshToken,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	return nil
}
