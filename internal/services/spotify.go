// Spotify Web API implementation of [Library] and [LibraryWriter]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chapi192/SpotifyMatcher/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Artists    []SpotifySimpleArtist `json:"artists"`
	Album      SpotifyAlbum          `json:"album"`
	DurationMS int                   `json:"duration_ms"`
	Explicit   bool                  `json:"explicit"`
	Popularity int                   `json:"popularity"`
	URI        string                `json:"uri"`
}

// SpotifySimpleArtist is the artist object embedded in tracks. Local files carry a null id.
type SpotifySimpleArtist struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

// SpotifyArtist represents a full Spotify artist.
type SpotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

// Owner is the playlist owner.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylistItem represents a track within a playlist context. Track is null for removed content.
type SpotifyPlaylistItem struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaging is the envelope shared by every paginated endpoint.
type SpotifyPaging[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

type simplePlaylistTracks struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Owner       Owner                `json:"owner"`
	Public      bool                 `json:"public"`
	Tracks      simplePlaylistTracks `json:"tracks"`
}

func (p SpotifySimplePlaylist) remote() RemotePlaylist {
	return RemotePlaylist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Owner:       p.Owner.DisplayName,
		TrackCount:  p.Tracks.Total,
	}
}

func (t SpotifyTrack) remote() RemoteTrack {
	artists := make([]ArtistRef, 0, len(t.Artists))
	for _, a := range t.Artists {
		ref := ArtistRef{Name: a.Name}
		if a.ID != nil {
			ref.ID = *a.ID
		}
		artists = append(artists, ref)
	}
	return RemoteTrack{
		URI:         t.URI,
		Name:        t.Name,
		Album:       t.Album.Name,
		Artists:     artists,
		ReleaseDate: t.Album.ReleaseDate,
		DurationMS:  t.DurationMS,
		Popularity:  t.Popularity,
		Explicit:    t.Explicit,
	}
}

// APIError is a non-2xx response from the Spotify API.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("spotify API error: status %d on %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("spotify API error: status %d on %s", e.StatusCode, e.Endpoint)
}

// Unwrap maps the status onto the shared sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return shared.ErrTokenExpired
	case http.StatusNotFound:
		return shared.ErrPlaylistNotFound
	default:
		return shared.ErrAPIRequest
	}
}

// SpotifyOption customizes a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points the service at another API root (used by tests).
func WithBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient sets the transport the OAuth2 client wraps.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.baseClient = c }
}

// WithRateLimit caps outgoing requests per second. Zero or less disables the limiter.
func WithRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetryAfter sets the delay used when a 429 response has no Retry-After header.
func WithRetryAfter(d time.Duration) SpotifyOption {
	return func(s *SpotifyService) { s.retry.DefaultDelay = d }
}

// WithLogger reports rate-limit waits to l.
func WithLogger(l *log.Logger) SpotifyOption {
	return func(s *SpotifyService) { s.logger = l }
}

// SpotifyService implements [Library] and [LibraryWriter] against the Spotify Web API.
// Uses [oauth2] for authentication with automatic token refresh.
type SpotifyService struct {
	config         *oauth2.Config
	baseURL        string
	baseClient     *http.Client
	httpClient     *http.Client
	limiter        *rate.Limiter
	retry          RetryPolicy
	logger         *log.Logger
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:8888/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-private",
			"playlist-modify-public",
			"user-library-read",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	s := &SpotifyService{
		config:     config,
		baseURL:    spotifyBaseURL,
		baseClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		retry:      RetryPolicy{DefaultDelay: 2 * time.Second},
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.retry.OnRateLimit = func(attempt int, wait time.Duration) {
		s.logger.Warn("rate limit hit, sleeping", "attempt", attempt, "wait", wait)
	}

	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// SetTokenRefreshCallback registers fn to receive every new token issued by the token source.
// Must be called before [SpotifyService.Authenticate].
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// Authenticate builds the HTTP client from a stored token. Expired access tokens are refreshed
// with the refresh token on first use.
func (s *SpotifyService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: no access or refresh token configured", shared.ErrMissingCredentials)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.onTokenRefresh,
		last:     token.AccessToken,
	}
	s.httpClient = oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, source))
	return nil
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports tokens it has not seen before.
type refreshableTokenSource struct {
	mu       sync.Mutex
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// call performs a request with rate limiting and rate-limit retries.
func (s *SpotifyService) call(ctx context.Context, method, endpoint string, body, result any) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	return withRetry(ctx, s.retry, func() callResult {
		if err := s.limiter.Wait(ctx); err != nil {
			return fatal(fmt.Errorf("rate limiter: %w", err))
		}
		return s.doRequest(ctx, method, endpoint, body, result)
	})
}

// doRequest performs one authenticated HTTP request to the Spotify API.
//
// endpoint is either a path relative to the API root or an absolute "next" URL from a paging object.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) callResult {
	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fatal(fmt.Errorf("failed to encode request body: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fatal(fmt.Errorf("failed to create request: %w", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fatal(fmt.Errorf("%w: request failed: %w", shared.ErrAPIRequest, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		if after, found := parseRetryAfter(resp); found {
			return rateLimited(after)
		}
		return rateLimitedDefault()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fatal(newAPIError(resp, endpoint))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fatal(fmt.Errorf("failed to decode response: %w", err))
		}
	}

	return ok()
}

func newAPIError(resp *http.Response, endpoint string) *APIError {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &payload)

	if u, err := url.Parse(endpoint); err == nil {
		endpoint = u.Path
	}
	return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: payload.Error.Message}
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.call(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPlaylists returns a lazy sequence over the current user's playlists.
func (s *SpotifyService) UserPlaylists() *Pages[SpotifySimplePlaylist] {
	return NewPages("/me/playlists?limit=50", pagedFetch[SpotifySimplePlaylist](s))
}

// PlaylistItems returns a lazy sequence over a playlist's items.
func (s *SpotifyService) PlaylistItems(playlistID string) *Pages[SpotifyPlaylistItem] {
	first := fmt.Sprintf("/playlists/%s/tracks?limit=100", url.PathEscape(playlistID))
	return NewPages(first, pagedFetch[SpotifyPlaylistItem](s))
}

func pagedFetch[T any](s *SpotifyService) PageFetcher[T] {
	return func(ctx context.Context, cursor string) ([]T, string, error) {
		var page SpotifyPaging[T]
		if err := s.call(ctx, http.MethodGet, cursor, nil, &page); err != nil {
			return nil, "", err
		}
		next := ""
		if page.Next != nil {
			next = *page.Next
		}
		return page.Items, next, nil
	}
}

// Playlists implements [Library].
func (s *SpotifyService) Playlists(ctx context.Context) ([]RemotePlaylist, error) {
	items, err := Collect(ctx, s.UserPlaylists())
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}

	playlists := make([]RemotePlaylist, 0, len(items))
	for _, p := range items {
		playlists = append(playlists, p.remote())
	}
	return playlists, nil
}

// PlaylistTracks implements [Library].
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]RemoteTrack, error) {
	items, err := Collect(ctx, s.PlaylistItems(playlistID))
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks of playlist %s: %w", playlistID, err)
	}

	tracks := make([]RemoteTrack, 0, len(items))
	for _, item := range items {
		if item.Track == nil || item.Track.URI == "" {
			continue
		}
		tracks = append(tracks, item.Track.remote())
	}
	return tracks, nil
}

// Artists implements [Library].
func (s *SpotifyService) Artists(ctx context.Context, ids []string) ([]RemoteArtist, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxArtistsPerCall {
		return nil, fmt.Errorf("%w: maximum %d artist IDs allowed, got %d", shared.ErrInvalidArgument, MaxArtistsPerCall, len(ids))
	}

	endpoint := "/artists?ids=" + url.QueryEscape(strings.Join(ids, ","))

	var response struct {
		Artists []*SpotifyArtist `json:"artists"`
	}
	if err := s.call(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch artists: %w", err)
	}

	artists := make([]RemoteArtist, 0, len(response.Artists))
	for _, a := range response.Artists {
		if a == nil {
			continue
		}
		artists = append(artists, RemoteArtist{ID: a.ID, Genres: a.Genres})
	}
	return artists, nil
}

// CurrentUserID implements [LibraryWriter].
func (s *SpotifyService) CurrentUserID(ctx context.Context) (string, error) {
	user, err := s.UserProfile(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch user profile: %w", err)
	}
	return user.ID, nil
}

// CreatePlaylist implements [LibraryWriter].
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*RemotePlaylist, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var created SpotifySimplePlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.call(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, fmt.Errorf("failed to create playlist %q: %w", name, err)
	}

	remote := created.remote()
	return &remote, nil
}

// AddTracks implements [LibraryWriter].
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) > MaxTracksPerAdd {
		return fmt.Errorf("%w: maximum %d URIs per add, got %d", shared.ErrInvalidArgument, MaxTracksPerAdd, len(uris))
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	body := map[string]any{"uris": uris}
	if err := s.call(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		return fmt.Errorf("failed to add tracks: %w", err)
	}
	return nil
}

// IsAuthError reports whether err means the stored credentials can no longer be used.
func IsAuthError(err error) bool {
	return errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrRefreshFailed) ||
		errors.Is(err, shared.ErrNotAuthenticated)
}

var (
	_ Library       = (*SpotifyService)(nil)
	_ LibraryWriter = (*SpotifyService)(nil)
)
