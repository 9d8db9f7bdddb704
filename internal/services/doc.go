// Package services talks to the remote music service on behalf of the sync engine.
//
// # Library Interfaces
//
// [Library] is the read side used by sync: playlists with their remote track counts, the tracks
// of one playlist, and batched artist lookups. [LibraryWriter] is the write side used to build the
// complete library playlist.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// Tokens issued by a refresh are handed to the callback registered with
// [SpotifyService.SetTokenRefreshCallback] so the caller can persist them.
//
// # Pagination
//
// Paginated endpoints are exposed as [Pages] sequences. [Collect] drains a sequence and
// discards partial results when any page fails.
//
// # Rate Limits
//
// Outgoing requests are paced by a token bucket. A 429 response is retried after the
// Retry-After delay (2s when absent) for as long as the context allows. Any other non-2xx
// response aborts the call with an [APIError].
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : 401 response, reauthorization needed
//   - [shared.ErrRefreshFailed] : refresh token rejected
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrRateLimited] : retry budget exhausted
package services
