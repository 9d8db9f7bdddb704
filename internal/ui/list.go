package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"

	"github.com/chapi192/SpotifyMatcher/internal/models"
)

var _ list.Item = playlistItem{}

// playlistItem wraps a re-fetched [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist *models.Playlist
	tracks   int
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%s tracks", humanize.Comma(int64(i.tracks)))
	if i.playlist.Owner != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Owner)
	}
	return desc
}

// changedItems lists the playlists a sync re-fetched, in result order.
func changedItems(snap *models.Snapshot, ids []string) []list.Item {
	if snap == nil {
		return nil
	}
	items := make([]list.Item, 0, len(ids))
	for _, id := range ids {
		pl, ok := snap.Playlists[id]
		if !ok {
			continue
		}
		items = append(items, playlistItem{playlist: pl, tracks: len(pl.ContainedTracks)})
	}
	return items
}
