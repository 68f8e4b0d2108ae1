package lavalink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kingsrock/kingsbot/internal/player"
)

type restTrack struct {
	Encoded string `json:"encoded"`
	Info    struct {
		Identifier string `json:"identifier"`
		Title      string `json:"title"`
		Author     string `json:"author"`
		Length     int64  `json:"length"`
		URI        string `json:"uri"`
		SourceName string `json:"sourceName"`
	} `json:"info"`
}

func (t restTrack) toTrack(requesterID string) player.Track {
	return player.Track{
		Title:       t.Info.Title,
		Artist:      t.Info.Author,
		Duration:    time.Duration(t.Info.Length) * time.Millisecond,
		URI:         t.Info.URI,
		RequesterID: requesterID,
		Encoded:     t.Encoded,
	}
}

type restException struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

type loadResult struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

type playlistData struct {
	Info struct {
		Name string `json:"name"`
	} `json:"info"`
	Tracks []restTrack `json:"tracks"`
}

// request performs one REST call against the node.
func (m *Manager) request(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.cfg.restBase()+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", m.cfg.Password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: node returned %d: %s", method, path, resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (m *Manager) playerPath(guildID string) (string, error) {
	m.mu.Lock()
	sessionID := m.sessionID
	m.mu.Unlock()
	if sessionID == "" {
		return "", fmt.Errorf("node session not ready")
	}
	return fmt.Sprintf("/sessions/%s/players/%s", sessionID, guildID), nil
}

// updatePlayer PATCHes the guild's player on the node.
func (m *Manager) updatePlayer(ctx context.Context, guildID string, body map[string]any) error {
	path, err := m.playerPath(guildID)
	if err != nil {
		return err
	}
	return m.request(ctx, http.MethodPatch, path+"?noReplace=false", body, nil)
}

// isURL reports whether the query already points somewhere and should
// skip the search-platform prefix.
func isURL(query string) bool {
	return strings.HasPrefix(query, "http://") || strings.HasPrefix(query, "https://")
}

// Search implements player.Manager.
func (m *Manager) Search(ctx context.Context, query, requesterID string) (*player.SearchResult, error) {
	identifier := query
	if !isURL(query) {
		identifier = m.cfg.SearchPlatform + ":" + query
	}

	var result loadResult
	path := "/loadtracks?identifier=" + url.QueryEscape(identifier)
	if err := m.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}

	switch result.LoadType {
	case "track":
		var t restTrack
		if err := json.Unmarshal(result.Data, &t); err != nil {
			return nil, fmt.Errorf("decode track: %w", err)
		}
		return &player.SearchResult{Tracks: []player.Track{t.toTrack(requesterID)}}, nil

	case "search":
		var tracks []restTrack
		if err := json.Unmarshal(result.Data, &tracks); err != nil {
			return nil, fmt.Errorf("decode search results: %w", err)
		}
		res := &player.SearchResult{}
		for _, t := range tracks {
			res.Tracks = append(res.Tracks, t.toTrack(requesterID))
		}
		return res, nil

	case "playlist":
		var pl playlistData
		if err := json.Unmarshal(result.Data, &pl); err != nil {
			return nil, fmt.Errorf("decode playlist: %w", err)
		}
		res := &player.SearchResult{PlaylistName: pl.Info.Name}
		for _, t := range pl.Tracks {
			res.Tracks = append(res.Tracks, t.toTrack(requesterID))
		}
		return res, nil

	case "error":
		var ex restException
		_ = json.Unmarshal(result.Data, &ex)
		return nil, fmt.Errorf("node failed to load tracks: %s", ex.Message)

	default: // "empty"
		return &player.SearchResult{}, nil
	}
}
