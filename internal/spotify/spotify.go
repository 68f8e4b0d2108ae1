// Package spotify resolves Spotify track links into plain search queries
// the audio node can look up on its own platform.
package spotify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

var trackURLPattern = regexp.MustCompile(`open\.spotify\.com/track/([A-Za-z0-9]+)`)

// Resolver wraps a client-credentials Spotify client. Token refresh is
// handled by the underlying oauth2 token source.
type Resolver struct {
	client *spotify.Client
}

func New(clientID, clientSecret string) *Resolver {
	auth := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return &Resolver{client: spotify.New(auth.Client(context.Background()))}
}

// TrackID extracts the track ID from a Spotify URL or URI, or "" when
// the input is not a Spotify track reference.
func TrackID(input string) string {
	if m := trackURLPattern.FindStringSubmatch(input); m != nil {
		return m[1]
	}
	if rest, ok := strings.CutPrefix(input, "spotify:track:"); ok {
		return rest
	}
	return ""
}

// SearchQuery resolves a Spotify track reference into an "artists - name"
// query for the node's search platform.
func (r *Resolver) SearchQuery(ctx context.Context, input string) (string, error) {
	id := TrackID(input)
	if id == "" {
		return "", fmt.Errorf("not a spotify track reference: %s", input)
	}

	track, err := r.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return "", fmt.Errorf("failed to look up spotify track: %w", err)
	}

	var artists []string
	for _, a := range track.Artists {
		artists = append(artists, a.Name)
	}
	return fmt.Sprintf("%s - %s", strings.Join(artists, ", "), track.Name), nil
}
