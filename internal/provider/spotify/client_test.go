package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jfmyers9/riffnet/internal/provider"
	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T, routes map[string]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var tokenCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			tokenCalls.Add(1)
			user, pass, ok := r.BasicAuth()
			if !ok || user != "id" || pass != "secret" {
				t.Errorf("unexpected basic auth %q/%q", user, pass)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if gt := r.FormValue("grant_type"); gt != "client_credentials" {
				t.Errorf("expected grant_type client_credentials, got %s", gt)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token": "tok", "token_type": "Bearer", "expires_in": 3600}`))
			return
		}

		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", auth)
		}

		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error": {"status": 404, "message": "Not found"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &tokenCalls
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      server.URL,
		TokenURL:     server.URL + "/token",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

const artistJSON = `{
	"id": "abc",
	"name": "Sleep Token",
	"uri": "spotify:artist:abc",
	"genres": ["alt metal"],
	"popularity": 78,
	"external_urls": {"spotify": "https://open.spotify.com/artist/abc"},
	"followers": {"total": 2500000},
	"images": [
		{"url": "https://i/640", "width": 640, "height": 640},
		{"url": "https://i/320", "width": 320, "height": 320},
		{"url": "https://i/160", "width": 160, "height": 160}
	]
}`

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{ClientSecret: "s"}, zerolog.Nop()); err == nil {
		t.Error("expected error for missing ClientID")
	}
	if _, err := New(Config{ClientID: "i"}, zerolog.Nop()); err == nil {
		t.Error("expected error for missing ClientSecret")
	}
}

func TestClient_Artist(t *testing.T) {
	server, tokenCalls := newTestServer(t, map[string]string{
		"/artists/abc": artistJSON,
	})
	c := newTestClient(t, server)
	ctx := context.Background()

	p, err := c.Artist(ctx, "abc")
	if err != nil {
		t.Fatalf("Artist: %v", err)
	}

	if p.Key != "sleep token" || p.Name != "Sleep Token" {
		t.Errorf("unexpected name/key: %q/%q", p.Name, p.Key)
	}
	if p.Popularity != 78 || p.Followers != 2500000 {
		t.Errorf("unexpected popularity/followers: %d/%d", p.Popularity, p.Followers)
	}
	if p.URL != "https://open.spotify.com/artist/abc" {
		t.Errorf("unexpected url %q", p.URL)
	}
	if p.ImageURL != "https://i/320" {
		t.Errorf("unexpected image %q", p.ImageURL)
	}
	if !p.Found {
		t.Error("expected Found")
	}

	// Token is reused across calls
	if _, err := c.Artist(ctx, "abc"); err != nil {
		t.Fatalf("Artist: %v", err)
	}
	if n := tokenCalls.Load(); n != 1 {
		t.Errorf("token requested %d times, expected 1", n)
	}
}

func TestClient_ArtistNotFound(t *testing.T) {
	server, _ := newTestServer(t, nil)
	c := newTestClient(t, server)

	_, err := c.Artist(context.Background(), "missing")
	if !provider.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestClient_SearchArtist(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  bool
		wantName string
	}{
		{
			name:     "first match",
			body:     `{"artists": {"items": [` + artistJSON + `, {"name": "Other"}]}}`,
			wantName: "Sleep Token",
		},
		{
			name:    "no match",
			body:    `{"artists": {"items": []}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newTestServer(t, map[string]string{"/search": tt.body})
			c := newTestClient(t, server)

			p, err := c.SearchArtist(context.Background(), "sleep token")
			if tt.wantErr {
				if !provider.IsNotFound(err) {
					t.Errorf("expected not-found error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SearchArtist: %v", err)
			}
			if p.Name != tt.wantName {
				t.Errorf("Name = %q, expected %q", p.Name, tt.wantName)
			}
		})
	}
}

func TestClient_Albums(t *testing.T) {
	server, _ := newTestServer(t, map[string]string{
		"/artists/abc/albums": `{
			"total": 3,
			"items": [
				{"name": "Even In Arcadia", "release_date": "2025-05-09", "total_tracks": 10},
				{"name": "Take Me Back To Eden", "release_date": "2023-05-19", "total_tracks": 12},
				{"name": "Sundowning", "release_date": "2019-11-22", "total_tracks": 12}
			]
		}`,
	})
	c := newTestClient(t, server)

	d, err := c.Albums(context.Background(), "abc", "")
	if err != nil {
		t.Fatalf("Albums: %v", err)
	}
	if d.Albums != 3 || d.Tracks != 34 {
		t.Errorf("Albums/Tracks = %d/%d, expected 3/34", d.Albums, d.Tracks)
	}
	if d.FirstAlbumDate != "2019-11-22" || d.LastAlbumDate != "2025-05-09" {
		t.Errorf("dates = %q..%q", d.FirstAlbumDate, d.LastAlbumDate)
	}
}

func TestClient_PlaylistTracks(t *testing.T) {
	server, _ := newTestServer(t, map[string]string{
		"/playlists/pl/tracks": `{
			"total": 3,
			"items": [
				{"track": {"artists": [{"id": "a1", "name": "Spiritbox", "uri": "spotify:artist:a1"}, {"id": "a2", "name": "Feature"}]}},
				{"track": null},
				{"track": {"artists": []}}
			]
		}`,
	})
	c := newTestClient(t, server)

	tracks, total, err := c.PlaylistTracks(context.Background(), "pl", 0)
	if err != nil {
		t.Fatalf("PlaylistTracks: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, expected 3", total)
	}
	if len(tracks) != 1 || tracks[0].ArtistName != "Spiritbox" || tracks[0].ArtistID != "a1" {
		t.Errorf("unexpected tracks: %+v", tracks)
	}
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token": "tok", "expires_in": 3600}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	_, err := c.Artist(context.Background(), "abc")

	var unavailable *provider.ErrUnavailable
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.As(err, &unavailable) || unavailable.Status != http.StatusBadGateway {
		t.Errorf("expected unavailable error with status 502, got %v", err)
	}
}

func TestParsePlaylistID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{input: "37i9dQZF1DX9qNs32fujYe", expected: "37i9dQZF1DX9qNs32fujYe"},
		{input: "spotify:playlist:37i9dQZF1DX9qNs32fujYe", expected: "37i9dQZF1DX9qNs32fujYe"},
		{input: "https://open.spotify.com/playlist/37i9dQZF1DX9qNs32fujYe?si=abc", expected: "37i9dQZF1DX9qNs32fujYe"},
		{input: "https://open.spotify.com/album/xyz", wantErr: true},
		{input: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePlaylistID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ParsePlaylistID(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}
