package lastfm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jfmyers9/riffnet/internal/provider"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New(Config{
		APIKey:     "key",
		Username:   "listener",
		BaseURL:    server.URL,
		MaxRetries: 1,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}, zerolog.Nop()); err == nil {
		t.Error("expected error for missing APIKey")
	}
}

func TestClient_ArtistInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if u := r.URL.Query().Get("username"); u != "listener" {
			t.Errorf("expected username listener, got %q", u)
		}
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<lfm status="ok">
	<artist>
		<name>Spiritbox</name>
		<stats><listeners>800000</listeners><playcount>40000000</playcount><userplaycount>57</userplaycount></stats>
		<tags><tag><name>metalcore</name></tag></tags>
		<bio><summary>Canadian metal band.</summary></bio>
	</artist>
</lfm>`))
	})

	l, err := c.ArtistInfo(context.Background(), "  SpiritBox ")
	if err != nil {
		t.Fatalf("ArtistInfo: %v", err)
	}
	if l.Key != "spiritbox" {
		t.Errorf("Key = %q, expected spiritbox", l.Key)
	}
	if l.Listeners != 800000 || l.Playcount != 40000000 || l.PersonalPlaycount != 57 {
		t.Errorf("unexpected stats: %+v", l)
	}
	if len(l.Tags) != 1 || l.Tags[0] != "metalcore" {
		t.Errorf("unexpected tags: %v", l.Tags)
	}
	if !l.Found {
		t.Error("expected Found")
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		wantNotFound    bool
		wantUnavailable bool
	}{
		{
			name:         "unknown artist",
			body:         `<lfm status="failed"><error code="6">The artist you supplied could not be found</error></lfm>`,
			wantNotFound: true,
		},
		{
			name:            "rate limited",
			body:            `<lfm status="failed"><error code="29">Rate limit exceeded</error></lfm>`,
			wantUnavailable: true,
		},
		{
			name: "invalid key",
			body: `<lfm status="failed"><error code="10">Invalid API key</error></lfm>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, respond(tt.body))

			_, err := c.ArtistInfo(context.Background(), "Nobody")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := provider.IsNotFound(err); got != tt.wantNotFound {
				t.Errorf("IsNotFound = %v, expected %v (err: %v)", got, tt.wantNotFound, err)
			}
			var unavailable *provider.ErrUnavailable
			if got := errors.As(err, &unavailable); got != tt.wantUnavailable {
				t.Errorf("unavailable = %v, expected %v (err: %v)", got, tt.wantUnavailable, err)
			}
		})
	}
}

func TestClient_SimilarArtists(t *testing.T) {
	c := newTestClient(t, respond(`<lfm status="ok">
	<similarartists artist="Sleep Token">
		<artist><name>Bad Omens</name><match>1.2</match></artist>
		<artist><name>Spiritbox</name><match>0.5</match></artist>
		<artist><name>SPIRITBOX</name><match>0.4</match></artist>
		<artist><name>Sleep Token</name><match>0.3</match></artist>
		<artist><name>...</name><match>0.2</match></artist>
		<artist><name>Loathe</name><match>-1</match></artist>
	</similarartists>
</lfm>`))

	similar, err := c.SimilarArtists(context.Background(), "Sleep Token")
	if err != nil {
		t.Fatalf("SimilarArtists: %v", err)
	}

	expected := []struct {
		key   string
		match float64
	}{
		{"bad omens", 1},
		{"spiritbox", 0.5},
		{"loathe", 0},
	}
	if len(similar) != len(expected) {
		t.Fatalf("got %d similar artists, expected %d: %+v", len(similar), len(expected), similar)
	}
	for i, e := range expected {
		if similar[i].Key != e.key || similar[i].Match != e.match {
			t.Errorf("similar[%d] = %+v, expected %s/%v", i, similar[i], e.key, e.match)
		}
	}
}
