package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfmyers9/riffnet/internal/identity"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Spotify playlist URL, URI or id the run is seeded from
	Playlist string

	// Directory holding the provider response caches
	// Default: "cache"
	CacheDir string

	// How long cached provider responses stay valid
	// Default: 168h
	CacheTTL time.Duration

	Output       OutputConfig
	Spotify      SpotifyConfig
	LastFM       LastFMConfig
	Ticketmaster TicketmasterConfig
	Fetch        FetchConfig
	Graph        GraphConfig

	// Names that are never treated as artists
	Denylist []string
}

// OutputConfig holds output file locations
type OutputConfig struct {
	Features      string // Feature table CSV
	Relationships string // Relationship graph JSON
	Database      string // Run history database ("" disables it)
	KeepRuns      int    // Runs kept in the database after each collect (0 keeps all)
}

// SpotifyConfig holds Spotify client credentials
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

// LastFMConfig holds Last.fm specific configuration
type LastFMConfig struct {
	APIKey   string
	Username string
}

// TicketmasterConfig holds Ticketmaster specific configuration
type TicketmasterConfig struct {
	APIKey string
}

// FetchConfig sizes the fetch stages
type FetchConfig struct {
	CatalogWorkers   int
	CatalogDelay     time.Duration
	ListeningWorkers int
	EventsWorkers    int
}

// GraphConfig controls relationship output
type GraphConfig struct {
	// Drop edges whose endpoints are not both rows of the feature table
	RestrictToTable bool
}

// legacyEnv maps config keys to un-prefixed variables that existing .env
// files use
var legacyEnv = map[string]string{
	"spotify.client_id":     "SPOTIFY_CLIENT_ID",
	"spotify.client_secret": "SPOTIFY_CLIENT_SECRET",
	"lastfm.api_key":        "LASTFM_API_KEY",
	"ticketmaster.api_key":  "TM_API_KEY",
}

// Load reads configuration from file and environment. A .env file in the
// working directory is loaded into the environment first.
func Load() (*Config, error) {
	return LoadFrom(getConfigDir(), ".")
}

// LoadFrom reads config.yaml and .env from the given directories, in
// order of precedence
func LoadFrom(dirs ...string) (*Config, error) {
	for _, dir := range dirs {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	// Set defaults
	v.SetDefault("cache_dir", "cache")
	v.SetDefault("cache_ttl", "168h")
	v.SetDefault("output.features", "artist_features.csv")
	v.SetDefault("output.relationships", "artist_relationships.json")
	v.SetDefault("output.database", filepath.Join(getDataDir(), "runs.db"))
	v.SetDefault("output.keep_runs", 20)
	v.SetDefault("fetch.catalog_workers", 3)
	v.SetDefault("fetch.catalog_delay", "200ms")
	v.SetDefault("fetch.listening_workers", 5)
	v.SetDefault("fetch.events_workers", 5)
	v.SetDefault("graph.restrict_to_table", false)
	v.SetDefault("denylist", identity.DefaultDenylist)

	// Read config file (optional - don't fail if missing)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Read from environment variables
	v.SetEnvPrefix("RIFFNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := "RIFFNET_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	// Map config to struct
	cfg := &Config{
		Playlist: v.GetString("playlist"),
		CacheDir: v.GetString("cache_dir"),
		CacheTTL: v.GetDuration("cache_ttl"),
		Output: OutputConfig{
			Features:      v.GetString("output.features"),
			Relationships: v.GetString("output.relationships"),
			Database:      v.GetString("output.database"),
			KeepRuns:      v.GetInt("output.keep_runs"),
		},
		Spotify: SpotifyConfig{
			ClientID:     v.GetString("spotify.client_id"),
			ClientSecret: v.GetString("spotify.client_secret"),
		},
		LastFM: LastFMConfig{
			APIKey:   v.GetString("lastfm.api_key"),
			Username: v.GetString("lastfm.username"),
		},
		Ticketmaster: TicketmasterConfig{
			APIKey: v.GetString("ticketmaster.api_key"),
		},
		Fetch: FetchConfig{
			CatalogWorkers:   v.GetInt("fetch.catalog_workers"),
			CatalogDelay:     v.GetDuration("fetch.catalog_delay"),
			ListeningWorkers: v.GetInt("fetch.listening_workers"),
			EventsWorkers:    v.GetInt("fetch.events_workers"),
		},
		Graph: GraphConfig{
			RestrictToTable: v.GetBool("graph.restrict_to_table"),
		},
		Denylist: v.GetStringSlice("denylist"),
	}

	return cfg, nil
}

// Validate reports missing settings required to run a collection
func (c *Config) Validate() error {
	var missing []string
	if c.Playlist == "" {
		missing = append(missing, "playlist")
	}
	if c.Spotify.ClientID == "" {
		missing = append(missing, "spotify.client_id (SPOTIFY_CLIENT_ID)")
	}
	if c.Spotify.ClientSecret == "" {
		missing = append(missing, "spotify.client_secret (SPOTIFY_CLIENT_SECRET)")
	}
	if c.LastFM.APIKey == "" {
		missing = append(missing, "lastfm.api_key (LASTFM_API_KEY)")
	}
	if c.Ticketmaster.APIKey == "" {
		missing = append(missing, "ticketmaster.api_key (TM_API_KEY)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	if c.Fetch.CatalogWorkers < 1 || c.Fetch.ListeningWorkers < 1 || c.Fetch.EventsWorkers < 1 {
		return fmt.Errorf("fetch worker counts must be at least 1")
	}
	return nil
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "riffnet")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// getDataDir returns the directory for the run history database
func getDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "riffnet")
}
