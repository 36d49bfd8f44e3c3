package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel    int    `yaml:"log_level"`
	LibraryPath string `yaml:"library_path"`

	Subsonic     SubsonicConfig     `yaml:"subsonic"`
	ListenBrainz ListenBrainzConfig `yaml:"listenbrainz"`
	Video        VideoConfig        `yaml:"video"`
	Cleanup      CleanupConfig      `yaml:"cleanup"`
	State        StateConfig        `yaml:"state"`
}

type SubsonicConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type ListenBrainzConfig struct {
	BaseURL string `yaml:"base_url"`
	User    string `yaml:"user"`
}

type VideoConfig struct {
	ResultLimit int `yaml:"result_limit"`
}

type CleanupConfig struct {
	// AddOnTheFly adds confidently matched remote tracks straight to the
	// playlist instead of downloading them.
	AddOnTheFly bool `yaml:"add_on_the_fly"`
	// OnTheFlyCleanup re-resolves on-the-fly tracks from the previous
	// generation so local copies that appeared since stay protected.
	OnTheFlyCleanup bool `yaml:"on_the_fly_cleanup"`
}

type StateConfig struct {
	// Type of state backend: "local" or "gcs"
	Type string `yaml:"type"`

	// Local backend options
	Dir string `yaml:"dir"`

	// GCS backend options
	Bucket          string `yaml:"bucket"`
	ObjectPrefix    string `yaml:"object_prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config *Config

	// Unmarshal the YAML data into the struct
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}

	// Set defaults if not provided
	if config.Video.ResultLimit == 0 {
		config.Video.ResultLimit = 10
	}

	if config.State.Type == "" {
		config.State.Type = "local"
	}

	if config.State.Dir == "" {
		config.State.Dir = "state"
	}

	// Credentials and endpoints can come from the environment (a .env file
	// is loaded by main before this point).
	applyEnvOverrides(config)

	return config, nil
}

func applyEnvOverrides(config *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"SUBSONIC_URL", &config.Subsonic.URL},
		{"SUBSONIC_USER", &config.Subsonic.User},
		{"SUBSONIC_PASS", &config.Subsonic.Password},
		{"LB_BASE_URL", &config.ListenBrainz.BaseURL},
		{"LB_USER", &config.ListenBrainz.User},
		{"LOCAL_DOWNLOAD_PATH", &config.LibraryPath},
	}
	for _, o := range overrides {
		if value := os.Getenv(o.env); value != "" {
			*o.target = value
		}
	}
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	switch {
	case c.Subsonic.URL == "":
		return fmt.Errorf("subsonic url is required")
	case c.Subsonic.User == "":
		return fmt.Errorf("subsonic user is required")
	case c.Subsonic.Password == "":
		return fmt.Errorf("subsonic password is required")
	case c.ListenBrainz.BaseURL == "":
		return fmt.Errorf("listenbrainz base_url is required")
	case c.ListenBrainz.User == "":
		return fmt.Errorf("listenbrainz user is required")
	case c.LibraryPath == "":
		return fmt.Errorf("library_path is required")
	}
	return nil
}
