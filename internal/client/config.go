package client

import (
	"errors"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
)

const DefaultConfigFile = "todo-tui.toml"

// Config is the terminal client's settings file.
type Config struct {
	ServerURL string        `toml:"server_url"`
	Username  string        `toml:"username"`
	Timeout   time.Duration `toml:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080",
		Timeout:   10 * time.Second,
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return cfg, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return cfg, nil
}
