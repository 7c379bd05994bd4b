package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/cannedoxygen/mainframe/internal/agent"
)

type TLSConfig struct {
	Mode     string `json:"mode"`     // "self-signed", "manual", or "" (disabled)
	CertFile string `json:"certFile"` // required for manual
	KeyFile  string `json:"keyFile"`  // required for manual
	CacheDir string `json:"cacheDir"` // for self-signed; defaults to ~/.mainframe/certs
}

type ServerConfig struct {
	Host string    `json:"host"`
	Port int       `json:"port"`
	TLS  TLSConfig `json:"tls"`
}

type WatcherConfig struct {
	FilePath string `json:"filePath"`
}

type ClientConfig struct {
	URL                 string  `json:"url"`
	ReconnectIntervalMs int     `json:"reconnectIntervalMs"`
	ReconnectMultiplier float64 `json:"reconnectMultiplier"`
	ReconnectAttempts   int     `json:"reconnectAttempts"`
}

type NotificationsConfig struct {
	Enabled bool   `json:"enabled"`
	Webhook string `json:"webhook"`
	NtfyURL string `json:"ntfy"`
}

type Config struct {
	Server        ServerConfig        `json:"server"`
	Watcher       WatcherConfig       `json:"watcher"`
	Client        ClientConfig        `json:"client"`
	Agents        []agent.Agent       `json:"agents"`
	BufferSize    int                 `json:"bufferSize"`
	Simulate      bool                `json:"simulate"`
	Notifications NotificationsConfig `json:"notifications"`
	LogDir        string              `json:"logDir"`
	LogLevel      string              `json:"logLevel"`
}

func Defaults() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3001,
			TLS: TLSConfig{
				CacheDir: filepath.Join(home, ".mainframe", "certs"),
			},
		},
		Watcher: WatcherConfig{
			FilePath: "/var/log/eliza/output.log",
		},
		Client: ClientConfig{
			URL:                 "ws://localhost:3001/ws",
			ReconnectIntervalMs: 2000,
			ReconnectMultiplier: 1.5,
			ReconnectAttempts:   10,
		},
		Agents:     agent.DefaultRoster(),
		BufferSize: 500,
		LogDir:     filepath.Join(home, ".mainframe", "logs"),
		LogLevel:   "info",
	}
}

func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mainframe", "config.json")
}

func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if len(cfg.Agents) == 0 {
		cfg.Agents = agent.DefaultRoster()
	}
	return cfg, nil
}
