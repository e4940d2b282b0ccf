package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type config struct {
	SharedDir        string        `yaml:"sharedDir"`
	TCPPort          int           `yaml:"tcpPort"`
	MulticastGroup   string        `yaml:"multicastGroup"`
	MulticastPort    int           `yaml:"multicastPort"`
	AnnounceInterval time.Duration `yaml:"announceInterval"`
	SyncInterval     time.Duration `yaml:"syncInterval"`
	ChunkSize        int           `yaml:"chunkSize"`
	IOTimeout        time.Duration `yaml:"ioTimeout"`
	HTTPHost         string        `yaml:"httpHost"`
	HTTPPort         string        `yaml:"httpPort"`
}

func defaults() config {
	return config{
		SharedDir:        "shared",
		TCPPort:          5005,
		MulticastGroup:   "239.255.255.250",
		MulticastPort:    5007,
		AnnounceInterval: 5 * time.Second,
		SyncInterval:     30 * time.Second,
		ChunkSize:        64 * 1024,
		IOTimeout:        5 * time.Second,
		HTTPHost:         "0.0.0.0",
		HTTPPort:         "8080",
	}
}

// loadConfig layers an optional YAML file (PEERSYNC_CONFIG) and env
// variables over the built-in defaults. Env always wins.
func loadConfig() config {
	cfg := defaults()

	if path := os.Getenv("PEERSYNC_CONFIG"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &cfg)
		}
	}

	cfg.SharedDir = getEnv("SHARED_DIR", cfg.SharedDir)
	cfg.TCPPort = getEnvInt("PEER_PORT", cfg.TCPPort)
	cfg.MulticastGroup = getEnv("MULTICAST_GROUP", cfg.MulticastGroup)
	cfg.MulticastPort = getEnvInt("MULTICAST_PORT", cfg.MulticastPort)
	cfg.AnnounceInterval = getEnvDuration("ANNOUNCE_INTERVAL", cfg.AnnounceInterval)
	cfg.SyncInterval = getEnvDuration("SYNC_INTERVAL", cfg.SyncInterval)
	cfg.ChunkSize = getEnvInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.IOTimeout = getEnvDuration("IO_TIMEOUT", cfg.IOTimeout)
	cfg.HTTPHost = getEnv("HTTP_HOST", cfg.HTTPHost)
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	return cfg
}

func (c config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.TCPPort)
}

func (c config) HTTPAddr() string {
	return net.JoinHostPort(c.HTTPHost, c.HTTPPort)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
