package peers

import (
	"sync"
	"time"
)

type Peer struct {
	ID       string    `json:"id"`
	Addr     string    `json:"addr"`
	LastSeen time.Time `json:"lastSeen"`
	Alive    bool      `json:"alive"`

	downSince time.Time
}

type Store struct {
	mu      sync.RWMutex
	selfID  string
	expiry  time.Duration
	removal time.Duration
	peers   map[string]*Peer
}
