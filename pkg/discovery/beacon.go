package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/shuliakovsky/peersync/pkg/metrics"
	"github.com/shuliakovsky/peersync/pkg/peers"
)

// announcement is the multicast discovery datagram: the node's identity
// token and the TCP port it serves peers on. Best-effort, repeated, no ack.
type announcement struct {
	Token string `json:"token"`
	Port  int    `json:"port"`
	V     int    `json:"v"`
}

const tokenLen = 36 // uuid string form

type Beacon struct {
	token    string
	tcpPort  int
	group    string
	port     int
	interval time.Duration
	store    *peers.Store
	logger   *zap.Logger

	conn *net.UDPConn
	dst  *net.UDPAddr
}

func New(token string, tcpPort int, group string, port int, interval time.Duration, store *peers.Store, logger *zap.Logger) *Beacon {
	return &Beacon{
		token:    token,
		tcpPort:  tcpPort,
		group:    group,
		port:     port,
		interval: interval,
		store:    store,
		logger:   logger,
	}
}

// Start joins the multicast group and launches the announce/sweep and
// listen loops. They exit when ctx is cancelled.
func (b *Beacon) Start(ctx context.Context) error {
	group := net.ParseIP(b.group)
	if group == nil {
		return fmt.Errorf("invalid multicast group %q", b.group)
	}
	addr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf(":%d", b.port))
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("multicast listen: %w", err)
	}
	b.conn = conn
	b.dst = &net.UDPAddr{IP: group, Port: b.port}

	pc := ipv4.NewPacketConn(conn)
	joined := 0
	ifaces, _ := net.Interfaces()
	for i := range ifaces {
		iface := &ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if err := pc.JoinGroup(iface, &net.UDPAddr{IP: group}); err == nil {
			joined++
		}
	}
	_ = pc.SetMulticastTTL(4)
	if joined == 0 {
		b.logger.Warn("multicast_join_no_interfaces", zap.String("group", b.group))
	}

	go b.announceLoop(ctx)
	go b.listenLoop(ctx)
	b.logger.Info("discovery_started",
		zap.String("group", b.group),
		zap.Int("port", b.port),
		zap.Duration("interval", b.interval),
	)
	return nil
}

func (b *Beacon) announceLoop(ctx context.Context) {
	t := time.NewTicker(b.interval)
	defer t.Stop()
	b.announce()
	for {
		select {
		case <-ctx.Done():
			b.conn.Close()
			return
		case <-t.C:
			b.announce()
			b.store.Sweep(time.Now())
			metrics.PeersAlive.Set(float64(len(b.store.Alive())))
		}
	}
}

func (b *Beacon) announce() {
	data, _ := json.Marshal(announcement{Token: b.token, Port: b.tcpPort, V: 1})
	if _, err := b.conn.WriteToUDP(data, b.dst); err != nil {
		b.logger.Warn("discovery_announce_failed", zap.Error(err))
	}
}

func (b *Beacon) listenLoop(ctx context.Context) {
	buf := make([]byte, 2048)
	for {
		_ = b.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, src, err := b.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				continue
			}
			b.logger.Warn("discovery_read_error", zap.Error(err))
			return
		}
		b.handleDatagram(buf[:n], src.IP.String())
	}
}

// handleDatagram parses one inbound packet. Malformed packets are logged
// and dropped; self-announcements are ignored.
func (b *Beacon) handleDatagram(data []byte, srcIP string) {
	var msg announcement
	if err := json.Unmarshal(data, &msg); err != nil {
		b.logger.Debug("discovery_bad_packet", zap.String("src", srcIP), zap.Error(err))
		return
	}
	if len(msg.Token) != tokenLen || msg.Port <= 0 || msg.Port > 65535 {
		b.logger.Debug("discovery_malformed_announcement",
			zap.String("src", srcIP), zap.Int("port", msg.Port))
		return
	}
	if msg.Token == b.token {
		return
	}
	addr := net.JoinHostPort(srcIP, strconv.Itoa(msg.Port))
	if !b.store.Exists(msg.Token) {
		b.logger.Info("peer_discovered", zap.String("peer", msg.Token), zap.String("addr", addr))
	}
	b.store.Record(msg.Token, addr, time.Now())
}
