package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shuliakovsky/peersync/pkg/journal"
)

// Events streams journal entries to websocket clients as they happen.
type Events struct {
	Jrnl   *journal.Journal
	Logger *zap.Logger
}

func NewEvents(jrnl *journal.Journal, logger *zap.Logger) *Events {
	return &Events{Jrnl: jrnl, Logger: logger}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (e *Events) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.Logger.Warn("ws_upgrade_failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ch := e.Jrnl.Subscribe()
	defer e.Jrnl.Unsubscribe(ch)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	e.Logger.Debug("ws_client_connected", zap.String("remote", r.RemoteAddr))
	for {
		select {
		case <-closed:
			return
		case ev := <-ch:
			if err := conn.WriteJSON(ev); err != nil {
				e.Logger.Debug("ws_client_write_error", zap.Error(err))
				return
			}
		}
	}
}
