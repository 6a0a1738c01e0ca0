package api

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shaiso/Stagehand/internal/logsink"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsReadLimit  = 512
)

// GetLogs возвращает строки лога с номером больше since.
// GET /api/v1/logs?since=N&run_id=...
func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	sink := h.coordinator.Sink()

	if runID := r.URL.Query().Get("run_id"); runID != "" {
		id, err := uuid.Parse(runID)
		if err != nil {
			BadRequest(w, "invalid run_id")
			return
		}
		lines := sink.RunLines(id)
		if lines == nil {
			lines = []logsink.Line{}
		}
		Success(w, LogsResponse{Lines: lines, LastSeq: sink.LastSeq()})
		return
	}

	since, ok := parseSince(w, r)
	if !ok {
		return
	}

	Success(w, LogsResponse{Lines: sink.Lines(since), LastSeq: sink.LastSeq()})
}

// StreamLogs отдаёт лог по websocket: сначала строки после since,
// затем новые по мере появления. Каждое сообщение — JSON logsink.Line.
// GET /api/v1/logs/ws?since=N
func (h *Handler) StreamLogs(w http.ResponseWriter, r *http.Request) {
	since, ok := parseSince(w, r)
	if !ok {
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	history, lines, cancel := h.coordinator.Sink().Subscribe(since)
	defer cancel()

	h.logger.Debug("log stream opened", "remote_addr", r.RemoteAddr, "since", since)

	done := make(chan struct{})
	go readPump(conn, done)
	h.writePump(conn, history, lines, done)

	h.logger.Debug("log stream closed", "remote_addr", r.RemoteAddr)
}

// readPump читает управляющие сообщения (pong, close) до разрыва соединения.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump пишет историю и новые строки, держит соединение ping-ами.
func (h *Handler) writePump(conn *websocket.Conn, history []logsink.Line, lines <-chan logsink.Line, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for _, line := range history {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(line); err != nil {
			return
		}
	}

	for {
		select {
		case line, ok := <-lines:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				// Sink отключил медленного подписчика
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber too slow"))
				return
			}
			if err := conn.WriteJSON(line); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-h.closing:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return

		case <-done:
			return
		}
	}
}

// checkOrigin пропускает запросы без Origin, с того же хоста и с разрешённых CORS origin.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(h.corsOrigins, "*") || slices.Contains(h.corsOrigins, origin) {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

func parseSince(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	s := r.URL.Query().Get("since")
	if s == "" {
		return 0, true
	}
	since, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		BadRequest(w, "since must be a non-negative integer")
		return 0, false
	}
	return since, true
}
