package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blackmichael/reddit-analytics/internal/dashboard"
	"github.com/blackmichael/reddit-analytics/internal/domain"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Outbound message types of the analysis stream.
const (
	msgStarted     = "started"
	msgRateLimited = "rate_limited"
	msgReport      = "report"
	msgError       = "error"
)

type wsOutbound struct {
	Type        string                `json:"type"`
	Config      *dashboard.ViewConfig `json:"config,omitempty"`
	Operation   string                `json:"operation,omitempty"`
	Attempt     int                   `json:"attempt,omitempty"`
	WaitSeconds float64               `json:"wait_seconds,omitempty"`
	Report      *dashboard.Report     `json:"report,omitempty"`
	Code        string                `json:"code,omitempty"`
	Message     string                `json:"message,omitempty"`
}

// handleAnalyzeWS streams analyses over a websocket. Every inbound message is
// a dashboard ViewConfig; it supersedes any analysis still in flight. The
// server answers with "started", any number of "rate_limited" notices, and
// finally "report" or "error".
func (s *Server) handleAnalyzeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		s.logger.Error("websocket set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan wsOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	var (
		wg            sync.WaitGroup
		cancelCurrent context.CancelFunc = func() {}
	)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			break
		}
		// Any inbound traffic proves the client is alive.
		if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
			s.logger.Error("websocket set read deadline failed", "error", err)
			break
		}

		var in dashboard.ViewConfig
		if err := json.Unmarshal(data, &in); err != nil {
			pushWS(writeCh, wsOutbound{Type: msgError, Code: "InvalidRequest", Message: "message must be a JSON view config"})
			continue
		}
		cfg, err := in.Normalize()
		if err != nil {
			pushWS(writeCh, wsOutbound{Type: msgError, Code: "InvalidRequest", Message: err.Error()})
			continue
		}

		cancelCurrent()
		var actx context.Context
		actx, cancelCurrent = context.WithCancel(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.streamReport(actx, cfg, writeCh)
		}()
	}

	cancelCurrent()
	wg.Wait()
	cancel()
	<-writerDone
}

func (s *Server) streamReport(ctx context.Context, cfg dashboard.ViewConfig, writeCh chan wsOutbound) {
	pushWS(writeCh, wsOutbound{Type: msgStarted, Config: &cfg})

	ctx = domain.WithRateLimitObserver(ctx, func(operation string, attempt int, wait time.Duration) {
		pushWS(writeCh, wsOutbound{
			Type:        msgRateLimited,
			Operation:   operation,
			Attempt:     attempt,
			WaitSeconds: wait.Seconds(),
		})
	})

	report, err := s.buildReport(ctx, cfg)
	if ctx.Err() != nil {
		// superseded or disconnected
		return
	}
	if err != nil {
		s.logger.Error("streamed analysis failed", "subreddit", cfg.Subreddit, "error", err)
		pushWS(writeCh, wsOutbound{Type: msgError, Code: errorType(statusFor(err)), Message: err.Error()})
		return
	}
	pushWS(writeCh, wsOutbound{Type: msgReport, Config: &cfg, Report: report})
}

// pushWS enqueues out without blocking. When the queue is full the oldest
// message is dropped.
func pushWS(writeCh chan wsOutbound, out wsOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
