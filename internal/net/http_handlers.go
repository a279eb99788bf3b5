package net

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"time"

	"github.com/gglang/the-voices-sub000/internal/net/ws"
	"github.com/gglang/the-voices-sub000/internal/sim"
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/telemetry"
	"github.com/gglang/the-voices-sub000/logging"
)

const maxCommandBody = 1 << 20

type HTTPHandlerConfig struct {
	Logger   telemetry.Logger
	Counters *telemetry.Counters
	TickRate int
	// Socket serves /ws when set.
	Socket *ws.Handler
	Hub    *ws.Hub
	// Events reports event router throughput on /diagnostics when set.
	Events func() logging.RouterStats
}

func NewHTTPHandler(loop *sim.Loop, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snap := loop.Snapshot()
		agents := make(map[string]int)
		for _, kind := range state.AgentKinds() {
			agents[kind.String()] = snap.Count(kind)
		}
		observers := 0
		if cfg.Hub != nil {
			observers = cfg.Hub.Count()
		}
		var events *logging.RouterStats
		if cfg.Events != nil {
			stats := cfg.Events()
			events = &stats
		}
		payload := struct {
			Status     string               `json:"status"`
			ServerTime int64                `json:"serverTime"`
			Tick       uint64               `json:"tick"`
			TickRate   int                  `json:"tickRate"`
			Agents     map[string]int       `json:"agents"`
			Hazards    int                  `json:"hazards"`
			Backup     int                  `json:"pendingBackup"`
			Identified bool                 `json:"identified"`
			Failed     bool                 `json:"failed"`
			Observers  int                  `json:"observers"`
			Pending    int                  `json:"pendingCommands"`
			Telemetry  map[string]uint64    `json:"telemetry"`
			Events     *logging.RouterStats `json:"events,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Tick:       snap.Tick,
			TickRate:   cfg.TickRate,
			Agents:     agents,
			Hazards:    len(snap.Hazards),
			Backup:     len(snap.Backup),
			Identified: snap.Threat.Identified,
			Failed:     snap.Failed,
			Observers:  observers,
			Pending:    loop.Pending(),
			Telemetry:  cfg.Counters.Snapshot(),
			Events:     events,
		}
		writeJSON(w, logger, payload)
	})

	mux.HandleFunc("/snapshot", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, logger, loop.Snapshot())
	})

	mux.HandleFunc("/commands", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()
		var cmds []sim.Command
		decoder := json.NewDecoder(io.LimitReader(r.Body, maxCommandBody))
		if err := decoder.Decode(&cmds); err != nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		accepted := 0
		for _, cmd := range cmds {
			if err := loop.Enqueue(cmd); err != nil {
				break
			}
			accepted++
		}
		status := nethttp.StatusAccepted
		if accepted < len(cmds) {
			status = nethttp.StatusServiceUnavailable
		}
		response := struct {
			Accepted int `json:"accepted"`
			Dropped  int `json:"dropped"`
		}{Accepted: accepted, Dropped: len(cmds) - accepted}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Printf("failed to encode command response: %v", err)
		}
	})

	if cfg.Socket != nil {
		mux.HandleFunc("/ws", cfg.Socket.Handle)
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, logger telemetry.Logger, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("failed to encode response: %v", err)
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
