package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
)

type createSessionRequest struct {
	HostName     string `json:"host_name"`
	HostPassword string `json:"host_password"`
}

type createSessionResponse struct {
	SessionID  int    `json:"session_id"`
	AccessCode string `json:"access_code"`
	HostPlayer Player `json:"host_player"`
}

type createPlayerRequest struct {
	Name string `json:"name"`
}

type playerActionRequest struct {
	Action string `json:"action"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func originAllowed(cfg *Config, origin string) bool {
	for _, allowed := range cfg.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// applyCORS reflects the request origin back when it is on the allow-list.
// Allowed origins may use credentials and any method or header.
func applyCORS(cfg *Config, w http.ResponseWriter, r *http.Request) bool {
	w.Header().Add("Vary", "Origin")

	origin := r.Header.Get("Origin")
	if origin == "" || !originAllowed(cfg, origin) {
		return false
	}

	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Credentials", "true")

	return true
}

func preflightHandler(cfg *Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if applyCORS(cfg, w, r) {
			if method := r.Header.Get("Access-Control-Request-Method"); method != "" {
				w.Header().Set("Access-Control-Allow-Methods", method)
			}
			if headers := r.Header.Get("Access-Control-Request-Headers"); headers != "" {
				w.Header().Set("Access-Control-Allow-Headers", headers)
			}
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail maps a domain error onto its HTTP status and writes the
// FastAPI-style {"detail": ...} body the frontend expects.
func writeDetail(cfg *Config, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, errNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errInvalidState), errors.Is(err, errInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, errConflict):
		status = http.StatusConflict
	}

	writeJSON(cfg, w, status, map[string]string{"detail": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", errInvalidInput)
	}
	return nil
}

func serveCreateSession(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		var req createSessionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeDetail(cfg, w, err)
			return
		}
		if req.HostName == "" {
			writeDetail(cfg, w, fmt.Errorf("%w: host_name is required", errInvalidInput))
			return
		}

		session := reg.Create(req.HostName, req.HostPassword)

		logf(cfg, "SESSIONS: Created session %d (code %s) for %q from %s in %s",
			session.ID(),
			session.AccessCode(),
			req.HostName,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)

		writeJSON(cfg, w, http.StatusOK, createSessionResponse{
			SessionID:  session.ID(),
			AccessCode: session.AccessCode(),
			HostPlayer: session.Host(),
		})
	}
}

func serveGetSession(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session, err := reg.Resolve(ps.ByName("key"))
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, session.Snapshot())
	}
}

func serveDeleteSession(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session, err := reg.Resolve(ps.ByName("key"))
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		if _, err := reg.Delete(session.ID()); err != nil {
			writeDetail(cfg, w, err)
			return
		}

		session.events.publish(sessionEvent{Type: eventSessionDeleted, SessionID: session.ID()})
		session.events.closeAll()

		logf(cfg, "SESSIONS: Deleted session %d from %s", session.ID(), realIP(r))

		writeJSON(cfg, w, http.StatusOK, messageResponse{
			Message: fmt.Sprintf("Session %d deleted successfully", session.ID()),
		})
	}
}

func serveStartGame(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session, err := reg.Resolve(ps.ByName("key"))
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		state, err := session.StartGame()
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		session.events.publish(sessionEvent{
			Type:      eventGameStarted,
			SessionID: session.ID(),
			Roster:    session.Roster(),
			GameState: state,
		})

		logf(cfg, "GAMES: Started game in session %d from %s", session.ID(), realIP(r))

		writeJSON(cfg, w, http.StatusOK, map[string]any{
			"message":    fmt.Sprintf("Session %d game started successfully.", session.ID()),
			"game_state": state,
		})
	}
}

func serveEndGame(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session, err := reg.Resolve(ps.ByName("key"))
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		if err := session.EndGame(); err != nil {
			writeDetail(cfg, w, err)
			return
		}

		session.events.publish(sessionEvent{
			Type:      eventGameEnded,
			SessionID: session.ID(),
			Roster:    session.Roster(),
		})

		logf(cfg, "GAMES: Ended game in session %d from %s", session.ID(), realIP(r))

		writeJSON(cfg, w, http.StatusOK, messageResponse{
			Message: fmt.Sprintf("Session %d game ended successfully.", session.ID()),
		})
	}
}

func serveGetGame(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session, err := reg.Resolve(ps.ByName("key"))
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		state, players, err := session.GameData()
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, map[string]any{
			"game_state":    state,
			"player_states": players,
		})
	}
}

func serveUpdateGameState(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session, err := reg.Resolve(ps.ByName("key"))
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		var patch map[string]any
		if err := decodeJSON(r, &patch); err != nil {
			writeDetail(cfg, w, err)
			return
		}

		state, err := session.UpdateGameState(patch)
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		session.events.publish(sessionEvent{
			Type:      eventStateUpdated,
			SessionID: session.ID(),
			GameState: state,
		})

		writeJSON(cfg, w, http.StatusOK, map[string]any{
			"message":    "Game state updated successfully.",
			"game_state": state,
		})
	}
}

func serveJoinSession(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session, err := reg.Resolve(ps.ByName("key"))
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		var req createPlayerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeDetail(cfg, w, err)
			return
		}
		if req.Name == "" {
			writeDetail(cfg, w, fmt.Errorf("%w: name is required", errInvalidInput))
			return
		}

		roster, err := session.AddPlayer(req.Name, cfg.maxPlayers)
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		joined := roster[len(roster)-1]
		session.events.publish(sessionEvent{
			Type:      eventPlayerJoined,
			SessionID: session.ID(),
			Player:    &joined,
			Roster:    roster,
		})

		logf(cfg, "SESSIONS: Player %q (id %d) joined session %d from %s", joined.Name, joined.ID, session.ID(), realIP(r))

		writeJSON(cfg, w, http.StatusOK, roster)
	}
}

func serveGetPlayers(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session, err := reg.Resolve(ps.ByName("key"))
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, session.Roster())
	}
}

func serveRemovePlayer(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session, err := reg.Resolve(ps.ByName("key"))
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		playerID, err := strconv.Atoi(ps.ByName("playerid"))
		if err != nil {
			writeDetail(cfg, w, fmt.Errorf("%w: player id must be numeric", errInvalidInput))
			return
		}

		removed, err := session.RemovePlayer(playerID)
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		session.events.publish(sessionEvent{
			Type:      eventPlayerRemoved,
			SessionID: session.ID(),
			Player:    &removed,
			Roster:    session.Roster(),
		})

		logf(cfg, "SESSIONS: Player %q (id %d) removed from session %d by %s", removed.Name, removed.ID, session.ID(), realIP(r))

		writeJSON(cfg, w, http.StatusOK, messageResponse{
			Message: fmt.Sprintf("%s removed from session.", removed.Name),
		})
	}
}

func servePlayerAction(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session, err := reg.Resolve(ps.ByName("key"))
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		playerID, err := strconv.Atoi(ps.ByName("playerid"))
		if err != nil {
			writeDetail(cfg, w, fmt.Errorf("%w: player id must be numeric", errInvalidInput))
			return
		}

		var req playerActionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeDetail(cfg, w, err)
			return
		}

		// Keep the state machine closed over a validated action alphabet.
		if !validAction(req.Action) {
			writeDetail(cfg, w, fmt.Errorf("%w: player action is not accepted", errInvalidInput))
			return
		}

		state, err := session.ProcessAction(playerID, req.Action)
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		session.events.publish(sessionEvent{
			Type:      eventActionProcessed,
			SessionID: session.ID(),
			Roster:    session.Roster(),
			GameState: state,
		})

		logf(cfg, "GAMES: Player %d submitted action %q in session %d", playerID, req.Action, session.ID())

		writeJSON(cfg, w, http.StatusOK, map[string]any{
			"game_state": state,
		})
	}
}

func corsHandle(cfg *Config, handle httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		applyCORS(cfg, w, r)
		handle(w, r, ps)
	}
}

// registerSessionRoutes wires the session, game, and player surface onto
// the router. The :key segment accepts a numeric session id or an access
// code interchangeably.
func registerSessionRoutes(cfg *Config, reg *Registry, mux *httprouter.Router) {
	routes := []struct {
		method string
		path   string
		handle httprouter.Handle
	}{
		{"POST", "/sessions", serveCreateSession(cfg, reg)},
		{"GET", "/sessions/:key", serveGetSession(cfg, reg)},
		{"DELETE", "/sessions/:key", serveDeleteSession(cfg, reg)},
		{"POST", "/sessions/:key/start", serveStartGame(cfg, reg)},
		{"POST", "/sessions/:key/end", serveEndGame(cfg, reg)},
		{"GET", "/sessions/:key/game", serveGetGame(cfg, reg)},
		{"POST", "/sessions/:key/game", serveUpdateGameState(cfg, reg)},
		{"POST", "/sessions/:key/players", serveJoinSession(cfg, reg)},
		{"GET", "/sessions/:key/players", serveGetPlayers(cfg, reg)},
		{"DELETE", "/sessions/:key/players/:playerid", serveRemovePlayer(cfg, reg)},
		{"POST", "/sessions/:key/players/:playerid/action", servePlayerAction(cfg, reg)},
		{"GET", "/sessions/:key/ws", serveSessionEvents(cfg, reg)},
		{"GET", "/sessions/:key/qr", serveSessionQR(cfg, reg)},
	}

	for _, route := range routes {
		mux.Handle(route.method, cfg.prefix+route.path, corsHandle(cfg, route.handle))
	}
}
