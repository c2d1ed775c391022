package main

import (
	"fmt"
	"sync"
	"time"
)

// Session is a lobby grouping one host and zero or more joined players,
// owning at most one active Game. Every session is reachable from
// multiple concurrent request handlers, so each mutation takes the
// session mutex for the duration of one operation. Cross-session
// operations never hold two session locks.
type Session struct {
	mu sync.Mutex

	id           int
	accessCode   string
	hostPassword string

	players      []*Player
	nextPlayerID int

	gameType GameType
	game     *Game

	createdAt  time.Time
	lastActive time.Time

	events *broadcaster
}

func newSession(id int, accessCode, hostName, hostPassword string) *Session {
	now := time.Now()

	host := &Player{
		ID:   0,
		Name: hostName,
		Role: RoleInLobby,
	}

	return &Session{
		id:           id,
		accessCode:   accessCode,
		hostPassword: hostPassword,
		players:      []*Player{host},
		nextPlayerID: 1,
		createdAt:    now,
		lastActive:   now,
		events:       newBroadcaster(),
	}
}

// ID and AccessCode never change for a session's lifetime, so they are
// safe to read without the lock.
func (s *Session) ID() int            { return s.id }
func (s *Session) AccessCode() string { return s.accessCode }

func (s *Session) touchLocked() {
	s.lastActive = time.Now()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastActive
}

// Host returns a copy of the host player, always roster member 0.
func (s *Session) Host() Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	return *s.players[0]
}

// AddPlayer appends a new player to the roster and returns the full
// roster. Player ids are assigned from a per-session counter and never
// reused, even after removal. maxPlayers of 0 means unlimited.
func (s *Session) AddPlayer(name string, maxPlayers int) ([]Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxPlayers > 0 && len(s.players) >= maxPlayers {
		return nil, fmt.Errorf("%w: session is full (%d players)", errInvalidState, maxPlayers)
	}

	player := &Player{
		ID:   s.nextPlayerID,
		Name: name,
		Role: RoleInLobby,
	}
	s.nextPlayerID++

	// A fresh slice, not an in-place append: a running game keeps its
	// view of the roster as it stood at start time.
	players := make([]*Player, 0, len(s.players)+1)
	players = append(players, s.players...)
	s.players = append(players, player)

	s.touchLocked()

	return s.rosterLocked(), nil
}

// RemovePlayer removes the first roster entry with a matching id. The id
// is not reclaimed.
func (s *Session) RemovePlayer(playerID int) (Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := -1
	for i, p := range s.players {
		if p.ID == playerID {
			index = i
			break
		}
	}
	if index == -1 {
		return Player{}, fmt.Errorf("%w: player %d", errNotFound, playerID)
	}

	removed := *s.players[index]

	// Filter into a fresh slice so a running game's roster view keeps
	// its own backing array.
	players := make([]*Player, 0, len(s.players)-1)
	players = append(players, s.players[:index]...)
	s.players = append(players, s.players[index+1:]...)

	s.touchLocked()

	return removed, nil
}

// StartGame selects the game type, builds a Game over the live roster,
// and starts it. Exactly one game may run per session at a time.
func (s *Session) StartGame() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game != nil {
		return nil, fmt.Errorf("%w: game already in progress", errInvalidState)
	}

	// Fixed selection until per-session game type choice lands.
	s.gameType = GameTypeWerewolf

	game := newGame(s.gameType, s.players)
	game.start()
	s.game = game

	s.touchLocked()

	return game.stateCopy(), nil
}

// EndGame tears down the active game, resetting every roster player to
// in_lobby and clearing the pending game type. Validation precedes any
// mutation, so ending a session with no game leaves a pending game type
// untouched.
func (s *Session) EndGame() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil {
		return fmt.Errorf("%w: there is no game to end", errInvalidState)
	}

	s.game.end()
	s.game = nil
	s.gameType = ""

	// The game resets its own roster view; players who joined after the
	// game started are covered here.
	for _, p := range s.players {
		p.Role = RoleInLobby
	}

	s.touchLocked()

	return nil
}

// ProcessAction records an action for a roster member. The player must
// exist in the session roster and in the running game's roster; a player
// who joined after the game started is not part of the game.
func (s *Session) ProcessAction(playerID int, action string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, p := range s.players {
		if p.ID == playerID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: player %d", errNotFound, playerID)
	}

	if s.game == nil {
		return nil, fmt.Errorf("%w: there is not a currently ongoing game", errInvalidState)
	}

	state, err := s.game.processAction(playerID, action)
	if err != nil {
		return nil, fmt.Errorf("%w: player %d not in game", err, playerID)
	}

	s.touchLocked()

	return copyState(state), nil
}

// UpdateGameState merges an arbitrary patch into the running game's
// state, last write wins per key.
func (s *Session) UpdateGameState(patch map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil {
		return nil, fmt.Errorf("%w: no game currently in progress in this session", errInvalidState)
	}

	s.game.mergeState(patch)
	s.touchLocked()

	return s.game.stateCopy(), nil
}

// GameData returns the game state plus the current per-player states.
func (s *Session) GameData() (map[string]any, []Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil {
		return nil, nil, fmt.Errorf("%w: no game currently in progress in this session", errInvalidState)
	}

	return s.game.stateCopy(), s.rosterLocked(), nil
}

// Roster returns a detached copy of the ordered player list.
func (s *Session) Roster() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rosterLocked()
}

func (s *Session) rosterLocked() []Player {
	roster := make([]Player, 0, len(s.players))
	for _, p := range s.players {
		roster = append(roster, *p)
	}
	return roster
}

// SessionSnapshot is the wire representation of a session. The host
// password is deliberately absent.
type SessionSnapshot struct {
	SessionID      int           `json:"session_id"`
	AccessCode     string        `json:"access_code"`
	CurrentGame    *GameSnapshot `json:"current_game"`
	SessionPlayers []Player      `json:"session_players"`
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		SessionID:      s.id,
		AccessCode:     s.accessCode,
		SessionPlayers: s.rosterLocked(),
	}
	if s.game != nil {
		snap.CurrentGame = s.game.snapshot()
	}

	return snap
}

func copyState(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}
