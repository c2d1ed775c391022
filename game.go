package main

// GameType enumerates the games the coordinator knows how to host. Only
// werewolf is start-able right now; hiders and seekers is reserved.
type GameType string

const (
	GameTypeWerewolf         GameType = "werewolf"
	GameTypeHidersAndSeekers GameType = "hiders_and_seekers"
)

type gamePhase int

const (
	gameNotStarted gamePhase = iota
	gameRunning
	gameEnded
)

// Game is one run of a game type, bound to the owning session's roster as
// it stood at start time. The players slice shares Player pointers with
// the session, so roles and actions stay in sync; players who join the
// session after the game starts are not part of it.
//
// A Game moves NotStarted -> Running -> Ended and never runs twice; the
// session creates a fresh Game for each run. All methods are called with
// the owning session's lock held.
type Game struct {
	gameType GameType
	players  []*Player
	state    map[string]any
	phase    gamePhase
}

func newGame(gameType GameType, players []*Player) *Game {
	return &Game{
		gameType: gameType,
		players:  players,
		state:    make(map[string]any),
	}
}

// start assigns roles and transitions the game to Running. Role
// assignment is uniform for now; real game types are expected to replace
// this with their own logic.
func (g *Game) start() map[string]any {
	if g.phase != gameNotStarted {
		return g.state
	}

	for _, p := range g.players {
		p.Role = RoleCivilian
	}
	g.phase = gameRunning

	return g.state
}

// end resets every game player's role and clears the game state. The game
// is terminal afterwards.
func (g *Game) end() {
	for _, p := range g.players {
		p.Role = RoleInLobby
	}
	g.state = make(map[string]any)
	g.phase = gameEnded
}

// processAction records an action against the game roster member with the
// given id. The action is keyed by player identity, not by whoever
// submitted the request. The returned state is currently unchanged;
// game-type rule logic hooks in here.
func (g *Game) processAction(playerID int, action string) (map[string]any, error) {
	if g.phase != gameRunning {
		return nil, errInvalidState
	}

	var target *Player
	for _, p := range g.players {
		if p.ID == playerID {
			target = p
			break
		}
	}
	if target == nil {
		return nil, errNotFound
	}

	target.CurrentAction = action

	return g.state, nil
}

// mergeState applies a last-write-wins patch per key. This is the generic
// escape hatch for game logic the coordinator itself does not implement.
func (g *Game) mergeState(patch map[string]any) map[string]any {
	for k, v := range patch {
		g.state[k] = v
	}
	return g.state
}

// stateCopy returns a detached copy of the game state, safe to marshal
// after the session lock is released.
func (g *Game) stateCopy() map[string]any {
	out := make(map[string]any, len(g.state))
	for k, v := range g.state {
		out[k] = v
	}
	return out
}

// GameSnapshot is the wire representation of a running game.
type GameSnapshot struct {
	GameType    GameType       `json:"game_type"`
	GamePlayers []Player       `json:"game_players"`
	GameState   map[string]any `json:"game_state"`
}

func (g *Game) snapshot() *GameSnapshot {
	players := make([]Player, 0, len(g.players))
	for _, p := range g.players {
		players = append(players, *p)
	}

	return &GameSnapshot{
		GameType:    g.gameType,
		GamePlayers: players,
		GameState:   g.stateCopy(),
	}
}
