package main

import (
	"errors"
	"testing"
)

func testSession() *Session {
	return newSession(1, "AB12", "Alice", "hunter2")
}

func TestRosterAlwaysContainsHost(t *testing.T) {
	s := testSession()

	host := s.Host()
	if host.ID != 0 {
		t.Fatalf("expected host id 0, got %d", host.ID)
	}
	if host.Name != "Alice" {
		t.Fatalf("expected host name Alice, got %q", host.Name)
	}
	if host.Role != RoleInLobby {
		t.Fatalf("expected host role in_lobby, got %q", host.Role)
	}

	roster := s.Roster()
	if len(roster) != 1 || roster[0].ID != 0 {
		t.Fatalf("expected roster [host], got %+v", roster)
	}
}

func TestAddPlayerAssignsSequentialIDs(t *testing.T) {
	s := testSession()

	for want := 1; want <= 5; want++ {
		roster, err := s.AddPlayer("player", 0)
		if err != nil {
			t.Fatalf("add player failed: %v", err)
		}
		joined := roster[len(roster)-1]
		if joined.ID != want {
			t.Fatalf("expected player id %d, got %d", want, joined.ID)
		}
		if joined.Role != RoleInLobby {
			t.Fatalf("expected new player role in_lobby, got %q", joined.Role)
		}
	}

	seen := make(map[int]bool)
	for _, p := range s.Roster() {
		if seen[p.ID] {
			t.Fatalf("duplicate player id %d", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestAddPlayerCapacityGuard(t *testing.T) {
	s := testSession()

	if _, err := s.AddPlayer("Bob", 2); err != nil {
		t.Fatalf("add player failed: %v", err)
	}
	if _, err := s.AddPlayer("Carol", 2); !errors.Is(err, errInvalidState) {
		t.Fatalf("expected errInvalidState when session is full, got %v", err)
	}
	if len(s.Roster()) != 2 {
		t.Fatalf("expected roster unchanged after rejected join, got %d players", len(s.Roster()))
	}
}

func TestRemovePlayer(t *testing.T) {
	s := testSession()
	s.AddPlayer("Bob", 0)

	removed, err := s.RemovePlayer(1)
	if err != nil {
		t.Fatalf("remove player failed: %v", err)
	}
	if removed.Name != "Bob" {
		t.Fatalf("expected to remove Bob, got %q", removed.Name)
	}

	if _, err := s.RemovePlayer(1); !errors.Is(err, errNotFound) {
		t.Fatalf("expected errNotFound for missing player, got %v", err)
	}
}

func TestRemovedIDIsNotReused(t *testing.T) {
	s := testSession()
	s.AddPlayer("Bob", 0)

	if _, err := s.RemovePlayer(1); err != nil {
		t.Fatalf("remove player failed: %v", err)
	}

	roster, err := s.AddPlayer("Carol", 0)
	if err != nil {
		t.Fatalf("add player failed: %v", err)
	}
	if roster[len(roster)-1].ID != 2 {
		t.Fatalf("expected Carol to get id 2, got %d", roster[len(roster)-1].ID)
	}
}

func TestStartGameAssignsUniformRoles(t *testing.T) {
	s := testSession()
	s.AddPlayer("Bob", 0)

	state, err := s.StartGame()
	if err != nil {
		t.Fatalf("start game failed: %v", err)
	}
	if len(state) != 0 {
		t.Fatalf("expected empty initial game state, got %v", state)
	}

	for _, p := range s.Roster() {
		if p.Role != RoleCivilian {
			t.Fatalf("expected player %d role civilian, got %q", p.ID, p.Role)
		}
	}
}

func TestStartGameWhileRunningFails(t *testing.T) {
	s := testSession()

	if _, err := s.StartGame(); err != nil {
		t.Fatalf("start game failed: %v", err)
	}

	if _, err := s.UpdateGameState(map[string]any{"round": 1}); err != nil {
		t.Fatalf("update game state failed: %v", err)
	}

	if _, err := s.StartGame(); !errors.Is(err, errInvalidState) {
		t.Fatalf("expected errInvalidState on second start, got %v", err)
	}

	// The first game is unaffected by the rejected start.
	state, _, err := s.GameData()
	if err != nil {
		t.Fatalf("game data failed: %v", err)
	}
	if state["round"] != 1 {
		t.Fatalf("expected game state to survive rejected start, got %v", state)
	}
}

func TestEndGameResetsRolesAndState(t *testing.T) {
	s := testSession()
	s.AddPlayer("Bob", 0)

	if _, err := s.StartGame(); err != nil {
		t.Fatalf("start game failed: %v", err)
	}
	if _, err := s.ProcessAction(1, ActionTest); err != nil {
		t.Fatalf("process action failed: %v", err)
	}
	if _, err := s.UpdateGameState(map[string]any{"phase": "night"}); err != nil {
		t.Fatalf("update game state failed: %v", err)
	}

	if err := s.EndGame(); err != nil {
		t.Fatalf("end game failed: %v", err)
	}

	for _, p := range s.Roster() {
		if p.Role != RoleInLobby {
			t.Fatalf("expected player %d role in_lobby after end, got %q", p.ID, p.Role)
		}
	}

	snap := s.Snapshot()
	if snap.CurrentGame != nil {
		t.Fatal("expected current_game to be absent after end")
	}

	if _, _, err := s.GameData(); !errors.Is(err, errInvalidState) {
		t.Fatalf("expected errInvalidState after end, got %v", err)
	}
}

func TestEndGameWithoutGameFails(t *testing.T) {
	s := testSession()

	if err := s.EndGame(); !errors.Is(err, errInvalidState) {
		t.Fatalf("expected errInvalidState, got %v", err)
	}
}

func TestEndGameWithoutGameKeepsPendingGameType(t *testing.T) {
	s := testSession()

	s.mu.Lock()
	s.gameType = GameTypeHidersAndSeekers
	s.mu.Unlock()

	if err := s.EndGame(); !errors.Is(err, errInvalidState) {
		t.Fatalf("expected errInvalidState, got %v", err)
	}

	s.mu.Lock()
	pending := s.gameType
	s.mu.Unlock()

	if pending != GameTypeHidersAndSeekers {
		t.Fatalf("failed end cleared the pending game type: %q", pending)
	}
}

func TestProcessActionUnknownPlayer(t *testing.T) {
	s := testSession()

	if _, err := s.StartGame(); err != nil {
		t.Fatalf("start game failed: %v", err)
	}
	if _, err := s.UpdateGameState(map[string]any{"marker": true}); err != nil {
		t.Fatalf("update game state failed: %v", err)
	}

	if _, err := s.ProcessAction(42, ActionTest); !errors.Is(err, errNotFound) {
		t.Fatalf("expected errNotFound, got %v", err)
	}

	state, _, err := s.GameData()
	if err != nil {
		t.Fatalf("game data failed: %v", err)
	}
	if len(state) != 1 || state["marker"] != true {
		t.Fatalf("expected game state unchanged after failed action, got %v", state)
	}
}

func TestProcessActionWithoutGame(t *testing.T) {
	s := testSession()
	s.AddPlayer("Bob", 0)

	if _, err := s.ProcessAction(1, ActionTest); !errors.Is(err, errInvalidState) {
		t.Fatalf("expected errInvalidState, got %v", err)
	}
}

func TestProcessActionRecordsOnTargetPlayer(t *testing.T) {
	s := testSession()
	s.AddPlayer("Bob", 0)

	if _, err := s.StartGame(); err != nil {
		t.Fatalf("start game failed: %v", err)
	}

	state, err := s.ProcessAction(1, ActionTest)
	if err != nil {
		t.Fatalf("process action failed: %v", err)
	}
	if len(state) != 0 {
		t.Fatalf("expected game state unchanged by placeholder action, got %v", state)
	}

	for _, p := range s.Roster() {
		switch p.ID {
		case 1:
			if p.CurrentAction != ActionTest {
				t.Fatalf("expected Bob's current_action %q, got %q", ActionTest, p.CurrentAction)
			}
		default:
			if p.CurrentAction != "" {
				t.Fatalf("expected player %d without action, got %q", p.ID, p.CurrentAction)
			}
		}
	}

	// The action is visible through the game's roster view as well.
	snap := s.Snapshot()
	if snap.CurrentGame == nil {
		t.Fatal("expected a running game in the snapshot")
	}
	for _, p := range snap.CurrentGame.GamePlayers {
		if p.ID == 1 && p.CurrentAction != ActionTest {
			t.Fatalf("expected action visible on game roster, got %q", p.CurrentAction)
		}
	}
}

func TestLateJoinerIsNotInRunningGame(t *testing.T) {
	s := testSession()

	if _, err := s.StartGame(); err != nil {
		t.Fatalf("start game failed: %v", err)
	}

	roster, err := s.AddPlayer("Bob", 0)
	if err != nil {
		t.Fatalf("add player failed: %v", err)
	}
	bob := roster[len(roster)-1]

	if _, err := s.ProcessAction(bob.ID, ActionTest); !errors.Is(err, errNotFound) {
		t.Fatalf("expected errNotFound for late joiner, got %v", err)
	}

	snap := s.Snapshot()
	if got := len(snap.CurrentGame.GamePlayers); got != 1 {
		t.Fatalf("expected game roster frozen at start (1 player), got %d", got)
	}

	// endGame still resets everyone, late joiners included.
	if err := s.EndGame(); err != nil {
		t.Fatalf("end game failed: %v", err)
	}
	for _, p := range s.Roster() {
		if p.Role != RoleInLobby {
			t.Fatalf("expected player %d reset to in_lobby, got %q", p.ID, p.Role)
		}
	}
}

func TestRemoveDuringGameKeepsGameRoster(t *testing.T) {
	s := testSession()
	s.AddPlayer("Bob", 0)

	if _, err := s.StartGame(); err != nil {
		t.Fatalf("start game failed: %v", err)
	}

	if _, err := s.RemovePlayer(1); err != nil {
		t.Fatalf("remove player failed: %v", err)
	}

	snap := s.Snapshot()
	if got := len(snap.CurrentGame.GamePlayers); got != 2 {
		t.Fatalf("expected game roster to keep its start-time view, got %d players", got)
	}
	if got := len(snap.SessionPlayers); got != 1 {
		t.Fatalf("expected session roster of 1 after removal, got %d", got)
	}
}
