/*
Copyright © 2026 Applehand
*/

package main

// Role is a player's game-assigned label. Outside a running game every
// player is in_lobby; role assignment during a game is game-type-specific.
type Role string

const (
	RoleInLobby  Role = "in_lobby"
	RoleCivilian Role = "civilian"
	RoleWerewolf Role = "werewolf"
)

// ActionTest is the only player action currently accepted. The action
// alphabet is validated at the transport boundary, so the game state
// machine only ever sees actions it implements.
const ActionTest = "test"

func validAction(action string) bool {
	return action == ActionTest
}

// Player holds a roster member's identity and per-game state. Instances
// are shared by pointer between a session's roster and its running game,
// so role and action mutations are visible to both. All mutation happens
// under the owning session's lock.
type Player struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Role          Role   `json:"role"`
	CurrentAction string `json:"current_action,omitempty"`
}
