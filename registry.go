package main

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Registry owns the authoritative table of live sessions. It is created
// by ServePage and handed to the handlers that need it; there is no
// package-level instance. The mutex serializes structural mutation
// (create/delete) and id assignment; per-session mutation is serialized
// by each session's own lock.
type Registry struct {
	mu         sync.Mutex
	sessions   map[int]*Session
	nextID     int
	codeLength int
}

func newRegistry(codeLength int) *Registry {
	return &Registry{
		sessions:   make(map[int]*Session),
		codeLength: codeLength,
	}
}

// Create allocates a session id, generates a fresh access code, and
// inserts a session seeded with a host player (id 0, in_lobby). Ids come
// from a monotonically increasing counter, so a deleted session's id is
// never handed out again.
func (reg *Registry) Create(hostName, hostPassword string) *Session {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.nextID++
	id := reg.nextID
	code := reg.newAccessCodeLocked()

	session := newSession(id, code, hostName, hostPassword)
	reg.sessions[id] = session

	return session
}

// Resolve looks a session up by numeric id or, failing a numeric parse,
// by access code. Code matching is a case-sensitive exact comparison over
// a linear scan of live sessions.
func (reg *Registry) Resolve(key string) (*Session, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty session key", errInvalidInput)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if id, err := strconv.Atoi(key); err == nil {
		session, ok := reg.sessions[id]
		if !ok {
			return nil, fmt.Errorf("%w: session %d", errNotFound, id)
		}
		return session, nil
	}

	for _, session := range reg.sessions {
		if session.AccessCode() == key {
			return session, nil
		}
	}

	return nil, fmt.Errorf("%w: session with access code %q", errNotFound, key)
}

// Delete removes a session and returns it so the caller can tear down its
// event stream. An in-progress game is simply discarded with the session.
func (reg *Registry) Delete(id int) (*Session, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	session, ok := reg.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %d", errNotFound, id)
	}
	delete(reg.sessions, id)

	return session, nil
}

// Len reports the number of live sessions.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return len(reg.sessions)
}

const accessCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newAccessCodeLocked draws codes until one doesn't collide with a live
// session. Collisions are only checked at generation time; codes are not
// re-checked afterwards.
func (reg *Registry) newAccessCodeLocked() string {
	for {
		code := randomAccessCode(reg.codeLength)

		collides := false
		for _, session := range reg.sessions {
			if session.AccessCode() == code {
				collides = true
				break
			}
		}
		if !collides {
			return code
		}
	}
}

// randomAccessCode draws n characters uniformly from A-Z0-9 using
// crypto/rand with rejection sampling to avoid modulo bias.
func randomAccessCode(n int) string {
	const max = byte(255 - (256 % len(accessCodeAlphabet)))

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, accessCodeAlphabet[int(b)%len(accessCodeAlphabet)])
				if len(out) == n {
					return string(out)
				}
			}
		}
	}

	return string(out)
}

// reapLoop periodically deletes sessions idle longer than the configured
// timeout, closing their event streams. Started by ServePage when
// --session-timeout is set.
func (reg *Registry) reapLoop(cfg *Config) {
	ticker := time.NewTicker(cfg.sessionTimeout / 2)
	for range ticker.C {
		reg.reapIdle(cfg, time.Now().Add(-cfg.sessionTimeout))
	}
}

func (reg *Registry) reapIdle(cfg *Config, cutoff time.Time) {
	reg.mu.Lock()
	var idle []*Session
	for id, session := range reg.sessions {
		if session.idleSince().Before(cutoff) {
			delete(reg.sessions, id)
			idle = append(idle, session)
		}
	}
	reg.mu.Unlock()

	for _, session := range idle {
		logf(cfg, "SESSIONS: Reaped idle session %d (code %s)", session.ID(), session.AccessCode())
		session.events.publish(sessionEvent{Type: eventSessionDeleted, SessionID: session.ID()})
		session.events.closeAll()
	}
}
