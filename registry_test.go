package main

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestCreateAssignsSequentialSessionIDs(t *testing.T) {
	reg := newRegistry(4)

	for want := 1; want <= 3; want++ {
		session := reg.Create("host", "")
		if session.ID() != want {
			t.Fatalf("expected session id %d, got %d", want, session.ID())
		}
	}

	if reg.Len() != 3 {
		t.Fatalf("expected 3 live sessions, got %d", reg.Len())
	}
}

func TestSessionIDsNotReusedAfterDelete(t *testing.T) {
	reg := newRegistry(4)

	first := reg.Create("host", "")
	if _, err := reg.Delete(first.ID()); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	second := reg.Create("host", "")
	if second.ID() == first.ID() {
		t.Fatalf("session id %d was reused after deletion", first.ID())
	}
	if second.ID() != first.ID()+1 {
		t.Fatalf("expected session id %d, got %d", first.ID()+1, second.ID())
	}
}

func TestResolveByIDAndAccessCode(t *testing.T) {
	reg := newRegistry(4)
	session := reg.Create("host", "")

	byID, err := reg.Resolve(strconv.Itoa(session.ID()))
	if err != nil {
		t.Fatalf("resolve by id failed: %v", err)
	}
	if byID != session {
		t.Fatal("resolve by id returned a different session")
	}

	byCode, err := reg.Resolve(session.AccessCode())
	if err != nil {
		t.Fatalf("resolve by access code failed: %v", err)
	}
	if byCode != session {
		t.Fatal("resolve by access code returned a different session")
	}
}

func TestResolveMisses(t *testing.T) {
	reg := newRegistry(4)
	reg.Create("host", "")

	if _, err := reg.Resolve("999"); !errors.Is(err, errNotFound) {
		t.Fatalf("expected errNotFound for unknown id, got %v", err)
	}
	if _, err := reg.Resolve("ZZZZ"); !errors.Is(err, errNotFound) {
		t.Fatalf("expected errNotFound for unknown code, got %v", err)
	}
	if _, err := reg.Resolve(""); !errors.Is(err, errInvalidInput) {
		t.Fatalf("expected errInvalidInput for empty key, got %v", err)
	}
}

func TestAccessCodeLookupIsCaseSensitive(t *testing.T) {
	reg := newRegistry(8)

	// Draw until the code contains a letter, so lowercasing changes it.
	var session *Session
	for {
		session = reg.Create("host", "")
		if strings.ContainsAny(session.AccessCode(), "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
			break
		}
	}

	lower := strings.ToLower(session.AccessCode())
	if _, err := reg.Resolve(lower); !errors.Is(err, errNotFound) {
		t.Fatalf("expected lowercased code %q to miss, got %v", lower, err)
	}
}

func TestAccessCodeFormat(t *testing.T) {
	reg := newRegistry(4)

	for i := 0; i < 50; i++ {
		code := reg.Create("host", "").AccessCode()
		if len(code) != 4 {
			t.Fatalf("expected 4-character access code, got %q", code)
		}
		for _, c := range code {
			if !strings.ContainsRune(accessCodeAlphabet, c) {
				t.Fatalf("access code %q contains %q outside alphabet", code, c)
			}
		}
	}
}

func TestAccessCodeStableForSessionLifetime(t *testing.T) {
	reg := newRegistry(4)
	session := reg.Create("host", "")
	code := session.AccessCode()

	if _, err := session.AddPlayer("player", 0); err != nil {
		t.Fatalf("add player failed: %v", err)
	}
	if _, err := session.StartGame(); err != nil {
		t.Fatalf("start game failed: %v", err)
	}

	if session.AccessCode() != code {
		t.Fatalf("access code changed from %q to %q", code, session.AccessCode())
	}
}

func TestReapIdleSessions(t *testing.T) {
	cfg := &Config{sessionTimeout: time.Minute}
	reg := newRegistry(4)

	stale := reg.Create("stale", "")
	fresh := reg.Create("fresh", "")

	stale.mu.Lock()
	stale.lastActive = time.Now().Add(-2 * time.Minute)
	stale.mu.Unlock()

	reg.reapIdle(cfg, time.Now().Add(-time.Minute))

	if _, err := reg.Resolve(strconv.Itoa(stale.ID())); !errors.Is(err, errNotFound) {
		t.Fatalf("expected stale session to be reaped, got %v", err)
	}
	if _, err := reg.Resolve(strconv.Itoa(fresh.ID())); err != nil {
		t.Fatalf("expected fresh session to survive, got %v", err)
	}
}
