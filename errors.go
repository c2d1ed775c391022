/*
Copyright © 2026 Applehand
*/

package main

import (
	"errors"
	"log"
	"time"
)

// Failure taxonomy for session, game, and player operations. Every failed
// operation surfaces exactly one of these to the caller; the transport
// layer maps them to HTTP statuses with errors.Is.
var (
	errNotFound     = errors.New("not found")
	errInvalidState = errors.New("invalid state")
	errInvalidInput = errors.New("invalid input")

	// Reserved for duplicate-access-code handling.
	errConflict = errors.New("conflict")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}
