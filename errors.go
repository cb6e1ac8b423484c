/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Queueing, routing, and escrow failures reported back to clients.
// None of these is fatal to the process.
var (
	ErrAlreadyQueued     = errors.New("already waiting in a queue")
	ErrAlreadyInSession  = errors.New("already in an active session")
	ErrSessionNotFound   = errors.New("session not found")
	ErrNotInSession      = errors.New("player is not part of this session")
	ErrInsufficientItems = errors.New("insufficient items for this wager")
	ErrWrongPhase        = errors.New("not allowed in the current phase")
	ErrBadWager          = errors.New("wager counts must be non-negative")
)

// errorCode maps a sentinel to the wire code sent to clients.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyQueued):
		return "already_queued"
	case errors.Is(err, ErrAlreadyInSession):
		return "already_in_session"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrNotInSession):
		return "not_in_session"
	case errors.Is(err, ErrInsufficientItems):
		return "insufficient_items"
	case errors.Is(err, ErrWrongPhase):
		return "wrong_phase"
	case errors.Is(err, ErrBadWager):
		return "bad_wager"
	default:
		return "internal_error"
	}
}

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
