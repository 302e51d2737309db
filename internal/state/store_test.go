package state

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
)

func TestStore_RecordFailuresAndRecovery(t *testing.T) {
	var s Store
	key := query.NewKey("cards", "due")

	before := time.Now()
	origErr := errors.New("connection refused")
	s.Record(key, origErr)
	s.Record(key, origErr)

	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("failures = %d offline = %v, want 2 true", snap.ConsecutiveFailures, snap.IsOffline())
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("LastError = %v, want %v", snap.LastError, origErr)
	}
	if snap.LastError == origErr {
		t.Fatalf("Snapshot should copy the error value")
	}
	if snap.LastErrorKey != "cards|due" {
		t.Fatalf("LastErrorKey = %q, want cards|due", snap.LastErrorKey)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}

	s.Record(key, nil)
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.LastError != nil || snap.IsOffline() {
		t.Fatalf("after success = %+v, want cleared", snap)
	}
}

func TestStore_UnauthorizedIsNotOffline(t *testing.T) {
	var s Store
	err := fmt.Errorf("%w: refresh failed", repeater.ErrUnauthorized)
	s.Record(query.NewKey("decks"), err)
	s.Record(query.NewKey("decks"), err)

	snap := s.Snapshot()
	if !snap.Unauthorized {
		t.Fatalf("Unauthorized = false, want true")
	}
	if snap.IsOffline() {
		t.Fatalf("expired session should not read as offline")
	}
}

func TestStore_SetUser(t *testing.T) {
	var s Store
	s.SetUser(&repeater.User{ID: "u1", Email: "a@b.c"})
	if snap := s.Snapshot(); !snap.HasUser || snap.User.Email != "a@b.c" {
		t.Fatalf("user = %+v, want a@b.c", snap.User)
	}
	s.SetUser(nil)
	if snap := s.Snapshot(); snap.HasUser {
		t.Fatalf("HasUser after clear = true")
	}
}

func TestStore_RecordMatchesObserver(t *testing.T) {
	var s Store
	var observer query.Observer = s.Record
	observer(query.NewKey("stats"), nil)
}
