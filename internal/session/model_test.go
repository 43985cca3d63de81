package session

import "testing"

func TestSessionKey(t *testing.T) {
	sess := New("tenant-1", "+15551234567")
	if sess.Key() != "tenant-1:+15551234567" {
		t.Fatalf("unexpected key %q", sess.Key())
	}
	if sess.Stage != StageAwaitingSlot {
		t.Fatalf("new session stage: got %s", sess.Stage)
	}
	if !sess.IsActive() {
		t.Fatal("new session must be active")
	}
}

func TestIsActiveFollowsStage(t *testing.T) {
	sess := New("tenant-1", "+15551234567")
	sess.Stage = StageCompleted
	if sess.IsActive() {
		t.Fatal("completed session must be inactive")
	}
}

func TestAppendTurnBumpsActivity(t *testing.T) {
	sess := New("tenant-1", "+15551234567")
	before := sess.LastActivityAt

	sess.AppendTurn(DirectionInbound, "hello", "d-1")

	if len(sess.History) != 1 {
		t.Fatalf("history length: got %d", len(sess.History))
	}
	if sess.History[0].Direction != DirectionInbound || sess.History[0].MessageID != "d-1" {
		t.Fatalf("unexpected turn %+v", sess.History[0])
	}
	if sess.LastActivityAt.Before(before) {
		t.Fatal("last activity not bumped")
	}
}
