package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
)

type stubDest struct{ id string }

func (d stubDest) ChannelID() string { return d.id }
func (d stubDest) Send(_ context.Context, _ string) error { return nil }

func TestTracker_Start(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	s := tr.Start("user123", "Sam", stubDest{id: "dm-1"})

	got, ok := tr.Get("user123")
	if !ok || got != s {
		t.Fatalf("Expected session %p, got %p (ok=%v)", s, got, ok)
	}
	if s.Step != 0 || len(s.Answers) != 0 {
		t.Errorf("Expected fresh session, got step=%d answers=%v", s.Step, s.Answers)
	}
}

func TestTracker_StartReplacesExisting(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	old := tr.Start("user123", "Sam", stubDest{id: "dm-1"})
	tr.Advance(old, "knocks_total", 40)

	fresh := tr.Start("user123", "Sam", stubDest{id: "dm-1"})

	select {
	case <-old.Done():
	default:
		t.Fatal("Expected replaced session to be cancelled")
	}
	if !errors.Is(old.Err(), ErrReplaced) {
		t.Errorf("Expected ErrReplaced, got %v", old.Err())
	}
	if fresh.Step != 0 || len(fresh.Answers) != 0 {
		t.Errorf("Expected no residual state, got step=%d answers=%v", fresh.Step, fresh.Answers)
	}
	if tr.Len() != 1 {
		t.Errorf("Expected 1 active session, got %d", tr.Len())
	}
}

func TestTracker_Advance(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	s := tr.Start("user123", "Sam", stubDest{id: "dm-1"})
	tr.Advance(s, "start_time", "9:00 AM")
	tr.Advance(s, "end_time", "5:30 PM")

	if s.Step != 2 {
		t.Errorf("Expected step 2, got %d", s.Step)
	}
	if s.Answers["end_time"] != "5:30 PM" {
		t.Errorf("Expected end_time answer, got %v", s.Answers["end_time"])
	}
}

func TestTracker_End(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	s := tr.Start("user123", "Sam", stubDest{id: "dm-1"})
	tr.End("user123")

	if _, ok := tr.Get("user123"); ok {
		t.Error("Expected session to be removed")
	}
	if s.Offer("late reply") {
		t.Error("Expected ended session to refuse replies")
	}
}

func TestTracker_ReleaseStale(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	old := tr.Start("user123", "Sam", stubDest{id: "dm-1"})
	fresh := tr.Start("user123", "Sam", stubDest{id: "dm-1"})

	// The replaced flow finishing must not remove its successor.
	tr.Release(old)

	got, ok := tr.Get("user123")
	if !ok || got != fresh {
		t.Errorf("Expected fresh session to remain, got %p (ok=%v)", got, ok)
	}

	tr.Release(fresh)
	if tr.Len() != 0 {
		t.Errorf("Expected no sessions, got %d", tr.Len())
	}
}

func TestSession_OfferDoesNotBlock(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	s := tr.Start("user123", "Sam", stubDest{id: "dm-1"})
	for i := 0; i < mailboxSize; i++ {
		if !s.Offer("msg") {
			t.Fatalf("Expected offer %d to be accepted", i)
		}
	}
	if s.Offer("overflow") {
		t.Error("Expected full mailbox to reject")
	}
	if got := <-s.Replies(); got != "msg" {
		t.Errorf("Expected first reply, got %q", got)
	}
}

func TestTracker_CloseCancelsAll(t *testing.T) {
	tr := NewTracker()
	a := tr.Start("a", "A", stubDest{id: "dm-a"})
	b := tr.Start("b", "B", stubDest{id: "dm-b"})

	tr.Close()

	for _, s := range []*Session{a, b} {
		<-s.Done()
		if !errors.Is(s.Err(), ErrShutdown) {
			t.Errorf("Expected ErrShutdown for %s, got %v", s.UserID, s.Err())
		}
	}
	if tr.Len() != 0 {
		t.Errorf("Expected empty tracker, got %d", tr.Len())
	}
}

func TestTracker_ConcurrentAccess(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "user-" + strconv.Itoa(i)
			s := tr.Start(id, id, stubDest{id: "dm-" + id})
			tr.Get(id)
			tr.Release(s)
		}(i)
	}
	wg.Wait()

	if tr.Len() != 0 {
		t.Errorf("Expected all sessions released, got %d", tr.Len())
	}
}

func TestSession_Discard(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	s := tr.Start("user123", "Sam", stubDest{id: "dm-1"})
	s.Offer("early")
	s.Offer("earlier")

	if n := s.Discard(); n != 2 {
		t.Errorf("Expected 2 discarded replies, got %d", n)
	}
	if n := s.Discard(); n != 0 {
		t.Errorf("Expected empty mailbox, got %d", n)
	}
	if !s.Offer("answer") {
		t.Fatal("Expected offer after discard to be accepted")
	}
	if got := <-s.Replies(); got != "answer" {
		t.Errorf("Expected answer, got %q", got)
	}
}
