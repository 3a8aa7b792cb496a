package session

import (
	"context"
	"testing"
	"time"

	"github.com/avelis/collabd/internal/protocol"
)

func TestCursorThrottleWindow(t *testing.T) {
	const window = 40 * time.Millisecond
	m, ms := newTestManager(window)
	ctx := context.Background()

	a := connect(m, ms, "a", "Alice", testProject)
	b := connect(m, ms, "b", "Bob", testProject)
	if _, err := m.Join(ctx, a, testProject); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Join(ctx, b, testProject); err != nil {
		t.Fatal(err)
	}

	// A burst inside one window: only the first update goes out.
	m.Cursor(a, testProject, 1, 1)
	m.Cursor(a, testProject, 2, 2)
	m.Cursor(a, testProject, 3, 3)
	if got := b.countOf(t, protocol.EvtCursorMove); got != 1 {
		t.Fatalf("burst delivered %d cursor moves, want 1", got)
	}

	var move protocol.CursorMove
	if !b.lastFrameOf(t, protocol.EvtCursorMove, &move) {
		t.Fatal("no cursor move decoded")
	}
	if move.Position.X != 1 || move.Position.Y != 1 {
		t.Errorf("delivered position %+v, want the first of the burst", move.Position)
	}

	// One window later the throttle reopens for a single update.
	time.Sleep(window + 10*time.Millisecond)
	m.Cursor(a, testProject, 4, 4)
	if got := b.countOf(t, protocol.EvtCursorMove); got != 2 {
		t.Errorf("after window reopened got %d cursor moves, want 2", got)
	}
}

func TestCursorThrottleIsPerSender(t *testing.T) {
	m, ms := newTestManager(time.Second)
	ctx := context.Background()

	a := connect(m, ms, "a", "Alice", testProject)
	b := connect(m, ms, "b", "Bob", testProject)
	if _, err := m.Join(ctx, a, testProject); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Join(ctx, b, testProject); err != nil {
		t.Fatal(err)
	}

	m.Cursor(a, testProject, 1, 1)
	m.Cursor(b, testProject, 2, 2)

	if a.countOf(t, protocol.EvtCursorMove) != 1 {
		t.Error("b's window was consumed by a's update")
	}
	if b.countOf(t, protocol.EvtCursorMove) != 1 {
		t.Error("a's window was consumed by b's update")
	}
}

func TestCursorExcludesSenderAndNonMembers(t *testing.T) {
	m, ms := newTestManager(time.Second)
	ctx := context.Background()

	a := connect(m, ms, "a", "Alice", testProject)
	b := connect(m, ms, "b", "Bob", testProject)
	if _, err := m.Join(ctx, a, testProject); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Join(ctx, b, testProject); err != nil {
		t.Fatal(err)
	}

	m.Cursor(a, testProject, 5, 5)
	if a.countOf(t, protocol.EvtCursorMove) != 0 {
		t.Error("sender received its own cursor update")
	}

	// A connection that never joined cannot broadcast into the room.
	outsider := connect(m, ms, "c", "Carol", testProject)
	m.Cursor(outsider, testProject, 9, 9)
	if b.countOf(t, protocol.EvtCursorMove) != 1 {
		t.Error("cursor from a non-joined connection was delivered")
	}
}
