package core

import (
	"testing"
	"time"
)

func TestTimers_PollRunsOnlyDueTasksInOrder(t *testing.T) {
	timers := NewTimers()
	base := time.Unix(0, 0)

	var order []string
	timers.Schedule(base.Add(3*time.Second), func(time.Time) { order = append(order, "third") })
	timers.Schedule(base.Add(1*time.Second), func(time.Time) { order = append(order, "first") })
	timers.Schedule(base.Add(2*time.Second), func(time.Time) { order = append(order, "second") })

	timers.Poll(base.Add(2500 * time.Millisecond))

	if want := []string{"first", "second"}; !equalStrings(order, want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	if timers.Len() != 1 {
		t.Fatalf("expected the not-yet-due task to remain pending, heap len=%d", timers.Len())
	}

	timers.Poll(base.Add(3 * time.Second))
	if want := []string{"first", "second", "third"}; !equalStrings(order, want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	if timers.Len() != 0 {
		t.Fatalf("expected the heap to drain once every task is due, heap len=%d", timers.Len())
	}
}

func TestTimers_AfterIsRelativeToNow(t *testing.T) {
	timers := NewTimers()
	now := time.Unix(100, 0)

	fired := false
	timers.After(now, 5*time.Second, func(time.Time) { fired = true })

	timers.Poll(now.Add(4 * time.Second))
	if fired {
		t.Fatalf("task fired before its delay elapsed")
	}

	timers.Poll(now.Add(5 * time.Second))
	if !fired {
		t.Fatalf("task never fired once its delay elapsed")
	}
}

func TestTimers_SelfReschedulingActionSurvivesAcrossPolls(t *testing.T) {
	timers := NewTimers()
	now := time.Unix(0, 0)

	var ticks int
	var tick func(now time.Time)
	tick = func(now time.Time) {
		ticks++
		if ticks < 3 {
			timers.After(now, time.Second, tick)
		}
	}
	timers.After(now, time.Second, tick)

	for i := 1; i <= 3; i++ {
		timers.Poll(now.Add(time.Duration(i) * time.Second))
	}

	if ticks != 3 {
		t.Fatalf("expected the self-rescheduling action to fire exactly 3 times, got %d", ticks)
	}
	if timers.Len() != 0 {
		t.Fatalf("expected no pending tasks once the action stops rescheduling itself, heap len=%d", timers.Len())
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
