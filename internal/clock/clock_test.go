package clock

import (
	"context"
	"testing"
	"time"
)

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	start := clock.Now()
	time.Sleep(10 * time.Millisecond)

	if elapsed := clock.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("RealClock.Since() returned %v, expected >= 10ms", elapsed)
	}
}

func TestRealClock_SleepHonorsContext(t *testing.T) {
	clock := RealClock{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := clock.Sleep(ctx, time.Hour)
	if err != context.Canceled {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep() did not return promptly on a cancelled context")
	}
}

func TestRealClock_SleepZero(t *testing.T) {
	if err := (RealClock{}).Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) error = %v, want nil", err)
	}
}

func TestFakeClock_Advance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	if !clock.Now().Equal(start) {
		t.Errorf("FakeClock.Now() returned %v, expected %v", clock.Now(), start)
	}

	clock.Advance(time.Hour)
	if got := clock.Since(start); got != time.Hour {
		t.Errorf("after Advance(1h), Since(start) = %v, expected 1h", got)
	}
}

func TestFakeClock_Sleep(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	if err := clock.Sleep(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	if err := clock.Sleep(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}

	if got := clock.Since(start); got != 10*time.Second {
		t.Errorf("Since(start) = %v, expected 10s", got)
	}
	sleeps := clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 5*time.Second || sleeps[1] != 5*time.Second {
		t.Errorf("Sleeps() = %v, expected [5s 5s]", sleeps)
	}
}

func TestFakeClock_SleepCancelled(t *testing.T) {
	clock := NewFakeClock(time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := clock.Sleep(ctx, time.Second); err != context.Canceled {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
	if len(clock.Sleeps()) != 0 {
		t.Error("cancelled Sleep should not be recorded")
	}
}
