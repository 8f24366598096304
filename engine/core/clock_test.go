package core

import (
	"testing"
	"time"
)

func TestClockElapsed(t *testing.T) {
	var now time.Duration
	c := &Clock{now: func() time.Duration { return now }}

	c.Update()
	if c.Elapsed() != 0 {
		t.Fatalf("unstarted clock elapsed %f, want 0", c.Elapsed())
	}

	now = 2 * time.Second
	c.Start()
	now += 1500 * time.Millisecond
	c.Update()
	if got := c.Elapsed(); got != 1.5 {
		t.Fatalf("elapsed = %f, want 1.5", got)
	}

	c.Stop()
	now += time.Hour
	c.Update()
	if got := c.Elapsed(); got != 1.5 {
		t.Fatalf("stopped clock moved to %f", got)
	}
}
