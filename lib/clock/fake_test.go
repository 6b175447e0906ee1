// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeNowAdvance(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := NewFake(start)

	if got := fake.Now(); !got.Equal(start) {
		t.Errorf("Now: got %v, want %v", got, start)
	}

	fake.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if got := fake.Now(); !got.Equal(want) {
		t.Errorf("Now after Advance: got %v, want %v", got, want)
	}
}

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := NewFake(start)

	ch := fake.After(time.Minute)
	select {
	case <-ch:
		t.Fatal("After fired before the deadline")
	default:
	}

	fake.Advance(time.Minute)
	select {
	case got := <-ch:
		if !got.Equal(start.Add(time.Minute)) {
			t.Errorf("After delivered %v, want %v", got, start.Add(time.Minute))
		}
	default:
		t.Fatal("After did not fire at the deadline")
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	t.Parallel()
	fake := NewFake(time.Unix(0, 0))

	select {
	case <-fake.After(0):
	default:
		t.Fatal("After(0) should fire immediately")
	}
}

func TestFakeSet(t *testing.T) {
	t.Parallel()
	fake := NewFake(time.Unix(1000, 0))

	ch := fake.After(10 * time.Second)
	fake.Set(time.Unix(2000, 0))

	select {
	case <-ch:
	default:
		t.Fatal("After should fire when Set jumps past the deadline")
	}
}
