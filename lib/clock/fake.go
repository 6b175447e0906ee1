// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake is a Clock whose current time only moves when the test calls
// Advance or Set. After channels fire when the fake time passes their
// deadline. Sleep returns immediately; the pipeline never sleeps on
// the hot path, so tests that reach Sleep are not time-sensitive.
type Fake struct {
	mutex   sync.Mutex
	current time.Time
	waiters []fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	channel  chan time.Time
}

// NewFake returns a Fake clock pinned to the given start time.
func NewFake(start time.Time) *Fake {
	return &Fake{current: start}
}

// Now returns the fake current time.
func (fake *Fake) Now() time.Time {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return fake.current
}

// After returns a channel that receives the fake time once Advance or
// Set moves the clock to or past the deadline.
func (fake *Fake) After(d time.Duration) <-chan time.Time {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	channel := make(chan time.Time, 1)
	deadline := fake.current.Add(d)
	if d <= 0 {
		channel <- fake.current
		return channel
	}
	fake.waiters = append(fake.waiters, fakeWaiter{deadline: deadline, channel: channel})
	return channel
}

// Sleep returns immediately without moving the clock.
func (fake *Fake) Sleep(time.Duration) {}

// Advance moves the fake time forward by d, firing any After channels
// whose deadline has been reached.
func (fake *Fake) Advance(d time.Duration) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.setLocked(fake.current.Add(d))
}

// Set moves the fake time to t. Moving backward is allowed; pending
// After channels keep their original deadlines.
func (fake *Fake) Set(t time.Time) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.setLocked(t)
}

func (fake *Fake) setLocked(t time.Time) {
	fake.current = t
	remaining := fake.waiters[:0]
	for _, waiter := range fake.waiters {
		if !waiter.deadline.After(t) {
			waiter.channel <- t
			continue
		}
		remaining = append(remaining, waiter)
	}
	fake.waiters = remaining
}
