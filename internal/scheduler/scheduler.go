// Package scheduler decides when a room's accumulated prompt events should
// trigger a generation cycle, balancing responsiveness against the cost of
// invoking the reasoning service too often.
//
// Policy (the batch-window variant): the first event after an idle period
// opens a window with a timer of Window seconds. Each further event in the
// open window increments a counter; when the counter reaches EarlyCount
// (the second event by default) the timer is cancelled and the cycle fires
// immediately. If no second event arrives, the timer firing ends the
// window. While a cycle is running, new events do not open a new window;
// they are picked up by the next cycle's time-window query once the
// scheduler returns to idle.
//
// Each room is an explicit state machine (idle → windowOpen → running)
// guarded by one mutex, driven by an injectable Clock so tests can pin the
// early-trigger rule without sleeping.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Room batching states.
const (
	stateIdle = iota
	stateWindowOpen
	stateRunning
)

// CycleFunc runs one generation cycle for a room. The scheduler calls it
// from its own goroutine; errors are the cycle's to report (the scheduler
// only cares that it returned).
type CycleFunc func(ctx context.Context, roomID string)

// Scheduler owns one batching state machine per room.
type Scheduler struct {
	window     time.Duration
	earlyCount int
	clock      Clock
	run        CycleFunc
	log        zerolog.Logger

	mu    sync.Mutex
	rooms map[string]*roomWindow
}

type roomWindow struct {
	state int
	count int
	timer Timer
}

// New constructs a Scheduler. window <= 0 defaults to 10s; earlyCount <= 1
// defaults to 2 (trigger on the second event in the window).
func New(window time.Duration, earlyCount int, clock Clock, run CycleFunc, log zerolog.Logger) *Scheduler {
	if window <= 0 {
		window = 10 * time.Second
	}
	if earlyCount <= 1 {
		earlyCount = 2
	}
	if clock == nil {
		clock = NewClock()
	}
	return &Scheduler{
		window:     window,
		earlyCount: earlyCount,
		clock:      clock,
		run:        run,
		log:        log,
		rooms:      make(map[string]*roomWindow),
	}
}

// Notify tells the scheduler a prompt event was inserted for roomID.
func (s *Scheduler) Notify(roomID string) {
	s.mu.Lock()
	rw := s.rooms[roomID]
	if rw == nil {
		rw = &roomWindow{}
		s.rooms[roomID] = rw
	}

	switch rw.state {
	case stateRunning:
		// A cycle is in flight; its follow-up window query will see this
		// event. Nothing to schedule.
		s.mu.Unlock()

	case stateWindowOpen:
		rw.count++
		if n := rw.count; n >= s.earlyCount {
			if rw.timer != nil {
				rw.timer.Stop()
				rw.timer = nil
			}
			rw.state = stateRunning
			s.mu.Unlock()
			s.log.Debug().Str("room_id", roomID).Int("events", n).
				Msg("batch window early trigger")
			go s.cycle(roomID)
			return
		}
		s.mu.Unlock()

	default: // idle
		rw.state = stateWindowOpen
		rw.count = 1
		rw.timer = s.clock.AfterFunc(s.window, func() { s.expire(roomID) })
		s.mu.Unlock()
		s.log.Debug().Str("room_id", roomID).Dur("window", s.window).
			Msg("batch window opened")
	}
}

// Running reports whether a cycle is currently in flight for roomID.
func (s *Scheduler) Running(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rw := s.rooms[roomID]
	return rw != nil && rw.state == stateRunning
}

// expire is the timer path: the window elapsed without an early trigger.
func (s *Scheduler) expire(roomID string) {
	s.mu.Lock()
	rw := s.rooms[roomID]
	if rw == nil || rw.state != stateWindowOpen {
		// Early trigger won the race; the cycle is already running.
		s.mu.Unlock()
		return
	}
	rw.timer = nil
	rw.state = stateRunning
	s.mu.Unlock()
	s.log.Debug().Str("room_id", roomID).Msg("batch window elapsed")
	s.cycle(roomID)
}

// cycle runs the injected CycleFunc and returns the room to idle afterwards
// regardless of the cycle's outcome.
func (s *Scheduler) cycle(roomID string) {
	defer func() {
		s.mu.Lock()
		if rw := s.rooms[roomID]; rw != nil {
			rw.state = stateIdle
			rw.count = 0
		}
		s.mu.Unlock()
	}()
	s.run(context.Background(), roomID)
}
