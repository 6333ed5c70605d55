package app

import (
	"time"

	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
)

// Countdown timer embedded in the game config. The service owns at most one
// outstanding countdown task; stopCountdownLocked is the single cancel point
// shared by stop, resume, reset, and type switches, so no duplicate ticker
// goroutine can survive a cancel.

// StartTimer cancels any running countdown and starts a fresh one. Clients
// receive a full snapshot after every one-second decrement, so they always
// render absolute remaining time.
func (s *GameService) StartTimer(durationSeconds int) {
	if durationSeconds <= 0 {
		return
	}

	s.mu.Lock()
	s.stopCountdownLocked()
	s.config.Timer = domain.TimerState{
		Duration:  durationSeconds,
		Remaining: durationSeconds,
		Running:   true,
	}
	cancel := make(chan struct{})
	s.countdownCancel = cancel
	s.recorder.LogTimerStart(durationSeconds, false)
	s.broadcastLocked()
	s.mu.Unlock()

	go s.runCountdown(cancel)
}

// StopTimer pauses the countdown; remaining time is retained.
func (s *GameService) StopTimer() {
	s.mu.Lock()
	if !s.config.Timer.Running {
		s.mu.Unlock()
		return
	}
	s.stopCountdownLocked()
	s.config.Timer.Running = false
	s.recorder.LogTimerStop(s.config.Timer.Remaining)
	s.broadcastLocked()
	s.mu.Unlock()
}

// ResumeTimer restarts a paused countdown from its retained remaining value.
// A resume with nothing paused is silently dropped.
func (s *GameService) ResumeTimer() {
	s.mu.Lock()
	if s.config.Timer.Running || s.config.Timer.Remaining <= 0 {
		s.mu.Unlock()
		return
	}
	s.stopCountdownLocked()
	s.config.Timer.Running = true
	cancel := make(chan struct{})
	s.countdownCancel = cancel
	s.recorder.LogTimerStart(s.config.Timer.Remaining, true)
	s.broadcastLocked()
	s.mu.Unlock()

	go s.runCountdown(cancel)
}

// SetTimerDuration presets the countdown length without starting it.
func (s *GameService) SetTimerDuration(seconds int) {
	if seconds < 0 {
		return
	}
	s.mu.Lock()
	s.config.Timer.Duration = seconds
	s.broadcastLocked()
	s.mu.Unlock()
}

// stopCountdownLocked cancels the outstanding countdown task, if any.
func (s *GameService) stopCountdownLocked() {
	if s.countdownCancel != nil {
		close(s.countdownCancel)
		s.countdownCancel = nil
	}
}

func (s *GameService) runCountdown(cancel chan struct{}) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.decrementTimer(cancel) {
				return
			}
		case <-cancel:
			return
		}
	}
}

// decrementTimer applies one countdown tick. It reports true when the
// countdown is finished or has been superseded. Tick log entries are
// throttled: every five-second boundary of remaining time plus each of the
// final three seconds, bounding log volume while keeping fine timing near
// expiry.
func (s *GameService) decrementTimer(cancel chan struct{}) bool {
	s.mu.Lock()
	// A stale goroutine whose cancel channel was replaced must not touch the
	// new countdown's state.
	if s.countdownCancel != cancel || !s.config.Timer.Running {
		s.mu.Unlock()
		return true
	}
	s.config.Timer.Remaining--
	remaining := s.config.Timer.Remaining
	done := remaining <= 0
	if done {
		s.config.Timer.Remaining = 0
		s.config.Timer.Running = false
		s.countdownCancel = nil
		remaining = 0
	}
	if remaining%5 == 0 || remaining <= 3 {
		s.recorder.LogTimerTick(remaining)
	}
	s.broadcastLocked()
	s.mu.Unlock()

	return done
}
