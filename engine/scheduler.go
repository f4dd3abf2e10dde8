package engine

import (
	"sync"
	"time"

	"github.com/soluna-audio/soluna"
)

const (
	// lookahead is how often the scheduler wakes up to drain the window.
	lookahead = 25 * time.Millisecond

	// scheduleAhead is how far ahead of the audio clock steps are
	// scheduled, in seconds. Scheduling against an audio-clock deadline
	// this far in the future is what decouples timing correctness from
	// host timer jitter: a late wakeup only eats into the margin.
	scheduleAhead = 0.1

	// startLeadIn is the buffer given to the first step on start, in
	// seconds.
	startLeadIn = 0.05
)

// scheduler is the look-ahead scheduling loop. It re-arms its timer after
// every drain rather than running a free ticker, and compares the next step
// boundary against the synth's sample clock, not the wall clock. The clock
// function is a field so tests can substitute a manual clock.
type scheduler struct {
	synth *synth
	scene func() *soluna.Scene
	now   func() float64

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	step int
	next float64
}

func newScheduler(s *synth, scene func() *soluna.Scene) *scheduler {
	return &scheduler{
		synth: s,
		scene: scene,
		now:   s.Now,
	}
}

// Start resets the cursor to step 0, anchors the first step slightly ahead
// of the audio clock and begins the tick loop. Calling Start while already
// running is a no-op; no duplicate timer loops are created.
func (s *scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.step = 0
	s.next = s.now() + startLeadIn
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true
	go s.run(s.quit, s.done)
}

// Stop cancels the pending timer and force-terminates all live voices. When
// Stop returns, the tick loop has exited, so the timer cannot be re-armed
// afterwards, and the live voice count is zero. Stopping an already stopped
// scheduler is a no-op. The playback position is not preserved; the cursor
// resets on the next Start.
func (s *scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.quit)
	<-s.done
	s.synth.stopAll()
	s.running = false
}

func (s *scheduler) run(quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	timer := time.NewTimer(0) // first drain happens immediately
	defer timer.Stop()
	for {
		select {
		case <-quit:
			return
		case <-timer.C:
			s.tick()
			timer.Reset(lookahead)
		}
	}
}

// tick drains every step whose start time falls inside the look-ahead
// window. The scene snapshot is re-read for each scheduled step, so tempo
// and step edits take effect on the next unscheduled step boundary, never
// retroactively and never mid-step.
func (s *scheduler) tick() {
	for {
		scene := s.scene()
		if scene == nil {
			return
		}
		dur := soluna.StepDuration(scene.Tempo)
		if dur <= 0 {
			return
		}
		if s.next >= s.now()+scheduleAhead {
			return
		}
		s.synth.triggerStep(s.step, s.next, scene)
		s.next += dur
		s.step = (s.step + 1) % soluna.NumSteps
	}
}
