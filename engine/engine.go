package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/soluna-audio/soluna"
)

// Engine is the facade over the audio graph and the scheduler. It holds the
// authoritative scene snapshot behind an atomic pointer: SetScene replaces
// the whole object with a single pointer swap, the scheduler reads whatever
// snapshot is current at each scheduling boundary, and nobody needs a lock
// on the hot path.
//
// An Engine is an explicit instance owned by the caller; create one with New
// and tear it down with Dispose. Multiple engines can coexist as long as
// they do not share one audio device.
type Engine struct {
	synth *synth
	sched *scheduler
	scene atomic.Pointer[soluna.Scene]

	mu          sync.Mutex
	ctx         soluna.AudioContext
	playback    soluna.CloserWaiter
	initialized bool
	running     bool
	notifyQuit  chan struct{}
	notifyDone  chan struct{}
}

// New creates an engine on top of the given audio context. ctx may be nil
// for engines that only render offline or are driven by tests; everything
// except audible output works without a backend. The engine starts from
// soluna.DefaultScene.
func New(ctx soluna.AudioContext) *Engine {
	e := &Engine{ctx: ctx}
	e.synth = newSynth()
	e.sched = newScheduler(e.synth, e.scene.Load)
	e.storeScene(soluna.DefaultScene())
	return e
}

// Initialize constructs the audio graph and hooks it to the backend. It is
// idempotent: the graph is constructed exactly once per engine instance.
// Start calls it lazily, so calling Initialize yourself is optional.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initializeLocked()
}

func (e *Engine) initializeLocked() error {
	if e.initialized {
		return nil
	}
	if e.ctx != nil {
		e.playback = e.ctx.Play(e.synth)
	}
	e.initialized = true
	return nil
}

// Scene returns a deep copy of the current scene snapshot.
func (e *Engine) Scene() soluna.Scene {
	return e.scene.Load().Copy()
}

// SetScene validates the scene and replaces the current snapshot wholesale.
// Already scheduled voices are unaffected; steps scheduled after the call
// use the new snapshot. The master gain is re-applied smoothed, so the swap
// causes no audible step.
func (e *Engine) SetScene(scene soluna.Scene) error {
	if err := scene.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.storeScene(scene)
	return nil
}

// storeScene publishes a new snapshot. Callers besides New hold e.mu, so
// concurrent read-modify-write updates cannot lose each other.
func (e *Engine) storeScene(scene soluna.Scene) {
	c := scene.Copy()
	e.scene.Store(&c)
	e.synth.setGainTarget(c.MasterGain)
	e.synth.setSchumannDepth(c.SchumannDepth)
}

// SetSchumannDepth sets the depth of the global 7.83 Hz amplitude modulation
// bus, in [0,1], and reflects it into the scene snapshot so that Scene
// round-trips the value.
func (e *Engine) SetSchumannDepth(depth float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	scene := e.scene.Load().Copy()
	scene.SchumannDepth = depth
	e.storeScene(scene)
}

// Start begins playback from step 0. onStep, if non-nil, is invoked once per
// scheduled step with the 0-based step index, timed to the step's audible
// onset; it fires for disabled steps too. Start is a no-op when already
// running. It fails when the audio backend refuses to resume from a
// suspended state; the engine does not retry internally.
func (e *Engine) Start(onStep func(step int)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil
	}
	if err := e.initializeLocked(); err != nil {
		return err
	}
	if e.ctx != nil {
		if err := e.ctx.Resume(); err != nil {
			return fmt.Errorf("resume audio output: %w", err)
		}
	}
	e.synth.drainSteps()
	e.notifyQuit = make(chan struct{})
	e.notifyDone = make(chan struct{})
	go e.notify(onStep, e.notifyQuit, e.notifyDone)
	e.sched.Start()
	e.running = true
	return nil
}

// notify drains the synth's step notifications to the callback. The synth
// side never blocks on a slow callback; it drops notifications instead.
func (e *Engine) notify(onStep func(int), quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-quit:
			return
		case step := <-e.synth.steps:
			if onStep != nil {
				onStep(step)
			}
		}
	}
}

// Stop halts the scheduler and force-terminates all live voices before
// returning. The audio backend keeps running and outputs silence; use
// Dispose for full teardown. Stopping a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.sched.Stop()
	close(e.notifyQuit)
	<-e.notifyDone
	e.running = false
}

// Analyzer returns the read-only analysis tap sitting after the master gain
// stage, so readings reflect the final output. The engine never depends on
// the analyzer being read.
func (e *Engine) Analyzer() *Analyzer {
	return e.synth.analyzer
}

// Dispose stops playback and releases the audio backend. The engine cannot
// be restarted afterwards.
func (e *Engine) Dispose() error {
	e.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playback != nil {
		e.playback.Close()
		e.playback = nil
	}
	if e.ctx != nil {
		return e.ctx.Close()
	}
	return nil
}
