package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/soluna-audio/soluna"
)

// stubContext is an audio backend for tests: it hands the source back to
// the test, which pumps ReadAudio itself to advance the audio clock.
type stubContext struct {
	source    soluna.AudioSource
	resumeErr error
	closed    bool
}

func (c *stubContext) Play(r soluna.AudioSource) soluna.CloserWaiter {
	c.source = r
	return &stubPlayback{}
}

func (c *stubContext) Suspend() error { return nil }
func (c *stubContext) Resume() error  { return c.resumeErr }
func (c *stubContext) Close() error {
	c.closed = true
	return nil
}

type stubPlayback struct{}

func (p *stubPlayback) Close() error { return nil }
func (p *stubPlayback) Wait()        {}

func TestEngineStepCallbackSequence(t *testing.T) {
	ctx := &stubContext{}
	e := New(ctx)
	scene := soluna.DefaultScene()
	scene.Tempo = 240 // 62.5 ms per step, a full cycle within the test budget
	if err := e.SetScene(scene); err != nil {
		t.Fatalf("SetScene failed: %v", err)
	}
	steps := make(chan int, 256)
	if err := e.Start(func(step int) { trySend(steps, step) }); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer e.Stop()
	if ctx.source == nil {
		t.Fatalf("engine did not hand its source to the audio context")
	}
	pumpQuit := make(chan struct{})
	pumpDone := make(chan struct{})
	defer func() { close(pumpQuit); <-pumpDone }()
	go func() {
		defer close(pumpDone)
		buf := make(soluna.AudioBuffer, 2205)
		for {
			select {
			case <-pumpQuit:
				return
			default:
			}
			ctx.source.ReadAudio(buf)
			time.Sleep(5 * time.Millisecond)
		}
	}()
	var got []int
	deadline := time.After(10 * time.Second)
	for len(got) < soluna.NumSteps+1 {
		select {
		case step := <-steps:
			got = append(got, step)
		case <-deadline:
			t.Fatalf("timed out after %v callbacks: %v", len(got), got)
		}
	}
	for i, step := range got {
		if step != i%soluna.NumSteps {
			t.Fatalf("callback sequence %v, expected steps 0..15 in order, wrapping", got)
		}
	}
}

func TestEngineStopTerminatesVoices(t *testing.T) {
	ctx := &stubContext{}
	e := New(ctx)
	if err := e.Start(nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for e.synth.liveVoiceCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("no voices were ever scheduled")
		}
		time.Sleep(time.Millisecond)
	}
	e.Stop()
	if got := e.synth.liveVoiceCount(); got != 0 {
		t.Errorf("got %v live voices after Stop, expected none", got)
	}
	e.Stop() // stopping a stopped engine is a no-op
}

func TestEngineStartTwice(t *testing.T) {
	e := New(&stubContext{})
	if err := e.Start(nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := e.Start(nil); err != nil {
		t.Fatalf("second Start should be a no-op, got: %v", err)
	}
	e.Stop()
}

func TestEngineStartResumeFailure(t *testing.T) {
	ctx := &stubContext{resumeErr: errors.New("device is gone")}
	e := New(ctx)
	if err := e.Start(nil); err == nil {
		t.Fatalf("expected Start to fail when the backend cannot resume")
	}
	// the engine must remain stoppable and restartable after the failure
	ctx.resumeErr = nil
	if err := e.Start(nil); err != nil {
		t.Fatalf("Start after a recovered backend failed: %v", err)
	}
	e.Stop()
}

func TestEngineSceneIsACopy(t *testing.T) {
	e := New(nil)
	scene := e.Scene()
	scene.Tempo = 1
	scene.HarmonicLayers[0].Gain = 0
	if e.Scene().Tempo == 1 {
		t.Errorf("mutating the returned scene changed the engine snapshot")
	}
	if e.Scene().HarmonicLayers[0].Gain == 0 {
		t.Errorf("mutating the returned scene's layers changed the engine snapshot")
	}
}

func TestEngineSetSceneRejectsInvalid(t *testing.T) {
	e := New(nil)
	before := e.Scene()
	bad := soluna.DefaultScene()
	bad.Tempo = 0
	if err := e.SetScene(bad); err == nil {
		t.Fatalf("expected an error for an invalid scene")
	}
	if e.Scene().Tempo != before.Tempo {
		t.Errorf("a rejected scene still replaced the snapshot")
	}
}

func TestEngineSetSceneWhileRunning(t *testing.T) {
	e := New(&stubContext{})
	if err := e.Start(nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer e.Stop()
	scene := soluna.DefaultScene()
	scene.Tempo = 90
	scene.MasterGain = 0.5
	if err := e.SetScene(scene); err != nil {
		t.Fatalf("SetScene while running failed: %v", err)
	}
	if got := e.Scene(); got.Tempo != 90 {
		t.Errorf("got tempo %v, expected 90", got.Tempo)
	}
	e.synth.mu.Lock()
	target := e.synth.gainTarget
	e.synth.mu.Unlock()
	if target != 0.5 {
		t.Errorf("gain target is %v, expected the new master gain 0.5", target)
	}
}

func TestEngineSetSchumannDepth(t *testing.T) {
	e := New(nil)
	e.SetSchumannDepth(0.7)
	if got := e.Scene().SchumannDepth; got != 0.7 {
		t.Errorf("scene depth is %v, expected 0.7", got)
	}
	e.synth.mu.Lock()
	depth := e.synth.schumannDepth
	e.synth.mu.Unlock()
	if depth != 0.7 {
		t.Errorf("synth depth is %v, expected 0.7", depth)
	}
}

func TestEngineConcurrentSceneUpdates(t *testing.T) {
	e := New(nil)
	scene := soluna.DefaultScene()
	scene.Tempo = 90
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if err := e.SetScene(scene); err != nil {
				t.Errorf("SetScene failed: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			e.SetSchumannDepth(0.7)
		}
	}()
	wg.Wait()
	// SetSchumannDepth copies the latest snapshot, so whichever update
	// lands last must still carry the other goroutine's tempo
	if got := e.Scene().Tempo; got != 90 {
		t.Errorf("got tempo %v after concurrent updates, expected 90; an update was lost", got)
	}
	if got := e.Scene().SchumannDepth; got != 0.7 && got != scene.SchumannDepth {
		t.Errorf("got depth %v, expected one of the written values", got)
	}
}

func TestEngineDispose(t *testing.T) {
	ctx := &stubContext{}
	e := New(ctx)
	if err := e.Start(nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := e.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if !ctx.closed {
		t.Errorf("Dispose did not close the audio context")
	}
}
