// Package oto wraps github.com/ebitengine/oto/v3 as a soluna.AudioContext.
// Oto is a pull-model backend: the device reads interleaved little-endian
// float32 samples through an io.Reader, so this package adapts the engine's
// soluna.AudioSource into that reader.
package oto

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/soluna-audio/soluna"
)

type (
	// Context implements soluna.AudioContext. There should be at most one
	// per process, as it reserves the audio device.
	Context struct {
		context *oto.Context
	}

	playback struct {
		player *oto.Player
		wait   chan struct{}
		once   sync.Once
	}

	// reader adapts a soluna.AudioSource into the io.Reader oto pulls
	// from, converting stereo float32 frames to interleaved bytes.
	reader struct {
		source soluna.AudioSource
		buffer soluna.AudioBuffer
	}
)

const bytesPerFrame = 8 // 2 channels * 4 bytes

// NewContext creates the audio context and waits until the device is ready.
func NewContext() (*Context, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   soluna.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{context: context}, nil
}

// Play implements soluna.AudioContext.
func (c *Context) Play(r soluna.AudioSource) soluna.CloserWaiter {
	player := c.context.NewPlayer(&reader{source: r})
	player.Play()
	return &playback{player: player, wait: make(chan struct{})}
}

// Suspend pauses the audio device, e.g. for power saving.
func (c *Context) Suspend() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// Resume recovers the device from a suspended state. This can fail when the
// platform refuses to hand the device back; callers decide whether to retry.
func (c *Context) Resume() error {
	if err := c.context.Resume(); err != nil {
		return fmt.Errorf("cannot resume oto context: %w", err)
	}
	return nil
}

// Close suspends the device. Oto contexts have no real teardown; suspending
// releases the output as far as the platform allows.
func (c *Context) Close() error {
	return c.Suspend()
}

func (p *playback) Close() error {
	var err error
	p.once.Do(func() {
		err = p.player.Close()
		close(p.wait)
	})
	if err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

func (p *playback) Wait() {
	<-p.wait
}

func (r *reader) Read(p []byte) (int, error) {
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	if cap(r.buffer) < frames {
		r.buffer = make(soluna.AudioBuffer, frames)
	}
	buf := r.buffer[:frames]
	n, err := r.source.ReadAudio(buf)
	if err != nil {
		return 0, err
	}
	for i, frame := range buf[:n] {
		binary.LittleEndian.PutUint32(p[i*bytesPerFrame:], math.Float32bits(frame[0]))
		binary.LittleEndian.PutUint32(p[i*bytesPerFrame+4:], math.Float32bits(frame[1]))
	}
	return n * bytesPerFrame, nil
}
