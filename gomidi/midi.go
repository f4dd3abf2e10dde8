// Package gomidi mirrors step onsets to an external MIDI output, so a
// hardware synth or DAW can double the generated tones. A driver must be
// registered by the application (typically by importing rtmididrv); without
// one, NewStepMirror reports an error and the rest of the program runs
// unaffected.
package gomidi

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/soluna-audio/soluna"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// StepMirror sends a note on for every audible step onset and a note off
// for the previous one.
type StepMirror struct {
	out     drivers.Out
	channel uint8
	lastKey int
}

// NewStepMirror opens the MIDI output whose name starts with namePrefix, or
// the first available output when the prefix is empty.
func NewStepMirror(namePrefix string) (*StepMirror, error) {
	if drivers.Get() == nil {
		return nil, errors.New("no MIDI driver available")
	}
	out, err := findOutPort(namePrefix)
	if err != nil {
		return nil, err
	}
	if err := out.Open(); err != nil {
		return nil, fmt.Errorf("opening MIDI output failed: %w", err)
	}
	return &StepMirror{out: out, lastKey: -1}, nil
}

func (m *StepMirror) send(msg midi.Message) error {
	return m.out.Send(msg.Bytes())
}

func findOutPort(namePrefix string) (drivers.Out, error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI outputs failed: %w", err)
	}
	for _, out := range outs {
		if namePrefix == "" || strings.HasPrefix(out.String(), namePrefix) {
			return out, nil
		}
	}
	if namePrefix == "" {
		return nil, errors.New("no MIDI outputs found")
	}
	return nil, fmt.Errorf("no MIDI output starting with %q", namePrefix)
}

// Step mirrors one step onset. Disabled or silent steps only release the
// previous note.
func (m *StepMirror) Step(step int, scene *soluna.Scene) {
	if m.lastKey >= 0 {
		m.send(midi.NoteOff(m.channel, uint8(m.lastKey)))
		m.lastKey = -1
	}
	if scene == nil || step < 0 || step >= len(scene.Steps) {
		return
	}
	s := scene.Steps[step]
	if !s.Enabled || s.StepGain <= 0 || s.BaseFrequency <= 0 {
		return
	}
	key := freqToKey(s.BaseFrequency)
	velocity := int(math.Round(s.StepGain * 127))
	if velocity < 1 {
		velocity = 1
	} else if velocity > 127 {
		velocity = 127
	}
	if err := m.send(midi.NoteOn(m.channel, uint8(key), uint8(velocity))); err != nil {
		return
	}
	m.lastKey = key
}

// Close releases any sounding note and the output port.
func (m *StepMirror) Close() {
	if m.lastKey >= 0 {
		m.send(midi.NoteOff(m.channel, uint8(m.lastKey)))
		m.lastKey = -1
	}
	m.out.Close()
}

// freqToKey maps a frequency to the nearest MIDI key, clamped to 0..127.
func freqToKey(freq float64) int {
	key := int(math.Round(69 + 12*math.Log2(freq/440)))
	if key < 0 {
		return 0
	}
	if key > 127 {
		return 127
	}
	return key
}
