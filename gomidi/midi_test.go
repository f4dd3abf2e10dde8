package gomidi

import (
	"testing"

	"gitlab.com/gomidi/midi/v2/drivers"
)

func TestNewStepMirrorWithoutDriver(t *testing.T) {
	if drivers.Get() != nil {
		t.Skip("a MIDI driver is registered")
	}
	if _, err := NewStepMirror(""); err == nil {
		t.Fatalf("expected an error when no driver is registered")
	}
}

func TestFreqToKey(t *testing.T) {
	for _, c := range []struct {
		freq float64
		key  int
	}{
		{440, 69},
		{880, 81},
		{220, 57},
		{261.63, 60},
		{432, 69}, // 432 Hz is 31 cents below A4, still rounds to 69
		{1, 0},
		{100000, 127},
	} {
		if got := freqToKey(c.freq); got != c.key {
			t.Errorf("freqToKey(%v) = %v, expected %v", c.freq, got, c.key)
		}
	}
}
