//go:build !cgo

package cmd

import (
	"errors"

	"github.com/soluna-audio/soluna/gomidi"
)

func NewStepMirror(namePrefix string) (*gomidi.StepMirror, error) {
	// with no cgo, there is no MIDI driver to mirror to
	return nil, errors.New("MIDI output requires cgo")
}
