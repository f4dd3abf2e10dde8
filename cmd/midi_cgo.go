//go:build cgo

package cmd

import (
	"github.com/soluna-audio/soluna/gomidi"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func NewStepMirror(namePrefix string) (*gomidi.StepMirror, error) {
	return gomidi.NewStepMirror(namePrefix)
}
