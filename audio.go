package soluna

type (
	// AudioBuffer is a buffer of stereo audio samples of the form
	// [[l0,r0],[l1,r1],[l2,r2]...]
	AudioBuffer [][2]float32

	// AudioSource is a pull-model source of audio: the playback backend
	// calls ReadAudio to fill its next buffer. ReadAudio should always
	// fill the whole buffer, with silence if nothing is sounding, and
	// return len(buf).
	AudioSource interface {
		ReadAudio(buf AudioBuffer) (int, error)
	}

	// AudioContext represents the low-level audio drivers. There should be
	// at most one AudioContext created, as it reserves the low level audio
	// devices.
	AudioContext interface {
		// Play starts playing the given AudioSource and does not block.
		Play(r AudioSource) CloserWaiter

		// Suspend pauses the underlying output device; Resume recovers
		// from a suspended state. Resume is allowed to fail when the
		// platform refuses to give the device back.
		Suspend() error
		Resume() error

		Close() error
	}

	// CloserWaiter is the handle returned by AudioContext.Play. Close
	// stops the playback; Wait blocks until the playback has ended.
	CloserWaiter interface {
		Close() error
		Wait()
	}
)
