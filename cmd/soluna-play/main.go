package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/soluna-audio/soluna"
	"github.com/soluna-audio/soluna/cmd"
	"github.com/soluna-audio/soluna/engine"
	"github.com/soluna-audio/soluna/gomidi"
	"github.com/soluna-audio/soluna/oto"
	"github.com/soluna-audio/soluna/relay"
	"github.com/soluna-audio/soluna/version"
)

func main() {
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the working directory.")
	play := flag.Bool("p", false, "Play the scene live (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Render the scene as a .raw file. By default, saves stereo float32 buffer to disk.")
	wavOut := flag.Bool("w", false, "Render the scene as a .wav file. By default, saves stereo float32 buffer to disk.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	cycles := flag.Int("n", 1, "Number of 16-step cycles to render when outputting files.")
	preset := flag.String("preset", "", "Use a built-in preset instead of a scene file.")
	listPresets := flag.Bool("l", false, "List the built-in presets.")
	midiPort := flag.String("midi", "", "Mirror step onsets to the first MIDI output whose name starts with this prefix. An empty prefix with the flag set picks the first output.")
	peerAddr := flag.String("peer", "", "Mirror transport events to a peer listening at this address.")
	listenAddr := flag.String("listen", "", "Follow transport events from a peer; listen on this address.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *listPresets {
		for _, p := range soluna.Presets() {
			fmt.Println(p.Name)
		}
		os.Exit(0)
	}
	if *help || (flag.NArg() == 0 && *preset == "" && *listenAddr == "") {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut {
		*play = true // if the user gives nothing to output, then the default behaviour is just to play the scene
	}
	scene, err := loadScene(flag.Args(), *preset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *rawOut || *wavOut {
		if err := renderFiles(scene, *cycles, *pcm, *rawOut, *wavOut, *stdout, *directory, outputName(flag.Args(), *preset)); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	if *play {
		if err := playLive(scene, *midiPort, flagPassed("midi"), *peerAddr, *listenAddr); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
}

func flagPassed(name string) bool {
	passed := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}

func loadScene(args []string, preset string) (soluna.Scene, error) {
	if preset != "" {
		p, ok := soluna.FindPreset(preset)
		if !ok {
			return soluna.Scene{}, fmt.Errorf("no preset named %q; -l lists the presets", preset)
		}
		return p.Scene, nil
	}
	if len(args) == 0 {
		return soluna.DefaultScene(), nil
	}
	inputBytes, err := os.ReadFile(args[0])
	if err != nil {
		return soluna.Scene{}, fmt.Errorf("could not read file %v: %v", args[0], err)
	}
	scene, err := soluna.ParseScene(inputBytes)
	if err != nil {
		return soluna.Scene{}, fmt.Errorf("could not parse %v: %v", args[0], err)
	}
	return scene, nil
}

func outputName(args []string, preset string) string {
	if len(args) > 0 {
		_, name := filepath.Split(args[0])
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	if preset != "" {
		return preset
	}
	return "soluna"
}

func renderFiles(scene soluna.Scene, cycles int, pcm, rawOut, wavOut, stdout bool, directory, name string) error {
	buffer, err := engine.RenderScene(scene, cycles)
	if err != nil {
		return fmt.Errorf("rendering failed: %v", err)
	}
	output := func(extension string, contents []byte) error {
		if stdout {
			os.Stdout.Write(contents)
			return nil
		}
		dir := directory
		if dir == "" {
			var err error
			dir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
			}
		}
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %v", dir, err)
		}
		f := filepath.Join(dir, name+extension)
		if err := os.WriteFile(f, contents, 0644); err != nil {
			return fmt.Errorf("could not write file %v: %v", f, err)
		}
		return nil
	}
	if rawOut {
		raw, err := buffer.Raw(pcm)
		if err != nil {
			return fmt.Errorf("could not generate .raw file: %v", err)
		}
		if err := output(".raw", raw); err != nil {
			return fmt.Errorf("error outputting .raw file: %v", err)
		}
	}
	if wavOut {
		wav, err := buffer.Wav(pcm)
		if err != nil {
			return fmt.Errorf("could not generate .wav file: %v", err)
		}
		if err := output(".wav", wav); err != nil {
			return fmt.Errorf("error outputting .wav file: %v", err)
		}
	}
	return nil
}

func playLive(scene soluna.Scene, midiPort string, mirrorMIDI bool, peerAddr, listenAddr string) error {
	audioContext, err := oto.NewContext()
	if err != nil {
		return fmt.Errorf("could not acquire oto AudioContext: %v", err)
	}
	eng := engine.New(audioContext)
	defer eng.Dispose()
	if err := eng.SetScene(scene); err != nil {
		return fmt.Errorf("invalid scene: %v", err)
	}
	var mirror *gomidi.StepMirror
	if mirrorMIDI {
		mirror, err = cmd.NewStepMirror(midiPort)
		if err != nil {
			fmt.Fprintf(os.Stderr, "MIDI mirroring disabled: %v\n", err)
		} else {
			defer mirror.Close()
		}
	}
	var sender *relay.Sender
	if peerAddr != "" {
		sender, err = relay.NewSender(peerAddr)
		if err != nil {
			return fmt.Errorf("could not connect to peer %v: %v", peerAddr, err)
		}
		defer sender.Close()
	}
	var receiver *relay.Receiver
	if listenAddr != "" {
		receiver, err = relay.NewReceiver(listenAddr)
		if err != nil {
			return fmt.Errorf("could not listen on %v: %v", listenAddr, err)
		}
		defer receiver.Close()
		fmt.Printf("following peer events on %v\n", receiver.Addr())
	}
	onStep := func(step int) {
		if mirror != nil {
			s := eng.Scene()
			mirror.Step(step, &s)
		}
	}
	start := func() error {
		if err := eng.Start(onStep); err != nil {
			return err
		}
		if sender != nil {
			s := eng.Scene()
			sender.Send(relay.Event{Action: relay.Play, Scene: &s})
		}
		return nil
	}
	stop := func() {
		eng.Stop()
		if sender != nil {
			sender.Send(relay.Event{Action: relay.Stop})
		}
	}
	if listenAddr == "" {
		if err := start(); err != nil {
			return fmt.Errorf("could not start playback: %v", err)
		}
		fmt.Println("playing, press ctrl-c to stop")
	}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	for {
		if receiver == nil {
			<-interrupt
			stop()
			return nil
		}
		select {
		case <-interrupt:
			stop()
			return nil
		case event, ok := <-receiver.Events:
			if !ok {
				stop()
				return nil
			}
			switch event.Action {
			case relay.Play:
				if event.Scene != nil {
					if err := eng.SetScene(*event.Scene); err != nil {
						fmt.Fprintf(os.Stderr, "peer sent an invalid scene: %v\n", err)
						continue
					}
				}
				if err := start(); err != nil {
					fmt.Fprintf(os.Stderr, "could not start playback: %v\n", err)
				}
			case relay.Stop:
				stop()
			}
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Soluna command line utility for playing and rendering scene files.\nUsage: %s [flags] [scenefile]\n", os.Args[0])
	flag.PrintDefaults()
}
