// Command polysynth plays the synth engine live on the default audio
// device.
//
// It steps through a note pattern for a fixed time and prints a coarse
// spectrum of the master bus once per second. With -mic the default
// input device is mixed into the output.
//
// Usage:
//
//	polysynth [flags]
//
// Examples:
//
//	polysynth -preset "granular cloud" -notes C3,G3,D4 -seconds 20
//	polysynth -mic -input-gain 0.8 -fx-send
//	polysynth -record take.wav -loop
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/drew1981/DrewPolySynth/dsp/spectrum"
	"github.com/drew1981/DrewPolySynth/engine"
	"github.com/drew1981/DrewPolySynth/internal/device"
	"github.com/drew1981/DrewPolySynth/internal/wavio"
	"github.com/drew1981/DrewPolySynth/synth"
)

const meterBands = 32

func main() {
	presetName := flag.String("preset", "Soft Pad", "preset name")
	notes := flag.String("notes", "C3,E3,G3,B3,D4", "comma separated notes between C3 and B4")
	step := flag.Duration("step", 600*time.Millisecond, "time between note starts")
	gate := flag.Duration("gate", 450*time.Millisecond, "time each note is held")
	seconds := flag.Float64("seconds", 10, "play time")
	rate := flag.Int("rate", 48000, "sample rate in Hz")
	buffer := flag.Duration("buffer", 40*time.Millisecond, "output device buffer")
	mode := flag.String("mode", "", "override performance mode (hq or eco)")
	hold := flag.Bool("hold", false, "sustain every note until exit")
	mic := flag.Bool("mic", false, "mix the default input device into the output")
	inputGain := flag.Float64("input-gain", 1, "live input gain (0..2)")
	fxSend := flag.Bool("fx-send", true, "send live input to the reverb")
	record := flag.String("record", "", "record the master bus and write it to this WAV path")
	loop := flag.Bool("loop", false, "loop the recording after playing")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	preset, err := synth.PresetByName(*presetName)
	if err != nil {
		fatal(err)
	}
	params := preset.Params
	if *mode != "" {
		m, err := synth.ParsePerformanceMode(*mode)
		if err != nil {
			fatal(err)
		}
		params.Mode = m
	}
	slots, err := parseNotes(*notes)
	if err != nil {
		fatal(err)
	}

	opts := []engine.Option{
		engine.WithSampleRate(float64(*rate)),
		engine.WithLogger(logger),
		engine.WithInitialParameters(params),
		engine.WithSeed(uint64(time.Now().UnixNano())),
	}
	if *mic {
		opts = append(opts, engine.WithInputDevice(device.NewPortAudioInput(device.DefaultInputFrames)))
	}
	e, err := engine.New(opts...)
	if err != nil {
		fatal(err)
	}
	defer e.Close()

	out, err := device.NewOtoOutput(*rate, engine.Channels, *buffer)
	if err != nil {
		fatal(err)
	}
	defer out.Close()
	out.Start(e)

	if *mic {
		if e.InitLiveInput() {
			_ = e.SetInputGain(*inputGain)
			_ = e.SetInputFXSend(*fxSend)
		}
	}
	if *hold {
		_ = e.SetHold(true)
	}
	if *record != "" {
		if err := e.StartRecording(); err != nil {
			fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(*seconds*float64(time.Second)))
	defer cancel()

	play(ctx, e, slots, *step, *gate)

	if *record != "" {
		if err := saveRecording(e, *record, *rate); err != nil {
			fatal(err)
		}
		if *loop {
			playLoop(e)
		}
	}
}

// play steps through slots until ctx ends, printing the meter once per
// second.
func play(ctx context.Context, e *engine.Engine, slots []int, step, gate time.Duration) {
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	meter := time.NewTicker(time.Second)
	defer meter.Stop()

	var spectrumBuf []byte
	i := 0
	trigger := func() {
		slot := slots[i%len(slots)]
		i++
		if err := e.NoteOn(slot, synth.Keyboard[slot].Frequency); err != nil {
			return
		}
		time.AfterFunc(gate, func() { _ = e.NoteOff(slot) })
	}
	trigger()

	for {
		select {
		case <-ctx.Done():
			for _, slot := range slots {
				_ = e.NoteOff(slot)
			}
			return
		case <-ticker.C:
			trigger()
		case <-meter.C:
			spectrumBuf = e.AnalysisSnapshotInto(spectrum.FrequencyDomain, spectrumBuf)
			fmt.Println(bars(spectrumBuf, meterBands))
		}
	}
}

func saveRecording(e *engine.Engine, path string, rate int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.StopRecording(ctx); err != nil {
		return err
	}
	take := e.Take()
	if take == nil {
		return fmt.Errorf("no recording captured")
	}
	if err := wavio.WriteFile(path, rate, 16, engine.Channels, take.Samples); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "recorded %s to %s\n", take.Duration().Round(time.Millisecond), path)
	return nil
}

// playLoop loops the take until interrupted.
func playLoop(e *engine.Engine) {
	if err := e.PlayRecording(true); err != nil {
		fatal(err)
	}
	fmt.Fprintln(os.Stderr, "looping recording, press Ctrl-C to stop")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()
	_ = e.StopPlayback()
}

// bars folds byte magnitudes into n columns of block characters.
func bars(data []byte, n int) string {
	const levels = " ▁▂▃▄▅▆▇█"
	glyphs := []rune(levels)
	if len(data) == 0 || n <= 0 {
		return ""
	}
	if n > len(data) {
		n = len(data)
	}
	var sb strings.Builder
	per := len(data) / n
	for b := 0; b < n; b++ {
		peak := byte(0)
		for _, v := range data[b*per : (b+1)*per] {
			peak = max(peak, v)
		}
		sb.WriteRune(glyphs[int(peak)*(len(glyphs)-1)/255])
	}
	return sb.String()
}

func parseNotes(list string) ([]int, error) {
	var slots []int
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		slot, ok := synth.SlotByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown note %q (C3..B4)", name)
		}
		slots = append(slots, slot)
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("no notes given")
	}
	return slots, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
