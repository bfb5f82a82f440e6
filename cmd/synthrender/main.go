// Command synthrender plays a note pattern through the synth engine
// offline and writes the result as a WAV file.
//
// Usage:
//
//	synthrender [flags]
//
// Examples:
//
//	synthrender -preset "soft pad" -notes C3,E3,G3,B3 -out pad.wav
//	synthrender -preset "rhythmic delay" -notes C4,G4 -step 0.5 -tail 4
//	synthrender -notes A4 -record take.wav -bits 24
//	synthrender -preset all -out demo.wav
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/drew1981/DrewPolySynth/engine"
	"github.com/drew1981/DrewPolySynth/internal/wavio"
	"github.com/drew1981/DrewPolySynth/synth"
)

type options struct {
	preset  string
	notes   string
	chord   bool
	step    float64
	gate    float64
	tail    float64
	rate    int
	bits    int
	mode    string
	seed    uint64
	out     string
	record  string
	verbose bool
}

func main() {
	var o options
	flag.StringVar(&o.preset, "preset", "Init Saw", `preset name, or "all" to render every preset`)
	flag.StringVar(&o.notes, "notes", "C4,E4,G4,C4", "comma separated notes between C3 and B4")
	flag.BoolVar(&o.chord, "chord", false, "play all notes at once instead of as an arpeggio")
	flag.Float64Var(&o.step, "step", 0.25, "seconds between note starts")
	flag.Float64Var(&o.gate, "gate", 0.2, "seconds each note is held")
	flag.Float64Var(&o.tail, "tail", 2, "seconds rendered after the last note-off")
	flag.IntVar(&o.rate, "rate", 48000, "sample rate in Hz")
	flag.IntVar(&o.bits, "bits", 16, "output bit depth (16 or 24)")
	flag.StringVar(&o.mode, "mode", "", "override performance mode (hq or eco)")
	flag.Uint64Var(&o.seed, "seed", 1, "random seed for granular, delay and reverb")
	flag.StringVar(&o.out, "out", "synth.wav", "output WAV path")
	flag.StringVar(&o.record, "record", "", "also capture the master bus with the recorder and write it here")
	flag.BoolVar(&o.verbose, "v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: synthrender [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Renders a note pattern through the synth engine into a WAV file.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(o, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(o options, logger *slog.Logger) error {
	slots, err := parseNotes(o.notes)
	if err != nil {
		return err
	}
	events := schedule(slots, o.step, o.gate, o.chord)

	if !strings.EqualFold(o.preset, "all") {
		preset, err := synth.PresetByName(o.preset)
		if err != nil {
			return err
		}
		return renderPreset(o, preset, o.out, events, logger)
	}

	if o.record != "" {
		return errors.New("-record needs a single preset")
	}
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, preset := range synth.Presets() {
		path := presetPath(o.out, preset.Name)
		g.Go(func() error {
			return renderPreset(o, preset, path, events, logger)
		})
	}
	return g.Wait()
}

// presetPath derives "pad-soft-pad.wav" style names from base "pad.wav".
func presetPath(base, preset string) string {
	ext := filepath.Ext(base)
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(preset), " ", "-"))
	return strings.TrimSuffix(base, ext) + "-" + slug + ext
}

func renderPreset(o options, preset synth.Preset, path string, events []event, logger *slog.Logger) error {
	params := preset.Params
	if o.mode != "" {
		m, err := synth.ParsePerformanceMode(o.mode)
		if err != nil {
			return err
		}
		params.Mode = m
	}

	e, err := engine.New(
		engine.WithSampleRate(float64(o.rate)),
		engine.WithSeed(o.seed),
		engine.WithLogger(logger),
		engine.WithInitialParameters(params),
	)
	if err != nil {
		return err
	}
	defer e.Close()

	if o.record != "" {
		if err := e.StartRecording(); err != nil {
			return err
		}
	}

	total := int(math.Ceil((lastEvent(events) + o.tail) * float64(o.rate)))
	out, err := renderEvents(e, events, total)
	if err != nil {
		return err
	}

	if o.record != "" {
		tail, err := stopRecording(e)
		if err != nil {
			return err
		}
		out = append(out, tail...)
		take := e.Take()
		if take == nil {
			return errors.New("recorder produced no take")
		}
		if err := wavio.WriteFile(o.record, o.rate, o.bits, engine.Channels, take.Samples); err != nil {
			return err
		}
		logger.Info("wrote recording", "path", o.record, "duration", take.Duration().Round(time.Millisecond))
	}

	if err := wavio.WriteFile(path, o.rate, o.bits, engine.Channels, out); err != nil {
		return fmt.Errorf("%s: %w", preset.Name, err)
	}
	logger.Info("wrote render",
		"path", path,
		"preset", preset.Name,
		"events", len(events),
		"frames", len(out)/engine.Channels,
	)
	return nil
}

type event struct {
	at   float64 // seconds
	slot int
	on   bool
}

// parseNotes resolves names such as "C4,e3,F#4" to keyboard slots.
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
		return nil, errors.New("no notes given")
	}
	return slots, nil
}

// schedule returns note-on and note-off events ordered by time.
func schedule(slots []int, step, gate float64, chord bool) []event {
	events := make([]event, 0, 2*len(slots))
	for i, slot := range slots {
		start := float64(i) * step
		if chord {
			start = 0
		}
		events = append(events, event{at: start, slot: slot, on: true})
	}
	for i, slot := range slots {
		start := float64(i) * step
		if chord {
			start = 0
		}
		events = append(events, event{at: start + gate, slot: slot})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].at < events[j].at })
	return events
}

func lastEvent(events []event) float64 {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].at
}

// renderEvents pulls frames quantum by quantum and submits each event
// before the first quantum that starts at or after its time.
func renderEvents(e *engine.Engine, events []event, frames int) ([]float32, error) {
	block := e.BlockSize()
	out := make([]float32, 0, frames*engine.Channels)
	buf := make([]float32, block*engine.Channels)
	sr := e.SampleRate()

	next := 0
	for done := 0; done < frames; done += block {
		now := float64(done) / sr
		for next < len(events) && events[next].at <= now {
			ev := events[next]
			var err error
			if ev.on {
				err = e.NoteOn(ev.slot, synth.Keyboard[ev.slot].Frequency)
			} else {
				err = e.NoteOff(ev.slot)
			}
			if err != nil {
				return nil, err
			}
			next++
		}
		e.Render(buf)
		out = append(out, buf...)
	}
	return out, nil
}

// stopRecording keeps rendering until the recorder has assembled its take
// and returns the frames rendered meanwhile.
func stopRecording(e *engine.Engine) ([]float32, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- e.StopRecording(ctx) }()

	var tail []float32
	buf := make([]float32, e.BlockSize()*engine.Channels)
	for {
		select {
		case err := <-errc:
			return tail, err
		default:
			e.Render(buf)
			tail = append(tail, buf...)
			time.Sleep(time.Millisecond)
		}
	}
}
