// Command presetinfo prints the built-in synth presets.
//
// Usage:
//
//	presetinfo [flags] [preset-name ...]
//
// Without arguments it prints every preset.
//
// Examples:
//
//	presetinfo
//	presetinfo "soft pad"
//	presetinfo -json "granular cloud"
//	presetinfo -keys
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/drew1981/DrewPolySynth/synth"
)

func main() {
	asJSON := flag.Bool("json", false, "print presets as JSON parameter snapshots")
	list := flag.Bool("list", false, "list preset names")
	keys := flag.Bool("keys", false, "print the keyboard layout instead of presets")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: presetinfo [flags] [preset-name ...]\n\n")
		fmt.Fprintf(os.Stderr, "Prints the parameters of the built-in presets.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  presetinfo\n")
		fmt.Fprintf(os.Stderr, "  presetinfo -json \"soft pad\"\n")
		fmt.Fprintf(os.Stderr, "  presetinfo -keys\n")
	}
	flag.Parse()

	switch {
	case *list:
		for _, p := range synth.Presets() {
			fmt.Println(p.Name)
		}
		return
	case *keys:
		printKeyboard()
		return
	}

	presets := resolvePresets(flag.Args())
	if len(presets) == 0 {
		fmt.Fprintf(os.Stderr, "error: no matching presets\n")
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		for _, p := range presets {
			if err := enc.Encode(p); err != nil {
				fmt.Fprintf(os.Stderr, "error: encode %s: %v\n", p.Name, err)
				os.Exit(1)
			}
		}
		return
	}

	printTable(presets)
}

func resolvePresets(names []string) []synth.Preset {
	if len(names) == 0 {
		return synth.Presets()
	}
	var result []synth.Preset
	for _, name := range names {
		p, err := synth.PresetByName(strings.TrimSpace(name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: unknown preset %q (use -list to see available)\n", name)
			continue
		}
		result = append(result, p)
	}
	return result
}

func printTable(presets []synth.Preset) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "Preset\tMode\tWave\tFilter\tCutoff [Hz]\tRes\tA/D/S/R\tLFO\tGranular\tDelay\tReverb\tGain\n"); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to write output header: %v\n", err)
		return
	}
	if _, err := fmt.Fprintf(tw, "------\t----\t----\t------\t-----------\t---\t-------\t---\t--------\t-----\t------\t----\n"); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to write output header: %v\n", err)
		return
	}

	for _, preset := range presets {
		p := preset.Params
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.0f\t%.1f\t%.2f/%.2f/%.2f/%.2f\t%s\t%s\t%s\t%s\t%.2f\n",
			preset.Name,
			p.Mode,
			p.Oscillator.Waveform,
			p.Filter.Type,
			p.Filter.Cutoff,
			p.Filter.Resonance,
			p.Envelope.Attack, p.Envelope.Decay, p.Envelope.Sustain, p.Envelope.Release,
			lfoLabel(p.LFO),
			granularLabel(p.Granular),
			delayLabel(p.Delay),
			fmt.Sprintf("%s %.0f%%", p.Master.ReverbType, p.Master.ReverbMix*100),
			p.Master.Gain,
		); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error: failed to write output row: %v\n", err)
			return
		}
	}
	if err := tw.Flush(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}

func lfoLabel(l synth.LFOParams) string {
	if l.Rate == 0 || l.Depth == 0 {
		return "off"
	}
	return fmt.Sprintf("%s %.1fHz x%.0f", l.Target, l.Rate, l.Depth)
}

func granularLabel(g synth.GranularParams) string {
	if !g.Enabled {
		return "off"
	}
	return fmt.Sprintf("mix %.0f%% size %.0fms", g.Mix*100, g.GrainSize*1000)
}

func delayLabel(d synth.DelayParams) string {
	if !d.Enabled {
		return "off"
	}
	return fmt.Sprintf("%.0fms %s %s rnd %.0f%%", d.Time*1000, d.RootKey, d.Scale, d.PitchRandom*100)
}

func printKeyboard() {
	keyFor := make(map[int]rune, len(synth.KeyMap))
	for r, slot := range synth.KeyMap {
		keyFor[slot] = r
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Slot\tNote\tFrequency [Hz]\tKey\n")
	for i, n := range synth.Keyboard {
		key := ""
		if r, ok := keyFor[i]; ok {
			key = string(r)
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\n", i, n, n.Frequency, key)
	}
	if err := tw.Flush(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}
