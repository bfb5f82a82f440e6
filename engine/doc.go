// Package engine runs the synthesizer in real time.
//
// An Engine owns a voice manager and a processing Graph. Control calls
// (notes, parameter snapshots, recorder transport) may come from any
// goroutine; they are turned into commands that the render callback drains
// at the start of each quantum, so the callback never waits on a lock held
// by the control side. Heavy work such as impulse-response generation and
// voice construction happens on the caller's goroutine.
//
// Signal flow:
//
//	voices ─▶ granular ─▶ delay ─┬─▶ dry ──────────────┐
//	                             └─▶ reverb ─▶ wet ────┤
//	live input ─┬─▶ (send) ─▶ reverb                   │
//	            └──────────────────────────────────────┴─▶ compressor ─▶ master ─▶ out, analyser, recorder
//
// Recorder playback is mixed after the taps and never re-enters the graph.
package engine
