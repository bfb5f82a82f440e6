package engine

import "github.com/drew1981/DrewPolySynth/synth"

type commandKind uint8

const (
	cmdNoteOn commandKind = iota + 1
	cmdNoteOff
	cmdHold
	cmdParams
	cmdDispose
	cmdInputGain
	cmdInputSend
	cmdCaptureStart
	cmdCaptureStop
	cmdPlay
	cmdStopPlayback
)

// command is a control request applied by the render callback at the
// start of a quantum.
type command struct {
	kind   commandKind
	slot   int
	flag   bool
	value  float64
	voice  *synth.Voice
	params synth.Snapshot
	dirty  synth.Dirty
	take   *Take
	signal chan struct{}
}

// commandQueueSize bounds the commands waiting for the next quantum.
// Senders block once it is full.
const commandQueueSize = 1024
