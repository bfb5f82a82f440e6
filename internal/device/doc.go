// Package device connects the engine to sound hardware: an oto/v3 output
// player that pulls from the engine's render callback and a PortAudio
// capture stream usable as the engine's live input.
package device
