//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"sync"
	"syscall/js"

	"github.com/drew1981/DrewPolySynth/dsp/spectrum"
	"github.com/drew1981/DrewPolySynth/engine"
	"github.com/drew1981/DrewPolySynth/synth"
)

var (
	synthEngine *engine.Engine
	mic         = &jsInput{}
	funcs       []js.Func
	renderBuf   []float32
)

// jsInput receives microphone blocks pushed from an AudioWorklet.
type jsInput struct {
	mu      sync.Mutex
	deliver func([]float32)
	scratch []float32
}

func (in *jsInput) Open(_ float64, deliver func([]float32)) error {
	in.mu.Lock()
	in.deliver = deliver
	in.mu.Unlock()
	return nil
}

func (in *jsInput) Close() error {
	in.mu.Lock()
	in.deliver = nil
	in.mu.Unlock()
	return nil
}

func (in *jsInput) push(arr js.Value) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.deliver == nil {
		return
	}
	n := arr.Length()
	if cap(in.scratch) < n {
		in.scratch = make([]float32, n)
	}
	buf := in.scratch[:n]
	for i := range buf {
		buf[i] = float32(arr.Index(i).Float())
	}
	in.deliver(buf)
}

func main() {
	api := js.Global().Get("Object").New()
	api.Set("init", export(func(args []js.Value) any {
		sr := 48000.0
		if len(args) > 0 {
			sr = args[0].Float()
		}
		if synthEngine != nil {
			_ = synthEngine.Close()
		}
		e, err := engine.New(engine.WithSampleRate(sr), engine.WithInputDevice(mic))
		if err != nil {
			return err.Error()
		}
		synthEngine = e
		return js.Null()
	}))

	api.Set("updateParameters", export(func(args []js.Value) any {
		if synthEngine == nil || len(args) < 1 {
			return js.Null()
		}
		p := synthEngine.Parameters()
		if err := json.Unmarshal([]byte(args[0].String()), &p); err != nil {
			return err.Error()
		}
		if err := synthEngine.UpdateParameters(p); err != nil {
			return err.Error()
		}
		return js.Null()
	}))

	api.Set("loadPreset", export(func(args []js.Value) any {
		if synthEngine == nil || len(args) < 1 {
			return js.Null()
		}
		preset, err := synth.PresetByName(args[0].String())
		if err != nil {
			return err.Error()
		}
		if err := synthEngine.UpdateParameters(preset.Params); err != nil {
			return err.Error()
		}
		return js.Null()
	}))

	api.Set("noteOn", export(func(args []js.Value) any {
		if synthEngine == nil || len(args) < 1 {
			return js.Null()
		}
		slot := args[0].Int()
		if slot < 0 || slot >= len(synth.Keyboard) {
			return "slot out of range"
		}
		hz := synth.Keyboard[slot].Frequency
		if len(args) > 1 {
			hz = args[1].Float()
		}
		if err := synthEngine.NoteOn(slot, hz); err != nil {
			return err.Error()
		}
		return js.Null()
	}))

	api.Set("noteOff", export(func(args []js.Value) any {
		if synthEngine == nil || len(args) < 1 {
			return js.Null()
		}
		_ = synthEngine.NoteOff(args[0].Int())
		return js.Null()
	}))

	api.Set("setHold", export(func(args []js.Value) any {
		if synthEngine == nil || len(args) < 1 {
			return js.Null()
		}
		_ = synthEngine.SetHold(args[0].Bool())
		return js.Null()
	}))

	api.Set("render", export(func(args []js.Value) any {
		if synthEngine == nil || len(args) < 1 {
			return js.Global().Get("Float32Array").New(0)
		}
		n := args[0].Int()
		if cap(renderBuf) < n {
			renderBuf = make([]float32, n)
		}
		buf := renderBuf[:n]
		synthEngine.Render(buf)
		arr := js.Global().Get("Float32Array").New(n)
		for i := 0; i < n; i++ {
			arr.SetIndex(i, buf[i])
		}
		return arr
	}))

	api.Set("analysis", export(func(args []js.Value) any {
		if synthEngine == nil {
			return js.Global().Get("Uint8Array").New(0)
		}
		kind := spectrum.FrequencyDomain
		if len(args) > 0 && args[0].String() == "time" {
			kind = spectrum.TimeDomain
		}
		data := synthEngine.AnalysisSnapshot(kind)
		arr := js.Global().Get("Uint8Array").New(len(data))
		js.CopyBytesToJS(arr, data)
		return arr
	}))

	api.Set("initLiveInput", export(func(args []js.Value) any {
		if synthEngine == nil {
			return false
		}
		return synthEngine.InitLiveInput()
	}))

	api.Set("pushInput", export(func(args []js.Value) any {
		if len(args) > 0 {
			mic.push(args[0])
		}
		return js.Null()
	}))

	api.Set("setInputGain", export(func(args []js.Value) any {
		if synthEngine == nil || len(args) < 1 {
			return js.Null()
		}
		_ = synthEngine.SetInputGain(args[0].Float())
		return js.Null()
	}))

	api.Set("setInputFXSend", export(func(args []js.Value) any {
		if synthEngine == nil || len(args) < 1 {
			return js.Null()
		}
		_ = synthEngine.SetInputFXSend(args[0].Bool())
		return js.Null()
	}))

	api.Set("startRecording", export(func(args []js.Value) any {
		if synthEngine == nil {
			return js.Null()
		}
		if err := synthEngine.StartRecording(); err != nil {
			return err.Error()
		}
		return js.Null()
	}))

	// stopRecording returns a Promise; the take completes once render has
	// been called again.
	api.Set("stopRecording", export(func(args []js.Value) any {
		e := synthEngine
		handler := js.FuncOf(func(_ js.Value, p []js.Value) any {
			resolve, reject := p[0], p[1]
			go func() {
				if e == nil {
					resolve.Invoke(js.Null())
					return
				}
				if err := e.StopRecording(context.Background()); err != nil {
					reject.Invoke(err.Error())
					return
				}
				resolve.Invoke(e.Take().Duration().Seconds())
			}()
			return nil
		})
		defer handler.Release()
		return js.Global().Get("Promise").New(handler)
	}))

	api.Set("playRecording", export(func(args []js.Value) any {
		if synthEngine == nil {
			return js.Null()
		}
		loop := len(args) > 0 && args[0].Bool()
		_ = synthEngine.PlayRecording(loop)
		return js.Null()
	}))

	api.Set("stopPlayback", export(func(args []js.Value) any {
		if synthEngine != nil {
			_ = synthEngine.StopPlayback()
		}
		return js.Null()
	}))

	api.Set("clearRecording", export(func(args []js.Value) any {
		if synthEngine != nil {
			_ = synthEngine.ClearRecording()
		}
		return js.Null()
	}))

	js.Global().Set("DrewPolySynth", api)
	select {}
}

func export(fn func([]js.Value) any) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		return fn(args)
	})
	funcs = append(funcs, f)
	return f
}
