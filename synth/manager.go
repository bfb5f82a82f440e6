package synth

// MaxReleasing bounds the number of voices rendering their release tail.
const MaxReleasing = 64

type slotVoice struct {
	slot  int
	voice *Voice
}

// slotRing keeps sounding voices in note-on order. Index 0 is the oldest.
type slotRing struct {
	buf  [HQMaxVoices]slotVoice
	head int
	n    int
}

func (r *slotRing) at(i int) *slotVoice { return &r.buf[(r.head+i)%len(r.buf)] }

func (r *slotRing) push(e slotVoice) {
	*r.at(r.n) = e
	r.n++
}

func (r *slotRing) find(slot int) int {
	for i := range r.n {
		if r.at(i).slot == slot {
			return i
		}
	}
	return -1
}

// remove deletes entry i, keeping the order of the rest.
func (r *slotRing) remove(i int) slotVoice {
	e := *r.at(i)
	if i == 0 {
		*r.at(0) = slotVoice{}
		r.head = (r.head + 1) % len(r.buf)
		r.n--
		return e
	}
	for k := i; k < r.n-1; k++ {
		*r.at(k) = *r.at(k + 1)
	}
	r.n--
	*r.at(r.n) = slotVoice{}
	return e
}

type releasingVoice struct {
	voice    *Voice
	disposed bool
}

// Manager owns the sounding voices of one engine. All methods must be
// called from the render thread.
type Manager struct {
	sampleRate float64
	maxVoices  int

	active slotRing

	hold  bool
	held  [HQMaxVoices]int
	nHeld int

	releasing  [MaxReleasing]releasingVoice
	nReleasing int

	steals uint64

	// OnRelease is called when a voice enters its release tail. It runs on
	// the render thread and must not block.
	OnRelease func(v *Voice)
}

// NewManager returns a manager allowing maxVoices sounding voices, which
// renders at sampleRate.
func NewManager(sampleRate float64, maxVoices int) *Manager {
	return &Manager{sampleRate: sampleRate, maxVoices: clampPolyphony(maxVoices)}
}

// Polyphony returns the current ceiling.
func (m *Manager) Polyphony() int { return m.maxVoices }

// SetPolyphony changes the ceiling. Excess voices are released oldest
// first.
func (m *Manager) SetPolyphony(n int, t float64) {
	m.maxVoices = clampPolyphony(n)
	for m.active.n > m.maxVoices {
		m.steal(t)
	}
}

// Sounding returns the number of voices in the active map.
func (m *Manager) Sounding() int { return m.active.n }

// Releasing returns the number of voices rendering their release tail.
func (m *Manager) Releasing() int { return m.nReleasing }

// Steals counts voices evicted by the polyphony ceiling.
func (m *Manager) Steals() uint64 { return m.steals }

// Hold reports whether note-offs are deferred.
func (m *Manager) Hold() bool { return m.hold }

// Held returns the number of slots whose note-off is being deferred.
func (m *Manager) Held() int { return m.nHeld }

// Slots returns the sounding slots, oldest first.
func (m *Manager) Slots() []int {
	out := make([]int, m.active.n)
	for i := range out {
		out[i] = m.active.at(i).slot
	}
	return out
}

// Voice returns the sounding voice at slot, or nil.
func (m *Manager) Voice(slot int) *Voice {
	if i := m.active.find(slot); i >= 0 {
		return m.active.at(i).voice
	}
	return nil
}

// NoteOn installs v at slot. At the ceiling the oldest voice is released
// first, even when slot itself is sounding; a voice still sounding at slot
// after that is faded out and replaced.
func (m *Manager) NoteOn(slot int, v *Voice, t float64) {
	if v == nil {
		return
	}
	for m.active.n >= m.maxVoices {
		m.steal(t)
	}
	if i := m.active.find(slot); i >= 0 {
		old := m.active.remove(i)
		m.unhold(slot)
		old.voice.ForceStop(t)
		m.retire(old.voice, t)
	}
	m.active.push(slotVoice{slot: slot, voice: v})
}

// NoteOff releases the voice at slot, or defers the release while hold is
// on. Unknown slots are ignored.
func (m *Manager) NoteOff(slot int, t float64) {
	i := m.active.find(slot)
	if i < 0 {
		return
	}
	if m.hold {
		if !m.isHeld(slot) {
			m.held[m.nHeld] = slot
			m.nHeld++
		}
		return
	}
	m.release(i, t)
}

// SetHold toggles hold. Turning it off releases every held note.
func (m *Manager) SetHold(enabled bool, t float64) {
	m.hold = enabled
	if enabled {
		return
	}
	for m.nHeld > 0 {
		slot := m.held[m.nHeld-1]
		m.nHeld--
		if i := m.active.find(slot); i >= 0 {
			m.release(i, t)
		}
	}
}

// AllNotesOff releases every sounding voice and clears the held set.
func (m *Manager) AllNotesOff(t float64) {
	m.nHeld = 0
	for m.active.n > 0 {
		m.release(0, t)
	}
}

// UpdateParameters forwards live edits to every sounding voice.
func (m *Manager) UpdateParameters(p Snapshot, t float64) {
	for i := range m.active.n {
		m.active.at(i).voice.UpdateParameters(p, t)
	}
}

// Dispose drops v from the release list once it has finished at t. A voice
// that is still sounding is dropped as soon as it finishes.
func (m *Manager) Dispose(v *Voice, t float64) {
	for i := range m.nReleasing {
		r := &m.releasing[i]
		if r.voice != v {
			continue
		}
		if v.Done(t) {
			m.dropReleasing(i)
		} else {
			r.disposed = true
		}
		return
	}
}

// Render adds all voices into dst for the block starting at start.
func (m *Manager) Render(dst []float64, start float64) {
	for i := range m.active.n {
		m.active.at(i).voice.Render(dst, start)
	}

	end := start + float64(len(dst))/m.sampleRate
	for i := 0; i < m.nReleasing; {
		r := &m.releasing[i]
		r.voice.Render(dst, start)
		if r.disposed && r.voice.Done(end) {
			m.dropReleasing(i)
			continue
		}
		i++
	}
}

func (m *Manager) steal(t float64) {
	if m.active.n == 0 {
		return
	}
	m.steals++
	m.release(0, t)
}

func (m *Manager) release(i int, t float64) {
	e := m.active.remove(i)
	m.unhold(e.slot)
	e.voice.Stop(t)
	m.retire(e.voice, t)
}

// retire moves a stopped voice to the release list.
func (m *Manager) retire(v *Voice, t float64) {
	if m.nReleasing == len(m.releasing) {
		m.reap(t)
	}
	if m.nReleasing == len(m.releasing) {
		m.dropReleasing(0)
	}
	m.releasing[m.nReleasing] = releasingVoice{voice: v}
	m.nReleasing++
	if m.OnRelease != nil {
		m.OnRelease(v)
	}
}

// reap drops voices that are done by t.
func (m *Manager) reap(t float64) {
	for i := 0; i < m.nReleasing; {
		if m.releasing[i].voice.Done(t) {
			m.dropReleasing(i)
			continue
		}
		i++
	}
}

func (m *Manager) dropReleasing(i int) {
	copy(m.releasing[i:m.nReleasing], m.releasing[i+1:m.nReleasing])
	m.nReleasing--
	m.releasing[m.nReleasing] = releasingVoice{}
}

func (m *Manager) isHeld(slot int) bool {
	for i := range m.nHeld {
		if m.held[i] == slot {
			return true
		}
	}
	return false
}

func (m *Manager) unhold(slot int) {
	for i := range m.nHeld {
		if m.held[i] == slot {
			m.nHeld--
			m.held[i] = m.held[m.nHeld]
			return
		}
	}
}

func clampPolyphony(n int) int {
	return max(1, min(n, HQMaxVoices))
}
