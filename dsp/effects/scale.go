package effects

import (
	"fmt"
	"strings"
)

// Scale is a set of semitone offsets used to quantize delay pitch shifts.
type Scale int

const (
	Chromatic Scale = iota
	Major
	Minor
	Pentatonic
	WholeTone
)

var scaleNames = [...]string{"Chromatic", "Major", "Minor", "Pentatonic", "WholeTone"}

var scaleIntervals = [...][]int{
	Chromatic:  {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	Major:      {0, 2, 4, 5, 7, 9, 11},
	Minor:      {0, 2, 3, 5, 7, 8, 10},
	Pentatonic: {0, 3, 5, 7, 10},
	WholeTone:  {0, 2, 4, 6, 8, 10},
}

func (s Scale) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Scale(%d)", int(s))
	}
	return scaleNames[s]
}

// Valid reports whether s names a known scale.
func (s Scale) Valid() bool { return s >= Chromatic && s <= WholeTone }

// Intervals returns the semitone offsets of s within one octave. The
// returned slice is shared and must not be modified.
func (s Scale) Intervals() []int {
	if !s.Valid() {
		return scaleIntervals[Chromatic]
	}
	return scaleIntervals[s]
}

// Contains reports whether semitones, folded into one octave, belongs to s.
func (s Scale) Contains(semitones int) bool {
	pc := ((semitones % 12) + 12) % 12
	for _, iv := range s.Intervals() {
		if iv == pc {
			return true
		}
	}
	return false
}

// ParseScale converts a scale name into a Scale.
func ParseScale(name string) (Scale, error) {
	for i, n := range scaleNames {
		if strings.EqualFold(name, n) {
			return Scale(i), nil
		}
	}
	return Major, fmt.Errorf("effects: unknown scale %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Scale) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid %s", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scale) UnmarshalText(text []byte) error {
	v, err := ParseScale(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Key is a musical root pitch class.
type Key int

const (
	KeyC Key = iota
	KeyCSharp
	KeyD
	KeyDSharp
	KeyE
	KeyF
	KeyFSharp
	KeyG
	KeyGSharp
	KeyA
	KeyASharp
	KeyB
)

var keyNames = [...]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func (k Key) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Key(%d)", int(k))
	}
	return keyNames[k]
}

// Valid reports whether k is one of the twelve pitch classes.
func (k Key) Valid() bool { return k >= KeyC && k <= KeyB }

// ParseKey converts a pitch-class name such as "F#" into a Key.
func ParseKey(name string) (Key, error) {
	for i, n := range keyNames {
		if strings.EqualFold(name, n) {
			return Key(i), nil
		}
	}
	return KeyC, fmt.Errorf("effects: unknown key %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid %s", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	v, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
