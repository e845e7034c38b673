package notes

import (
	"fmt"
	"math"
)

// Note is the result of classifying a single frequency.
type Note struct {
	Class  PitchClass
	Octave int // Unbounded; only 0..7 have a ring.
	Cents  int // Deviation from the idealised frequency, rounded.
}

// Key returns the table key of the note. ok is false when the octave has no ring.
func (n Note) Key() (key Key, ok bool) {
	key = Key{Class: n.Class, Octave: n.Octave}
	return key, key.Valid()
}

func (n Note) String() string {
	return fmt.Sprintf("%s%d%+dc", n.Class, n.Octave, n.Cents)
}

// Classify maps a frequency in Hz to (pitch class, octave, cents).
//
// The nearest semitone is found relative to C0. When rounding the semitone
// offset within the octave lands on 12, the note wraps to C of the next
// octave. Frequencies <= 0 have no pitch and yield the zero Note; callers
// filter to the audible window before classifying.
func Classify(frequency float64) Note {
	if frequency <= 0 || math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return Note{}
	}

	semitones := 12 * math.Log2(frequency/referenceFrequencies[C])
	octave := int(math.Floor(semitones / 12))

	// Half-up rounding on the positive remainder within the octave.
	within := semitones - float64(octave)*12
	index := int(math.Floor(within + 0.5))
	if index >= NumPitchClasses {
		index = 0
		octave++
	}

	class := PitchClass(index)
	exact := ExactFrequency(class, octave)
	cents := int(math.Floor(1200*math.Log2(frequency/exact) + 0.5))

	return Note{Class: class, Octave: octave, Cents: cents}
}

// ExactFrequency returns the idealised frequency of a class at an octave.
func ExactFrequency(class PitchClass, octave int) float64 {
	return class.ReferenceFrequency() * math.Exp2(float64(octave))
}
