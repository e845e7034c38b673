// SPDX-License-Identifier: MIT
/*
Package notes maps frequencies onto the chromatic scale and folds power
spectra into per-note amplitude tables.

The pitch-class tables are fixed: every class has one reference frequency
at octave 0 and one angular position on the ring. The angles follow a
fifths-like walk around the circle, not chromatic order, so neighbouring
semitones land far apart on screen.
*/
package notes

import "strings"

// PitchClass is one of the 12 chromatic note names, independent of octave.
type PitchClass uint8

const (
	C PitchClass = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

// Table dimensions.
const (
	NumPitchClasses = 12
	NumOctaves      = 8 // Octaves 0..7 each own a ring.
	MaxOctave       = NumOctaves - 1
)

var pitchNames = [NumPitchClasses]string{
	C: "C", CSharp: "C#", D: "D", DSharp: "D#", E: "E", F: "F",
	FSharp: "F#", G: "G", GSharp: "G#", A: "A", ASharp: "A#", B: "B",
}

// pitchAngles holds the ring position of each class in degrees.
var pitchAngles = [NumPitchClasses]float64{
	C: 0, CSharp: 210, D: 60, DSharp: 270, E: 120, F: 330,
	FSharp: 180, G: 30, GSharp: 240, A: 90, ASharp: 300, B: 150,
}

// referenceFrequencies are the octave-0 frequencies (Hz), C0 = 16.35.
var referenceFrequencies = [NumPitchClasses]float64{
	C: 16.35, CSharp: 17.32, D: 18.35, DSharp: 19.45, E: 20.6, F: 21.83,
	FSharp: 23.12, G: 24.5, GSharp: 25.96, A: 27.5, ASharp: 29.14, B: 30.87,
}

// PitchClasses returns all classes in chromatic order.
func PitchClasses() [NumPitchClasses]PitchClass {
	var out [NumPitchClasses]PitchClass
	for i := range out {
		out[i] = PitchClass(i)
	}
	return out
}

func (p PitchClass) Valid() bool { return p < NumPitchClasses }

func (p PitchClass) String() string {
	if !p.Valid() {
		return "?"
	}
	return pitchNames[p]
}

// Angle returns the fixed ring position of the class in degrees, [0, 360).
func (p PitchClass) Angle() float64 {
	if !p.Valid() {
		return 0
	}
	return pitchAngles[p]
}

// ReferenceFrequency returns the idealised frequency of the class at octave 0.
func (p PitchClass) ReferenceFrequency() float64 {
	if !p.Valid() {
		return 0
	}
	return referenceFrequencies[p]
}

// ParsePitchClass converts a note name ("C", "f#", "A#") to a PitchClass.
func ParsePitchClass(name string) (PitchClass, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range pitchNames {
		if n == upper {
			return PitchClass(i), true
		}
	}
	return 0, false
}
