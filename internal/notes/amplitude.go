package notes

import (
	"fmt"
	"math"
	"sort"
)

// Key identifies one ring position: a pitch class at an octave.
type Key struct {
	Class  PitchClass `json:"class"`
	Octave int        `json:"octave"`
}

// Valid reports whether the key addresses a cell of the 12x8 table.
func (k Key) Valid() bool {
	return k.Class.Valid() && k.Octave >= 0 && k.Octave <= MaxOctave
}

func (k Key) String() string {
	return fmt.Sprintf("%s%d", k.Class, k.Octave)
}

// index orders keys octave-major, then chromatic. This is also the order
// in which an ascending-frequency sweep first meets each key.
func (k Key) index() int {
	return k.Octave*NumPitchClasses + int(k.Class)
}

func keyAt(i int) Key {
	return Key{Class: PitchClass(i % NumPitchClasses), Octave: i / NumPitchClasses}
}

// TableSize is the number of cells in an AmplitudeMap.
const TableSize = NumPitchClasses * NumOctaves

// Entry is one populated cell of an AmplitudeMap.
type Entry struct {
	Key    Key
	Weight float64
}

// AmplitudeMap accumulates weighted amplitude per note key for one frame.
// The zero value is an empty map ready for use.
type AmplitudeMap struct {
	weights [TableSize]float64
	present [TableSize]bool
	count   int
}

// Reset empties the map in place.
func (m *AmplitudeMap) Reset() {
	*m = AmplitudeMap{}
}

// Add accumulates v into key. Keys outside the table are ignored and
// reported as false.
func (m *AmplitudeMap) Add(key Key, v float64) bool {
	if !key.Valid() {
		return false
	}
	i := key.index()
	if !m.present[i] {
		m.present[i] = true
		m.count++
	}
	m.weights[i] += v
	return true
}

// Weight returns the accumulated weight for key and whether it has an entry.
func (m *AmplitudeMap) Weight(key Key) (float64, bool) {
	if !key.Valid() {
		return 0, false
	}
	i := key.index()
	return m.weights[i], m.present[i]
}

// Len returns the number of populated keys.
func (m *AmplitudeMap) Len() int { return m.count }

// Each calls fn for every populated key in key order.
func (m *AmplitudeMap) Each(fn func(Entry)) {
	for i := range TableSize {
		if m.present[i] {
			fn(Entry{Key: keyAt(i), Weight: m.weights[i]})
		}
	}
}

// Entries returns populated keys sorted by weight, descending. Equal
// weights keep key order.
func (m *AmplitudeMap) Entries() []Entry {
	entries := make([]Entry, 0, m.count)
	m.Each(func(e Entry) { entries = append(entries, e) })
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Weight > entries[j].Weight
	})
	return entries
}

// Dominant returns the strongest entry without allocating. The first key
// in key order wins a tie. ok is false for an empty map.
func (m *AmplitudeMap) Dominant() (best Entry, ok bool) {
	for i := range TableSize {
		if !m.present[i] {
			continue
		}
		if !ok || m.weights[i] > best.Weight {
			best = Entry{Key: keyAt(i), Weight: m.weights[i]}
			ok = true
		}
	}
	return best, ok
}

// Table copies the weights into dst in key order (octave-major). Missing
// keys read as zero. dst must hold TableSize values.
func (m *AmplitudeMap) Table(dst []float64) error {
	if len(dst) != TableSize {
		return fmt.Errorf("destination slice length %d does not match table size %d", len(dst), TableSize)
	}
	copy(dst, m.weights[:])
	return nil
}

// CopyTable copies the weights into dst in key order. Missing keys read as zero.
func (m *AmplitudeMap) CopyTable(dst *[TableSize]float64) {
	*dst = m.weights
}

// OctaveEnergy sums the weights of every class on one ring.
func (m *AmplitudeMap) OctaveEnergy(octave int) float64 {
	if octave < 0 || octave > MaxOctave {
		return 0
	}
	var sum float64
	for _, w := range m.weights[octave*NumPitchClasses : (octave+1)*NumPitchClasses] {
		sum += w
	}
	return sum
}

// RingLevels returns every ring's energy multiplied by scale and clamped to
// [0, 1]. Negative sums, possible with off-pitch bins, read as 0.
func (m *AmplitudeMap) RingLevels(scale float64) [NumOctaves]float64 {
	var out [NumOctaves]float64
	for octave := range NumOctaves {
		out[octave] = math.Max(0, math.Min(1, m.OctaveEnergy(octave)*scale))
	}
	return out
}
