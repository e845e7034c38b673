package notes

import "math"

// Aggregation limits.
const (
	MinFrequency = 20.0    // Hz, lowest bin considered.
	MaxFrequency = 20000.0 // Hz, highest bin considered.
	NoiseFloor   = 0.01    // Bins at or below this magnitude are ignored.
	CentsWindow  = 50.0    // |cents| at which a bin's weight reaches zero.
)

// Aggregate folds one power-spectrum frame into a fresh AmplitudeMap.
func Aggregate(spectrum []float64, sampleRate float64) *AmplitudeMap {
	m := new(AmplitudeMap)
	AggregateInto(m, spectrum, sampleRate)
	return m
}

// AggregateInto resets dst and folds one power-spectrum frame into it.
// It performs no allocation and keeps no state between calls.
//
// Bin i sits at i*sampleRate/(2*len(spectrum)) Hz. Each surviving bin adds
// magnitude*(1 - |cents|/50) to its note key. The weight is deliberately
// not clamped: bins further than 50 cents from their note subtract.
func AggregateInto(dst *AmplitudeMap, spectrum []float64, sampleRate float64) {
	dst.Reset()
	if len(spectrum) == 0 || sampleRate <= 0 {
		return
	}

	binWidth := sampleRate / (2 * float64(len(spectrum)))
	for i, a := range spectrum {
		frequency := float64(i) * binWidth
		if frequency < MinFrequency || frequency > MaxFrequency {
			continue
		}
		if a <= NoiseFloor {
			continue
		}

		note := Classify(frequency)
		key, ok := note.Key()
		if !ok {
			continue
		}
		dst.Add(key, a*CentsWeight(note.Cents))
	}
}

// CentsWeight is the linear closeness weight for a cents deviation. It is 1
// on pitch, 0 at a quarter tone, and negative beyond.
func CentsWeight(cents int) float64 {
	return 1 - math.Abs(float64(cents))/CentsWindow
}
