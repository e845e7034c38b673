package visual

// Visibility gates the whole scene. The zero value is shown.
type Visibility struct {
	hidden bool
	flips  uint64
}

// Toggle flips the state once and returns the new visibility.
func (v *Visibility) Toggle() bool {
	v.hidden = !v.hidden
	v.flips++
	return !v.hidden
}

// Visible reports whether the scene should be drawn.
func (v *Visibility) Visible() bool { return !v.hidden }

// Toggles counts how many signals have been applied.
func (v *Visibility) Toggles() uint64 { return v.flips }
