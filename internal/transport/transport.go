// Package transport moves scenes and summaries out of the process and control
// messages back in.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"

	"forma/internal/visual"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// ControlType names an inbound control message.
type ControlType string

const (
	ControlToggle ControlType = "toggle" // Flip scene visibility.
	ControlResize ControlType = "resize" // New surface size.
)

// Control is a message from a remote client, e.g. {"type":"resize","width":800,"height":450}.
type Control struct {
	Type   ControlType `json:"type"`
	Width  float64     `json:"width,omitempty"`
	Height float64     `json:"height,omitempty"`
}

var ErrInvalidControl = errors.New("invalid control message")

// ParseControl decodes and validates one control message.
func ParseControl(data []byte) (Control, error) {
	var c Control
	if err := json.Unmarshal(data, &c); err != nil {
		return Control{}, fmt.Errorf("%w: %v", ErrInvalidControl, err)
	}
	switch c.Type {
	case ControlToggle:
		return Control{Type: ControlToggle}, nil
	case ControlResize:
		if c.Width < 0 || c.Height < 0 {
			return Control{}, fmt.Errorf("%w: negative size %gx%g", ErrInvalidControl, c.Width, c.Height)
		}
		return c, nil
	default:
		return Control{}, fmt.Errorf("%w: unknown type %q", ErrInvalidControl, c.Type)
	}
}

// Surface sends every scene through a transport.
type Surface struct {
	T Transport
}

var _ visual.Surface = Surface{}

func (s Surface) Draw(scene *visual.Scene) error {
	return s.T.Send(scene)
}
