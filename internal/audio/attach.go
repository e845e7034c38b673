// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// AttachState describes how the input stream was obtained.
type AttachState int

const (
	Unattached AttachState = iota
	Attached
	AttachedViaFallback
)

func (s AttachState) String() string {
	switch s {
	case Attached:
		return "attached"
	case AttachedViaFallback:
		return "attached via fallback"
	default:
		return "unattached"
	}
}

var (
	// ErrDeviceUnavailable marks device failures that justify trying the fallback.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	ErrNotAttached       = errors.New("no input stream attached")
)

// inputStream is the part of *portaudio.Stream the attacher drives.
type inputStream interface {
	Start() error
	Stop() error
	Close() error
}

// streamOpener opens, but does not start, a stream on deviceID.
type streamOpener func(deviceID int) (inputStream, error)

// Attacher connects the engine to one input device, retrying on a fallback device
// when the primary is unavailable. Other failures are returned as is.
type Attacher struct {
	mu     sync.Mutex
	open   streamOpener
	stream inputStream
	state  AttachState
	device int
}

func newAttacher(open streamOpener) *Attacher {
	return &Attacher{open: open}
}

// Attach opens and starts a stream on primary, or on fallback when primary is
// unavailable. Calling Attach while attached does nothing.
func (a *Attacher) Attach(primary, fallback int) (AttachState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != Unattached {
		return a.state, nil
	}

	err := a.start(primary)
	if err == nil {
		a.state, a.device = Attached, primary
		return a.state, nil
	}
	if !unavailable(err) || fallback == primary {
		return Unattached, err
	}

	logger.Warnf("Input device %d unavailable (%v), trying fallback %d", primary, err, fallback)
	if ferr := a.start(fallback); ferr != nil {
		return Unattached, fmt.Errorf("fallback device %d: %w", fallback, ferr)
	}
	a.state, a.device = AttachedViaFallback, fallback
	return a.state, nil
}

func (a *Attacher) start(deviceID int) error {
	stream, err := a.open(deviceID)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	a.stream = stream
	return nil
}

// Detach stops and closes the stream.
func (a *Attacher) Detach() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stream == nil {
		return ErrNotAttached
	}
	stream := a.stream
	a.stream, a.state = nil, Unattached

	if err := stream.Stop(); err != nil {
		stream.Close()
		return err
	}
	return stream.Close()
}

// State returns the attach state and the device in use.
func (a *Attacher) State() (AttachState, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, a.device
}

func unavailable(err error) bool {
	return errors.Is(err, ErrDeviceUnavailable) ||
		errors.Is(err, portaudio.DeviceUnavailable) ||
		errors.Is(err, portaudio.InvalidDevice)
}
