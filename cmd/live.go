package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"forma/internal/analysis"
	"forma/internal/audio"
	"forma/internal/config"
	applog "forma/internal/log"
	"forma/internal/session"
	"forma/internal/transport"
	"forma/internal/transport/udp"
	"forma/internal/tui"
	"forma/internal/visual"
	"forma/pkg/build"
)

var logger = applog.Named("Main")

// outputs are the surfaces and analysis observers built from the transport and
// visual sections of the config.
type outputs struct {
	surfaces  []visual.Surface
	observers []analysis.FrameObserver
	closers   []io.Closer
	ws        *transport.WebSocketTransport
	term      *tui.Surface
}

func (o *outputs) Close() error {
	var errs []error
	for i := len(o.closers) - 1; i >= 0; i-- {
		errs = append(errs, o.closers[i].Close())
	}
	return errors.Join(errs...)
}

func buildOutputs(cfg *config.Config) (*outputs, error) {
	o := &outputs{}
	tc := cfg.Transport

	if tc.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(tc.WebSocketAddress)
		o.closers = append(o.closers, ws)
		if err := ws.Start(); err != nil {
			o.Close()
			return nil, fmt.Errorf("starting WebSocket transport: %w", err)
		}
		o.ws = ws
		o.surfaces = append(o.surfaces, ws)
		o.observers = append(o.observers,
			analysis.NewRingEnergyProcessor(ws, cfg.Audio.FramesPerBuffer, tc.RingEnergyInterval))
	}

	if tc.UDPEnabled {
		sender, err := udp.NewUDPSender(tc.UDPTargetAddress)
		if err != nil {
			o.Close()
			return nil, fmt.Errorf("creating UDP sender: %w", err)
		}
		pub, err := udp.NewUDPPublisher(tc.UDPSendInterval, sender)
		if err != nil {
			sender.Close()
			o.Close()
			return nil, err
		}
		pub.Start()
		o.closers = append(o.closers, pub)
		o.surfaces = append(o.surfaces, pub)
	}

	if cfg.Debug {
		lt := transport.NewLoggingTransport()
		o.closers = append(o.closers, lt)
		o.surfaces = append(o.surfaces, lt)
	}

	if cfg.Visual.TUI {
		o.term = &tui.Surface{}
		o.surfaces = append(o.surfaces, o.term)
	}
	return o, nil
}

// forwardControls applies WebSocket control messages to the session until ctx ends.
func forwardControls(ctx context.Context, controls <-chan transport.Control, sess *session.Session) {
	for {
		select {
		case c := <-controls:
			var err error
			switch c.Type {
			case transport.ControlToggle:
				err = sess.RequestToggle()
			case transport.ControlResize:
				err = sess.RequestResize(c.Width, c.Height)
			}
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// runLive captures from the configured device until interrupted or, with the
// terminal UI, until the user quits.
func runLive(cmd *cobra.Command, cfg *config.Config, opts *options) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Visual.TUI || opts.logFile != "" {
		restore, err := redirectLogs(opts.logFile)
		if err != nil {
			return err
		}
		defer restore()
	}

	window, err := analysis.ParseWindowFunc(cfg.Audio.FFTWindow)
	if err != nil {
		return err
	}
	spectrum, err := analysis.NewSpectrumProcessor(cfg.Audio.FramesPerBuffer, cfg.Audio.SampleRate, window)
	if err != nil {
		return err
	}

	out, err := buildOutputs(cfg)
	if err != nil {
		return err
	}
	defer out.Close()

	sess, err := session.New(session.Options{
		Layout:        cfg.Layout(),
		Animator:      cfg.Animator(),
		FrameInterval: cfg.FrameInterval(),
		Surfaces:      out.surfaces,
	})
	if err != nil {
		return err
	}
	noteProc, err := analysis.NewNoteProcessor(spectrum, sess, out.observers...)
	if err != nil {
		return err
	}
	defer noteProc.Close()

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	engine, err := audio.NewEngine(cfg, noteProc)
	if err != nil {
		return err
	}

	sess.Start()
	defer sess.Stop()
	if out.ws != nil {
		go forwardControls(ctx, out.ws.Controls(), sess)
	}

	state, err := engine.Start()
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Errorf("Error closing audio engine: %v", err)
		}
		frames, dropped := noteProc.Stats()
		logger.Infof("Analysed %d frames, %d dropped, %d gated", frames, dropped, engine.Gated())
	}()

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(""); err != nil {
			return err
		}
	}

	if out.term == nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s running (input %s). Press Ctrl+C to stop.\n",
			build.Current().Name, state)
		<-ctx.Done()
		return nil
	}

	p := tui.NewProgram(sess, build.Current().Name, out.term)
	go func() {
		p.Send(tui.StatusMsg("input " + state.String()))
		<-ctx.Done()
		p.Quit()
	}()
	_, err = p.Run()
	return err
}
