package cmd

import (
	"cmp"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"forma/internal/analysis"
	"forma/internal/audio"
	"forma/internal/config"
	"forma/internal/notes"
	"forma/internal/render"
	"forma/internal/session"
	"forma/internal/visual"
)

// dominantCounter tallies the dominant note of every analysed frame.
type dominantCounter struct {
	counts map[notes.Key]int
	silent int
}

func (d *dominantCounter) Observe(m *notes.AmplitudeMap) {
	best, ok := m.Dominant()
	if !ok {
		d.silent++
		return
	}
	d.counts[best.Key]++
}

type noteCount struct {
	key   notes.Key
	count int
}

// ranked returns the counted notes, most frequent first.
func (d *dominantCounter) ranked() []noteCount {
	out := make([]noteCount, 0, len(d.counts))
	for k, n := range d.counts {
		out = append(out, noteCount{k, n})
	}
	slices.SortFunc(out, func(a, b noteCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.key.Octave*notes.NumPitchClasses+int(a.key.Class),
			b.key.Octave*notes.NumPitchClasses+int(b.key.Class))
	})
	return out
}

// offlineResult describes one pass of a decoded file through the pipeline.
type offlineResult struct {
	pcm       *audio.PCM
	buffers   int
	frames    uint64
	counter   *dominantCounter
	session   *session.Session
	lastScene *visual.Scene
}

// runOffline decodes path and drives the session synchronously, advancing a
// simulated clock by one buffer per frame so animations play out as they would live.
func runOffline(cfg *config.Config, path string, surfaces ...visual.Surface) (*offlineResult, error) {
	pcm, err := audio.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if pcm.SampleRate <= 0 {
		return nil, fmt.Errorf("decoding %s: no sample rate", path)
	}

	window, err := analysis.ParseWindowFunc(cfg.Audio.FFTWindow)
	if err != nil {
		return nil, err
	}
	size := cfg.Audio.FramesPerBuffer
	spectrum, err := analysis.NewSpectrumProcessor(size, pcm.SampleRate, window)
	if err != nil {
		return nil, err
	}

	sess, err := session.New(session.Options{
		Layout:   cfg.Layout(),
		Animator: cfg.Animator(),
		Surfaces: surfaces,
	})
	if err != nil {
		return nil, err
	}

	res := &offlineResult{
		pcm:     pcm,
		counter: &dominantCounter{counts: make(map[notes.Key]int)},
		session: sess,
	}
	step := time.Duration(float64(size) / pcm.SampleRate * float64(time.Second))
	clock := time.Unix(0, 0).UTC()
	sink := analysis.FrameSinkFunc(func(m notes.AmplitudeMap) bool {
		sess.HandleFrame(&m, clock)
		clock = clock.Add(step)
		res.lastScene = sess.Advance(clock)
		return true
	})

	noteProc, err := analysis.NewNoteProcessor(spectrum, sink, res.counter)
	if err != nil {
		return nil, err
	}
	defer noteProc.Close()

	gate := audio.NewGate(cfg.Audio.GateThreshold)
	res.buffers = pcm.Feed(noteProc, size, &gate)
	res.frames, _ = noteProc.Stats()

	// Let the last transition settle.
	res.lastScene = sess.Advance(clock.Add(cfg.Visual.AnimationDuration))
	return res, nil
}

func newAnalyzeCommand(opts *options) *cobra.Command {
	var top int

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Report the dominant notes of a WAV or MP3 file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			res, err := runOffline(cfg, args[0])
			if err != nil {
				return err
			}
			writeSummary(cmd.OutOrStdout(), args[0], res, top)
			return nil
		},
	}
	analyzeCmd.Flags().IntVarP(&top, "top", "n", 10, "Number of notes to list")
	return analyzeCmd
}

func writeSummary(w io.Writer, path string, res *offlineResult, top int) {
	total := len(res.pcm.Samples)
	fmt.Fprintf(w, "File: %s\n", filepath.Base(path))
	fmt.Fprintf(w, "Sample rate: %s, duration %s (%s samples)\n",
		humanize.SIWithDigits(res.pcm.SampleRate, 1, "Hz"),
		time.Duration(res.pcm.Duration()*float64(time.Second)).Round(time.Millisecond),
		humanize.Comma(int64(total)))
	fmt.Fprintf(w, "Buffers analysed: %s, silent: %s\n",
		humanize.Comma(int64(res.frames)), humanize.Comma(int64(res.counter.silent)))

	ranked := res.counter.ranked()
	if len(ranked) == 0 {
		fmt.Fprintln(w, "No notes detected.")
		return
	}
	if top <= 0 || top > len(ranked) {
		top = len(ranked)
	}
	fmt.Fprintln(w, "Dominant notes:")
	for _, nc := range ranked[:top] {
		share := float64(nc.count) / float64(max(res.frames, 1)) * 100
		fmt.Fprintf(w, "  %-4s %6s frames  %5.1f%%  %s\n",
			nc.key, humanize.Comma(int64(nc.count)), share, strings.Repeat("█", int(share/5)))
	}

	a := res.session.Animator()
	fmt.Fprintf(w, "Trail: %d points, %s curve\n", len(a.History()), a.Render().Style)
}

func newSnapshotCommand(opts *options) *cobra.Command {
	var (
		output    string
		scale     float64
		noCaption bool
	)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot <file>",
		Short: "Render the visualisation of a WAV or MP3 file to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			r, err := render.NewRenderer(render.Options{Scale: scale, NoCaption: noCaption})
			if err != nil {
				return err
			}
			res, err := runOffline(cfg, args[0], r)
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])) + ".png"
			}
			if err := r.SavePNG(output, r.Last()); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s frames)\n", output, humanize.Comma(int64(res.frames)))
			return nil
		},
	}
	snapshotCmd.Flags().StringVar(&output, "out", "", "PNG file to write (default: <file>.png)")
	snapshotCmd.Flags().Float64Var(&scale, "scale", 1, "Pixels per scene unit")
	snapshotCmd.Flags().BoolVar(&noCaption, "no-caption", false, "Omit the caption")
	return snapshotCmd
}
