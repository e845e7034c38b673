// Package cmd wires forma's cobra commands to the capture, analysis and
// visualisation packages.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"forma/internal/config"
	applog "forma/internal/log"
	"forma/pkg/build"
)

// options holds flag values that override the loaded configuration.
type options struct {
	configPath      string
	device          int
	fallbackDevice  int
	sampleRate      float64
	framesPerBuffer int
	channels        int
	lowLatency      bool
	record          bool
	outputDir       string
	verbose         bool
	noTUI           bool
	udp             bool
	websocket       bool
	logFile         string
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree. Running it without a subcommand starts
// the live visualisation.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{})
}

func newRootCommand(opts *options) *cobra.Command {
	info := build.Current()

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         "Turns live audio into a radial note visualisation",
		Version:       info.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runLive(cmd, cfg, opts)
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Capture audio and draw the visualisation (default)",
		Args:  cobra.NoArgs,
		RunE:  rootCmd.RunE,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "",
		"Path to a YAML config file (default: config.yaml or forma.yaml in the working directory)")
	flags.IntVarP(&opts.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	flags.IntVar(&opts.fallbackDevice, "fallback-device", config.DefaultFallbackID,
		"Device used when the input device is unavailable")
	flags.IntVarP(&opts.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to capture; analysis uses the first")
	flags.Float64VarP(&opts.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&opts.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (analysis window, power of two)")
	flags.BoolVarP(&opts.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")
	flags.BoolVarP(&opts.record, "record", "r", false,
		"Record audio from the input device to WAV")
	flags.StringVarP(&opts.outputDir, "output-dir", "o", "",
		"Directory for recordings")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output")
	flags.BoolVar(&opts.noTUI, "no-tui", false,
		"Do not draw in the terminal")
	flags.BoolVar(&opts.udp, "udp", false,
		"Publish the amplitude table over UDP")
	flags.BoolVar(&opts.websocket, "ws", false,
		"Serve scenes over WebSocket")
	flags.StringVar(&opts.logFile, "log-file", "",
		"Write logs to this file (logs are discarded while the terminal UI runs otherwise)")

	rootCmd.AddCommand(
		runCmd,
		newListCommand(),
		newAnalyzeCommand(opts),
		newSnapshotCommand(opts),
		newVersionCommand(info),
	)
	return rootCmd
}

func newVersionCommand(info build.Info) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
		},
	}
}

// loadConfig reads the config file, applies changed flags and validates the
// result. The log level is set as a side effect.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Audio.InputDevice = opts.device
	}
	if flags.Changed("fallback-device") {
		cfg.Audio.FallbackDevice = opts.fallbackDevice
	}
	if flags.Changed("channels") {
		cfg.Audio.InputChannels = opts.channels
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate = opts.sampleRate
	}
	if flags.Changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = opts.framesPerBuffer
	}
	if flags.Changed("low-latency") {
		cfg.Audio.LowLatency = opts.lowLatency
	}
	if flags.Changed("record") {
		cfg.Recording.Enabled = opts.record
	}
	if flags.Changed("output-dir") {
		cfg.Recording.OutputDir = opts.outputDir
	}
	if opts.verbose {
		cfg.Debug = true
	}
	if opts.noTUI {
		cfg.Visual.TUI = false
	}
	if opts.udp {
		cfg.Transport.UDPEnabled = true
	}
	if opts.websocket {
		cfg.Transport.WebSocketEnabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	applog.SetLevel(cfg.Level())
	return cfg, nil
}

// redirectLogs points the logger at path, or discards output when path is empty.
// The returned function restores stderr.
func redirectLogs(path string) (restore func(), err error) {
	if path == "" {
		applog.SetOutput(io.Discard)
		return func() { applog.SetOutput(os.Stderr) }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	applog.SetOutput(f)
	return func() {
		applog.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
