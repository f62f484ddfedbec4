package cmd

import (
	"os"
	"time"

	"capstan/internal/config"
	"capstan/pkg/build"

	"github.com/spf13/cobra"
)

// Options is the parsed command line. Zero-valued override flags mean
// "use the config file"; the *Set booleans record which flags were
// given explicitly.
type Options struct {
	Command    string // "" (live), "devices", "pick", "render", "version"
	ConfigPath string
	Verbose    bool

	DeviceID      int
	SampleRate    float64
	BlockSize     int
	DeviceSet     bool
	SampleRateSet bool
	BlockSizeSet  bool

	// Render configuration.
	Duration   time.Duration
	OutputFile string
}

func ParseArgs() (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time audio graph engine",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = ""
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "devices"
		},
	}
	rootCmd.AddCommand(devicesCmd)

	pickCmd := &cobra.Command{
		Use:   "pick",
		Short: "Interactively pick an output device and sample rate",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "pick"
		},
	}
	rootCmd.AddCommand(pickCmd)

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render the configured graph offline to a WAV file",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "render"
		},
	}
	renderCmd.Flags().DurationVarP(&options.Duration, "duration", "t", 2*time.Second,
		"Length of audio to render")
	renderCmd.Flags().StringVarP(&options.OutputFile, "output", "o", "",
		"Output file name. Default is render-MM-DD-YYYY-HHMMSS.wav")
	rootCmd.AddCommand(renderCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "version"
		},
	}
	rootCmd.AddCommand(versionCmd)

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntVarP(&options.DeviceID, "device", "d", config.DefaultDeviceID,
		"Output device ID. Use 'devices' to see available devices.")
	rootCmd.PersistentFlags().Float64VarP(&options.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&options.BlockSize, "block", "b", config.DefaultBlockSize,
		"Frames per callback block (power of 2, affects latency)")

	// Configuration file and debug
	rootCmd.PersistentFlags().StringVarP(&options.ConfigPath, "config", "f", "",
		"Path to configuration file. Default searches capstan.yaml")
	rootCmd.PersistentFlags().BoolVarP(&options.Verbose, "verbose", "v", false,
		"Show verbose output")

	// Defaults
	if options.OutputFile == "" {
		options.OutputFile = "render-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	// Execute the CLI
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	flags := rootCmd.PersistentFlags()
	options.DeviceSet = flags.Changed("device")
	options.SampleRateSet = flags.Changed("sample-rate")
	options.BlockSizeSet = flags.Changed("block")

	return options, nil
}
