package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"forma/internal/audio"
	"forma/internal/tui"
)

func newListCommand() *cobra.Command {
	var pick bool

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !pick {
				devices, err := audio.GetDevices()
				if err != nil {
					return err
				}
				audio.ListDevices(cmd.OutOrStdout(), devices)
				return nil
			}

			choice, ok, err := tui.PickDevice(audio.GetDevices)
			if err != nil || !ok {
				return err
			}
			return writeDeviceSnippet(cmd, choice)
		},
	}
	listCmd.Flags().BoolVarP(&pick, "pick", "p", false,
		"Browse devices interactively and print the config for the chosen one")
	return listCmd
}

// writeDeviceSnippet prints the audio section a user can paste into config.yaml.
func writeDeviceSnippet(cmd *cobra.Command, choice tui.DeviceChoice) error {
	snippet := map[string]any{
		"audio": map[string]any{
			"input_device": choice.DeviceID,
			"sample_rate":  choice.SampleRate,
		},
	}
	out, err := yaml.Marshal(snippet)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", choice.Name, out)
	return nil
}
