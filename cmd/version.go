package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/kasa-cloud/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the version number of kasa-cloud",

	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := versionString(viper.GetBool("json"))
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "Return version as JSON")
	errPanic(viper.GetViper().BindPFlag("json", versionCmd.Flags().Lookup("json")))

	rootCmd.AddCommand(versionCmd)
}

type versionResult struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

func versionString(asJSON bool) (string, error) {
	if !asJSON {
		return fmt.Sprintf("kasa-cloud version %s (%s)", version.Version, runtime.Version()), nil
	}

	b, err := json.MarshalIndent(versionResult{
		Version:   version.Version,
		GoVersion: runtime.Version(),
	}, "", "    ")
	if err != nil {
		return "", err
	}

	return string(b), nil
}
