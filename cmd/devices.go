package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jake-scott/kasa-cloud/pkg/kasa"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the devices registered to the account",

	RunE: func(cmd *cobra.Command, args []string) error {
		return doDevices(cmd.Context(), cmd.OutOrStdout())
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkRequiredFlags("cloud.user", "cloud.password")
	},
}

func init() {
	devicesCmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")
	errPanic(viper.GetViper().BindPFlag("output", devicesCmd.Flags().Lookup("output")))

	rootCmd.AddCommand(devicesCmd)
}

type deviceRow struct {
	Alias    string        `json:"alias" yaml:"alias"`
	Model    string        `json:"model" yaml:"model"`
	Type     string        `json:"type" yaml:"type"`
	ID       string        `json:"id" yaml:"id"`
	Category kasa.Category `json:"category" yaml:"category"`
	Online   bool          `json:"online" yaml:"online"`
	Firmware string        `json:"firmware,omitempty" yaml:"firmware,omitempty"`
}

func newDeviceRow(info kasa.DeviceInfo) deviceRow {
	return deviceRow{
		Alias:    info.Alias,
		Model:    info.DeviceModel,
		Type:     info.DeviceType,
		ID:       info.DeviceID,
		Category: kasa.Resolve(info),
		Online:   info.Online(),
		Firmware: info.FwVer,
	}
}

func doDevices(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	session, err := login(ctx)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}

	devices, err := session.DeviceList(ctx)
	if err != nil {
		return errors.Wrap(err, "listing devices")
	}

	rows := make([]deviceRow, 0, len(devices))
	for _, info := range devices {
		rows = append(rows, newDeviceRow(info))
	}

	return writeRows(out, viper.GetString("output"), rows)
}

func writeRows(out io.Writer, format string, rows []deviceRow) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "    ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(rows)
	case "text", "":
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ALIAS\tMODEL\tCATEGORY\tONLINE\tID")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", r.Alias, r.Model, r.Category, r.Online, r.ID)
		}
		return w.Flush()
	}

	return errors.Errorf("unknown output format %q", format)
}
