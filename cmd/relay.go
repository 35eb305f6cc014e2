package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
)

var relayCmd = &cobra.Command{
	Use:   "relay <alias> <command-json>",
	Short: "Send a raw command to a device and print its reply",
	Example: `  kasa-cloud relay "Living Room" '{"system":{"get_sysinfo":{}}}'
  kasa-cloud relay Kettle '{"system":{"set_relay_state":{"state":1}}}'`,
	Args: cobra.ExactArgs(2),

	RunE: func(cmd *cobra.Command, args []string) error {
		return doRelay(cmd.Context(), cmd.OutOrStdout(), args[0], args[1])
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkRequiredFlags("cloud.user", "cloud.password")
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)
}

func doRelay(ctx context.Context, out io.Writer, alias string, command string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if !json.Valid([]byte(command)) {
		return errors.Errorf("command is not valid JSON: %s", command)
	}

	session, err := login(ctx)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}

	if _, err := session.DeviceList(ctx); err != nil {
		return errors.Wrap(err, "listing devices")
	}

	device, err := session.NewDevice(alias)
	if err != nil {
		return err
	}

	ctx = logging.WithDevice(ctx, alias)
	reply, err := device.Passthrough(ctx, json.RawMessage(command))
	if err != nil {
		return errors.Wrapf(err, "relaying to %s", alias)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, reply, "", "    "); err != nil {
		return errors.Wrap(err, "formatting reply")
	}

	_, err = fmt.Fprintln(out, pretty.String())
	return err
}
