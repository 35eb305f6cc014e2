package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "kasa-cloud",
	Short: "Control TP-Link Kasa devices through the vendor cloud",
	Long: `kasa-cloud logs in to the TP-Link Kasa cloud, lists the devices
registered to the account and relays commands to them.  It can also poll
the devices and publish their state, or serve the device list over HTTP.`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Configure(viper.GetViper())
	},
}

// Execute runs the root command, exiting non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func errPanic(err error) {
	if err != nil {
		panic(err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	viper.SetDefault("cloud.timeout", 15*time.Second)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.kasa-cloud.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("log-location", "stderr", "log to stdout, stderr or a file")
	pf.String("user", "", "Kasa cloud account e-mail address")
	pf.String("password", "", "Kasa cloud account password")
	pf.String("terminal-id", "", "client terminal UUID (default is a new UUID per login)")
	pf.String("cloud-url", "", "Kasa cloud base URL")
	pf.String("cloud-proxy", "", "HTTP proxy URL for cloud requests")
	pf.Duration("cloud-timeout", 15*time.Second, "maximum duration of a cloud call, eg. 1m or 10s")

	errPanic(viper.GetViper().BindPFlag("logging.level", pf.Lookup("log-level")))
	errPanic(viper.GetViper().BindPFlag("logging.format", pf.Lookup("log-format")))
	errPanic(viper.GetViper().BindPFlag("logging.location", pf.Lookup("log-location")))
	errPanic(viper.GetViper().BindPFlag("cloud.user", pf.Lookup("user")))
	errPanic(viper.GetViper().BindPFlag("cloud.password", pf.Lookup("password")))
	errPanic(viper.GetViper().BindPFlag("cloud.terminal-id", pf.Lookup("terminal-id")))
	errPanic(viper.GetViper().BindPFlag("cloud.url", pf.Lookup("cloud-url")))
	errPanic(viper.GetViper().BindPFlag("cloud.proxy", pf.Lookup("cloud-proxy")))
	errPanic(viper.GetViper().BindPFlag("cloud.timeout", pf.Lookup("cloud-timeout")))
}

// initConfig reads in the config file and KASA_* environment variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".kasa-cloud")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("KASA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			fmt.Fprintf(os.Stderr, "reading config: %s\n", err)
			os.Exit(1)
		}
	} else {
		logging.Logger(nil).Debugf("using config file %s", viper.ConfigFileUsed())
	}
}
