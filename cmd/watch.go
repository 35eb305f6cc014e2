package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
	"github.com/jake-scott/kasa-cloud/internal/pkg/poller"
	"github.com/jake-scott/kasa-cloud/internal/pkg/sinks"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll every device and publish its state",

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doWatch(); err != nil {
			return err
		}

		return nil
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		required := []string{"cloud.user", "cloud.password"}
		if viper.GetBool("mqtt.enabled") {
			required = append(required, "mqtt.broker")
		}
		if viper.GetBool("influxdb.enabled") {
			required = append(required, "influxdb.url", "influxdb.org", "influxdb.bucket")
		}
		return checkRequiredFlags(required...)
	},
}

func init() {
	watchCmd.Flags().Duration("interval", time.Minute, "time between polls, eg. 1m or 30s")
	watchCmd.Flags().Int("concurrency", 4, "maximum number of devices queried at once")
	watchCmd.Flags().Bool("mqtt", false, "publish readings to an MQTT broker")
	watchCmd.Flags().String("mqtt-broker", "", "MQTT broker URL, eg. tcp://localhost:1883")
	watchCmd.Flags().String("mqtt-topic-prefix", "kasa", "prefix of the per-device state topics")
	watchCmd.Flags().Bool("influxdb", false, "write readings to InfluxDB")
	watchCmd.Flags().String("influxdb-url", "", "InfluxDB server URL")
	watchCmd.Flags().String("influxdb-bucket", "", "InfluxDB bucket")
	watchCmd.Flags().String("influxdb-org", "", "InfluxDB organisation")

	errPanic(viper.GetViper().BindPFlag("watch.interval", watchCmd.Flags().Lookup("interval")))
	errPanic(viper.GetViper().BindPFlag("watch.concurrency", watchCmd.Flags().Lookup("concurrency")))
	errPanic(viper.GetViper().BindPFlag("mqtt.enabled", watchCmd.Flags().Lookup("mqtt")))
	errPanic(viper.GetViper().BindPFlag("mqtt.broker", watchCmd.Flags().Lookup("mqtt-broker")))
	errPanic(viper.GetViper().BindPFlag("mqtt.topic-prefix", watchCmd.Flags().Lookup("mqtt-topic-prefix")))
	errPanic(viper.GetViper().BindPFlag("influxdb.enabled", watchCmd.Flags().Lookup("influxdb")))
	errPanic(viper.GetViper().BindPFlag("influxdb.url", watchCmd.Flags().Lookup("influxdb-url")))
	errPanic(viper.GetViper().BindPFlag("influxdb.bucket", watchCmd.Flags().Lookup("influxdb-bucket")))
	errPanic(viper.GetViper().BindPFlag("influxdb.org", watchCmd.Flags().Lookup("influxdb-org")))

	viper.SetDefault("mqtt.client-id", "kasa-cloud")
	viper.SetDefault("mqtt.qos", 0)
	viper.SetDefault("mqtt.retained", true)

	rootCmd.AddCommand(watchCmd)
}

// buildSinks returns the log sink plus the sinks enabled in the config
func buildSinks(cfg *viper.Viper) (sinks.Sink, error) {
	all := sinks.Multi{sinks.NewLog()}

	if cfg.GetBool("mqtt.enabled") {
		m, err := sinks.ConnectMQTT(sinks.MQTTConfig{
			Broker:      cfg.GetString("mqtt.broker"),
			ClientID:    cfg.GetString("mqtt.client-id"),
			Username:    cfg.GetString("mqtt.username"),
			Password:    cfg.GetString("mqtt.password"),
			TopicPrefix: cfg.GetString("mqtt.topic-prefix"),
			QoS:         byte(cfg.GetUint("mqtt.qos")),
			Retained:    cfg.GetBool("mqtt.retained"),
		})
		if err != nil {
			return nil, errors.Wrap(err, "connecting to MQTT broker")
		}
		all = append(all, m)
	}

	if cfg.GetBool("influxdb.enabled") {
		all = append(all, sinks.NewInflux(sinks.InfluxConfig{
			URL:    cfg.GetString("influxdb.url"),
			Token:  cfg.GetString("influxdb.token"),
			Org:    cfg.GetString("influxdb.org"),
			Bucket: cfg.GetString("influxdb.bucket"),
		}))
	}

	return all, nil
}

func doWatch() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := login(ctx)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}

	sink, err := buildSinks(viper.GetViper())
	if err != nil {
		return err
	}
	defer sink.Close()

	p := poller.New(session, sink).
		WithInterval(viper.GetDuration("watch.interval")).
		WithConcurrency(viper.GetInt("watch.concurrency"))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		logging.Logger(nil).Info("shutting down")
		cancel()
	}()

	logging.Logger(nil).Infof("polling devices every %s", viper.GetDuration("watch.interval"))
	return p.Run(ctx)
}
