package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/kasa-cloud/internal/pkg/handlers"
	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
	"github.com/jake-scott/kasa-cloud/pkg/kasa"
	"github.com/jake-scott/kasa-cloud/pkg/middlewares"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the device list and command relay over HTTP",

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doServer(); err != nil {
			return err
		}

		return nil
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		required := []string{"cloud.user", "cloud.password"}
		if viper.GetString("https.cert") != "" || viper.GetString("https.key") != "" {
			required = append(required, "https.cert", "https.key")
		}
		return checkRequiredFlags(required...)
	},
}

func init() {
	serverCmd.Flags().Uint16("https-port", 4343, "listen port")
	serverCmd.Flags().String("tls-cert", "", "TLS certificate file (plain HTTP when unset)")
	serverCmd.Flags().String("tls-key", "", "TLS key file")
	serverCmd.Flags().Duration("graceful-timeout", time.Second*15, "duration to wait for server to finish, eg. 1m or 10s")
	serverCmd.Flags().Duration("read-timeout", time.Second*15, "duration to wait for request read, eg. 1m or 10s")
	serverCmd.Flags().Duration("write-timeout", time.Second*60, "duration to wait for request write, eg. 1m or 10s")
	serverCmd.Flags().StringSlice("cors-origins", nil, "origins allowed to call the API from a browser")
	serverCmd.Flags().Bool("log-requests", false, "log requests and responses (only in debug mode)")

	errPanic(viper.GetViper().BindPFlag("https.port", serverCmd.Flags().Lookup("https-port")))
	errPanic(viper.GetViper().BindPFlag("https.cert", serverCmd.Flags().Lookup("tls-cert")))
	errPanic(viper.GetViper().BindPFlag("https.key", serverCmd.Flags().Lookup("tls-key")))
	errPanic(viper.GetViper().BindPFlag("https.graceful-timeout", serverCmd.Flags().Lookup("graceful-timeout")))
	errPanic(viper.GetViper().BindPFlag("https.read-timeout", serverCmd.Flags().Lookup("read-timeout")))
	errPanic(viper.GetViper().BindPFlag("https.write-timeout", serverCmd.Flags().Lookup("write-timeout")))
	errPanic(viper.GetViper().BindPFlag("https.cors-origins", serverCmd.Flags().Lookup("cors-origins")))
	errPanic(viper.GetViper().BindPFlag("logging.log-requests", serverCmd.Flags().Lookup("log-requests")))

	rootCmd.AddCommand(serverCmd)
}

func checkRequiredFlags(needFlags ...string) error {
	missingFlags := []string{}

	for _, f := range needFlags {
		if !viper.IsSet(f) || viper.GetString(f) == "" {
			missingFlags = append(missingFlags, f)
		}
	}

	if len(missingFlags) > 0 {
		itemPlural := "item"
		if len(missingFlags) > 1 {
			itemPlural = "items"
		}
		return fmt.Errorf("required config %s `%s` not set", itemPlural, strings.Join(missingFlags, "`, `"))
	}

	return nil
}

// newRouter wires the device handler behind the request middlewares
func newRouter(session *kasa.Session, logRequests bool, corsOrigins []string) http.Handler {
	dh := handlers.NewDeviceHandler(session)

	r := mux.NewRouter()
	r.Use(middlewares.NewCorrelationMw(middlewares.DefaultCorrelationHeader))
	r.Use(middlewares.NewLoggingMw(logRequests))
	r.Use(middlewares.NewRecoveryMw())
	dh.Register(r)

	if len(corsOrigins) == 0 {
		return r
	}

	// Outermost so that preflight requests never reach the router
	return middlewares.NewCors(middlewares.CorsOptions(corsOrigins, logrus.IsLevelEnabled(logrus.DebugLevel)), r)
}

func doServer() error {
	wait := viper.GetDuration("https.graceful-timeout")
	port := viper.GetUint("https.port")
	certFile := viper.GetString("https.cert")
	keyFile := viper.GetString("https.key")

	var logRequests bool
	if viper.GetBool("logging.log-requests") {
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			logRequests = true
		} else {
			logging.Logger(nil).Warn("log-requests ignored when not in debug mode")
		}
	}

	session, err := login(context.Background())
	if err != nil {
		return errors.Wrap(err, "logging in")
	}

	s := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		ReadTimeout:  viper.GetDuration("https.read-timeout"),
		WriteTimeout: viper.GetDuration("https.write-timeout"),
		IdleTimeout:  time.Second * 60,
		Handler:      newRouter(session, logRequests, viper.GetStringSlice("https.cors-origins")),
	}

	logging.Logger(nil).Infof("Serving on port %d", port)
	go func() {
		var err error
		if certFile != "" {
			err = s.ListenAndServeTLS(certFile, keyFile)
		} else {
			logging.Logger(nil).Warn("no TLS certificate configured, serving plain HTTP")
			err = s.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logging.Logger(nil).WithError(err).Error("running server")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	// Block until we receive a signal
	<-c

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	logging.Logger(nil).Info("shutting down")
	if err := s.Shutdown(ctx); err != nil {
		logging.Logger(nil).WithError(err).Errorf("shutting down")
	}
	logging.Logger(nil).Info("exiting")
	return nil
}
