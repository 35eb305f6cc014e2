package cmd

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
	"github.com/jake-scott/kasa-cloud/pkg/kasa"
)

// cloudTransport, when set, replaces the live HTTP transport
var cloudTransport kasa.Transport

// proxyClient returns an HTTP client sending cloud traffic through a proxy
func proxyClient(proxy string) (*http.Client, error) {
	u, err := url.Parse(proxy)
	if err != nil {
		return nil, errors.Wrap(err, "parsing cloud proxy URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("cloud proxy %q is not an absolute URL", proxy)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyURL(u)

	return &http.Client{Transport: transport}, nil
}

func newTransport() (kasa.Transport, error) {
	if cloudTransport != nil {
		return cloudTransport, nil
	}

	t := kasa.NewLiveTransport().WithTimeout(viper.GetDuration("cloud.timeout"))
	if proxy := viper.GetString("cloud.proxy"); proxy != "" {
		client, err := proxyClient(proxy)
		if err != nil {
			return nil, err
		}
		t = t.WithHTTPClient(client)
	}
	if viper.GetBool("logging.log-requests") {
		t = t.WithLogRequests()
	}
	return t, nil
}

func configuredTerminalID() string {
	id := viper.GetString("cloud.terminal-id")
	if id != "" && !strfmt.IsUUID4(id) {
		logging.Logger(nil).Warnf("terminal id %q is not a UUID v4, the cloud may reject it", id)
	}
	return id
}

// login opens a session with the configured credentials
func login(ctx context.Context) (*kasa.Session, error) {
	transport, err := newTransport()
	if err != nil {
		return nil, err
	}

	cloud := kasa.NewCloud(transport).
		WithURL(viper.GetString("cloud.url")).
		WithTerminalID(configuredTerminalID())

	session, err := cloud.Login(ctx, viper.GetString("cloud.user"), viper.GetString("cloud.password"))
	if err != nil {
		return nil, err
	}

	logging.Logger(ctx).Debugf("logged in: %s", session)
	return session, nil
}
