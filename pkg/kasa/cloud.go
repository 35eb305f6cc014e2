package kasa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
)

const (
	// DefaultURL is the cloud endpoint for login and device listing.
	DefaultURL = "https://wap.tplinkcloud.com"

	appName   = "Kasa_Android"
	appVer    = "1.4.4.607"
	appOSPF   = "Android+6.0.1"
	appNet    = "wifi"
	appLocale = "es_ES"

	// The cloud only accepts logins that look like the vendor's Android app.
	userAgent = "Dalvik/2.1.0 (Linux; U; Android 6.0.1; A0001 Build/M4B30X)"
)

// Cloud holds the settings used to open a Session.
type Cloud struct {
	transport  Transport
	url        string
	terminalID string
}

func NewCloud(t Transport) *Cloud {
	return &Cloud{
		transport: t,
		url:       DefaultURL,
	}
}

// WithURL overrides the cloud base URL; an empty URL keeps the default.
func (c *Cloud) WithURL(u string) *Cloud {
	nc := *c
	if u != "" {
		nc.url = u
	}
	return &nc
}

// WithTerminalID sets the identifier of this client installation. When unset
// or empty, every Login generates a fresh random UUID v4.
func (c *Cloud) WithTerminalID(id string) *Cloud {
	nc := *c
	nc.terminalID = id
	return &nc
}

// Login is shorthand for NewCloud(t).WithTerminalID(terminalID).Login(...).
func Login(ctx context.Context, t Transport, user, password, terminalID string) (*Session, error) {
	return NewCloud(t).WithTerminalID(terminalID).Login(ctx, user, password)
}

func appParams(terminalID string) url.Values {
	return url.Values{
		"appName": {appName},
		"termID":  {terminalID},
		"appVer":  {appVer},
		"ospf":    {appOSPF},
		"netType": {appNet},
		"locale":  {appLocale},
	}
}

// Login authenticates against the cloud and returns a Session bound to the
// returned token. A rejected login fails with *AuthError; transport failures
// are returned unchanged.
func (c *Cloud) Login(ctx context.Context, user, password string) (*Session, error) {
	if user == "" {
		return nil, errors.Wrap(ErrMissingCredential, "missing required user parameter")
	}
	if password == "" {
		return nil, errors.Wrap(ErrMissingCredential, "missing required password parameter")
	}

	terminalID := c.terminalID
	if terminalID == "" {
		terminalID = uuid.New().String()
	}

	req := &Request{
		Method: http.MethodPost,
		URL:    c.url,
		Query:  appParams(terminalID),
		Body: request{
			Method: methodLogin,
			Params: loginParams{
				AppType:       appName,
				CloudUserName: user,
				CloudPassword: password,
				TerminalUUID:  terminalID,
			},
		},
		Headers: http.Header{
			"User-Agent": {userAgent},
		},
	}

	logging.Logger(ctx).Debugf("logging in to %s as %s (terminal %s)", c.url, user, terminalID)

	data, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := DecodeResponse(data)
	if err != nil {
		return nil, err
	}

	result, err := CheckError(methodLogin, resp)
	if err != nil {
		var cloudErr *CloudError
		if errors.As(err, &cloudErr) {
			return nil, &AuthError{CloudError: cloudErr}
		}
		return nil, err
	}

	var lr loginResult
	if err := json.Unmarshal(result, &lr); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "decoding login result: %s", err)
	}
	if lr.Token == "" {
		return nil, errors.Wrap(ErrMalformedResponse, "login result carried no token")
	}

	return newSession(c.transport, c.url, lr.Token, terminalID), nil
}
