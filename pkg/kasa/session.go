package kasa

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
)

// Session is an authenticated connection to the cloud. It is meant for one
// logical caller at a time: overlapping DeviceList calls each replace the
// catalog snapshot and the last reply to arrive wins.
type Session struct {
	transport  Transport
	url        string
	token      string
	terminalID string

	// holds a Catalog
	catalog atomic.Value
}

func newSession(t Transport, u, token, terminalID string) *Session {
	s := &Session{
		transport:  t,
		url:        u,
		token:      token,
		terminalID: terminalID,
	}
	s.catalog.Store(Catalog{})
	return s
}

// NewSession wraps a token obtained elsewhere, eg. from an earlier Login in
// the same process.
func NewSession(t Transport, u, token, terminalID string) *Session {
	if u == "" {
		u = DefaultURL
	}
	return newSession(t, u, token, terminalID)
}

func hashOf(s string) string {
	sum := sha1.Sum([]byte(s))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// obfuscate the token when stringified
func (s *Session) String() string {
	return fmt.Sprintf("URL [%s] terminalID [%s] token [%s] devices [%d]",
		s.url, s.terminalID, hashOf(s.token), s.Catalog().Len())
}

func (s *Session) Token() string {
	return s.token
}

func (s *Session) TerminalID() string {
	return s.terminalID
}

// Catalog returns the device list snapshot from the most recent DeviceList
// call. It is empty until DeviceList has succeeded once.
func (s *Session) Catalog() Catalog {
	return s.catalog.Load().(Catalog)
}

// call sends one enveloped request authorised by the session token and
// returns the validated result. Transport errors are returned unchanged.
func (s *Session) call(ctx context.Context, u string, method string, params interface{}) (json.RawMessage, error) {
	if u == "" {
		u = s.url
	}

	req := &Request{
		Method: http.MethodPost,
		URL:    u,
		Query:  url.Values{"token": {s.token}},
		Body: request{
			Method: method,
			Params: params,
		},
	}

	data, err := s.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := DecodeResponse(data)
	if err != nil {
		return nil, err
	}

	result, err := CheckError(method, resp)
	if err != nil {
		logging.Logger(ctx).Debugf("%s: cloud returned error code %d (%s)", method, resp.ErrorCode, resp.Message)
		return nil, err
	}

	return result, nil
}

// DeviceList fetches the account's device list, replaces the cached catalog
// with it and returns the entries in the order received.
func (s *Session) DeviceList(ctx context.Context) ([]DeviceInfo, error) {
	result, err := s.call(ctx, s.url, methodGetDeviceList, nil)
	if err != nil {
		return nil, err
	}

	var dl deviceListResult
	if len(result) > 0 {
		if err := json.Unmarshal(result, &dl); err != nil {
			return nil, errors.Wrapf(ErrMalformedResponse, "decoding device list: %s", err)
		}
	}

	catalog := NewCatalog(dl.DeviceList)
	s.catalog.Store(catalog)

	logging.Logger(ctx).Debugf("device list refreshed: %d devices", catalog.Len())

	return catalog.Devices(), nil
}

// passthrough relays a vendor command tree to one device and returns the
// device's decoded reply.
func (s *Session) passthrough(ctx context.Context, info DeviceInfo, command interface{}) (json.RawMessage, error) {
	requestData, err := json.Marshal(command)
	if err != nil {
		return nil, errors.Wrap(err, "encoding device command")
	}

	params := passthroughParams{
		DeviceID:    info.DeviceID,
		RequestData: string(requestData),
	}

	logging.Logger(ctx).Debugf("relaying to %s (%s): %s", info.Alias, info.DeviceID, requestData)

	result, err := s.call(ctx, info.AppServerURL, methodPassthrough, params)
	if err != nil {
		return nil, err
	}

	var pr passthroughResult
	if err := json.Unmarshal(result, &pr); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "decoding passthrough result: %s", err)
	}

	if pr.ResponseData == "" {
		return json.RawMessage("{}"), nil
	}

	if !json.Valid([]byte(pr.ResponseData)) {
		return nil, errors.Wrapf(ErrMalformedResponse, "device reply is not JSON: %q", pr.ResponseData)
	}

	return json.RawMessage(pr.ResponseData), nil
}
