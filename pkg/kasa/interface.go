// Package kasa is a client for the TP-Link Kasa cloud: it logs in, lists the
// account's devices and relays vendor commands to them through the cloud.
package kasa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Request is one request/response exchange with the cloud.
type Request struct {
	Method  string
	URL     string
	Query   url.Values
	Body    interface{}
	Headers http.Header
}

// Transport performs a single exchange and returns the raw JSON reply body.
// Network level failures are returned as errors; the core hands them back to
// its caller unchanged.
type Transport interface {
	Do(ctx context.Context, req *Request) ([]byte, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) ([]byte, error)

func (f TransportFunc) Do(ctx context.Context, req *Request) ([]byte, error) {
	return f(ctx, req)
}

// Device is a handle on one registered device, bound to the session that
// resolved it.
type Device interface {
	Info() DeviceInfo
	Category() Category
	Passthrough(ctx context.Context, command interface{}) (json.RawMessage, error)
	SysInfo(ctx context.Context) (*SysInfo, error)
}
