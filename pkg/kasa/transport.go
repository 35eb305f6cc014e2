package kasa

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
)

// maximum accepted reply body, 4MB
const maxResponseSize = 4 << 20

// Live is the HTTP Transport used against the real cloud.
type Live struct {
	httpClient  *http.Client
	timeout     time.Duration
	logRequests bool
}

func NewLiveTransport() *Live {
	return &Live{
		httpClient: http.DefaultClient,
	}
}

func (t *Live) WithTimeout(d time.Duration) *Live {
	nt := *t
	nt.timeout = d
	return &nt
}

func (t *Live) WithHTTPClient(c *http.Client) *Live {
	nt := *t
	nt.httpClient = c
	return &nt
}

// WithLogRequests logs request and reply bodies at debug level. Login bodies
// carry the cloud password, so only enable this for troubleshooting.
func (t *Live) WithLogRequests() *Live {
	nt := *t
	nt.logRequests = true
	return &nt
}

func (t *Live) makeContext(parent context.Context) (context.Context, context.CancelFunc) {
	var ctx = parent
	var cancel context.CancelFunc = func() {}
	if t.timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, t.timeout)
	}

	return ctx, cancel
}

func (t *Live) Do(ctx context.Context, req *Request) ([]byte, error) {
	ctxLogger := logging.Logger(ctx)

	ctx, cancel := t.makeContext(ctx)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		if t.logRequests {
			ctxLogger.Debugf("request body: %s", data)
		}
		body = bytes.NewReader(data)
	}

	u := req.URL
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}

	for k, v := range req.Headers {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	ctxLogger.Debugf("sending %s request to %s", method, req.URL)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "executing %s request to %s", method, req.URL)
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}

	if t.logRequests {
		ctxLogger.Debugf("response (HTTP %d): %s", resp.StatusCode, data)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("non-200 code from %s: %d (%s): %s", req.URL, resp.StatusCode, resp.Status, data)
	}

	return data, nil
}
