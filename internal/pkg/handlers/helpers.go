package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	oaerrors "github.com/go-openapi/errors"
	"github.com/go-openapi/runtime/middleware/header"
	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
	"github.com/jake-scott/kasa-cloud/pkg/kasa"
)

// For request validation routines
var formats strfmt.Registry

func init() {
	// Default validators
	formats = strfmt.NewFormats()
}

const maxBodyBytes = 100 * 1024

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Header.Get("Content-Type") != "" {
		value, _ := header.ParseValueAndParams(r.Header, "Content-Type")
		if value != "application/json" {
			return oaerrors.New(http.StatusUnsupportedMediaType, "expected JSON request, got %s", value)
		}
	}

	reader := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(reader)

	if err := dec.Decode(dst); err != nil {
		return oaerrors.New(http.StatusBadRequest, "unable to parse JSON: %s", err)
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return oaerrors.New(http.StatusBadRequest, "request body must only contain a single JSON object")
	}

	return nil
}

func sendJSONResponse(w http.ResponseWriter, r *http.Request, d interface{}) {
	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	if err := enc.Encode(d); err != nil {
		logging.Logger(r.Context()).WithError(err).Error("sending json response")
	}
}

// sendError maps client errors onto HTTP status codes and writes them as a
// JSON {code, message} body.
func sendError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	if apiErr.Code() >= http.StatusInternalServerError {
		logging.Logger(r.Context()).WithError(err).Error("handling device request")
	} else {
		logging.Logger(r.Context()).WithError(err).Info("rejecting device request")
	}

	oaerrors.ServeError(w, r, apiErr)
}

func toAPIError(err error) oaerrors.Error {
	var (
		apiErr    oaerrors.Error
		deviceErr *kasa.DeviceError
	)

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, kasa.ErrUnknownAlias):
		return oaerrors.NotFound("%s", err)
	case errors.Is(err, kasa.ErrMissingParameter), errors.Is(err, kasa.ErrInvalidParameterType):
		return oaerrors.New(http.StatusBadRequest, "%s", err)
	case kasa.IsAuthError(err):
		return oaerrors.New(http.StatusBadGateway, "cloud rejected credentials: %s", err)
	case errors.As(err, &deviceErr):
		return oaerrors.New(http.StatusBadGateway, "device error: %s", err)
	case errors.Is(err, context.DeadlineExceeded):
		return oaerrors.New(http.StatusGatewayTimeout, "cloud request timed out")
	}

	if _, ok := kasa.IsCloudError(err); ok {
		return oaerrors.New(http.StatusBadGateway, "%s", err)
	}
	if errors.Is(err, kasa.ErrMalformedResponse) {
		return oaerrors.New(http.StatusBadGateway, "%s", err)
	}

	return oaerrors.New(http.StatusInternalServerError, "%s", http.StatusText(http.StatusInternalServerError))
}
