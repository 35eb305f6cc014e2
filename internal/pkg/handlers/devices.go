package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	oaerrors "github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/go-openapi/validate"
	"github.com/gorilla/mux"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
	"github.com/jake-scott/kasa-cloud/pkg/kasa"
)

// DeviceView is a catalog entry as served over HTTP.
type DeviceView struct {
	kasa.DeviceInfo
	Category kasa.Category `json:"category"`
	Online   bool          `json:"online"`
}

func newDeviceView(info kasa.DeviceInfo) DeviceView {
	return DeviceView{
		DeviceInfo: info,
		Category:   kasa.Resolve(info),
		Online:     info.Online(),
	}
}

// DeviceStatus is a single device with its live sysinfo.
type DeviceStatus struct {
	Device  DeviceView    `json:"device"`
	SysInfo *kasa.SysInfo `json:"sysinfo"`
}

// RelayRequest is either a complete vendor command tree, or a single module
// method with optional parameters.
type RelayRequest struct {
	Command json.RawMessage `json:"command,omitempty"`
	Module  *string         `json:"module,omitempty"`
	Method  *string         `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Validate checks that the request names something to relay.
func (req *RelayRequest) Validate(formats strfmt.Registry) error {
	if len(req.Command) > 0 {
		var tree map[string]map[string]json.RawMessage
		if err := json.Unmarshal(req.Command, &tree); err != nil || len(tree) == 0 {
			return oaerrors.InvalidType("command", "body", "module/method object", string(req.Command))
		}
		return nil
	}

	var res []error
	if err := validate.RequiredString("module", "body", swag.StringValue(req.Module)); err != nil {
		res = append(res, err)
	}
	if err := validate.RequiredString("method", "body", swag.StringValue(req.Method)); err != nil {
		res = append(res, err)
	}
	if len(res) > 0 {
		return oaerrors.CompositeValidationError(res...)
	}

	return nil
}

// Tree returns the command tree to relay.
func (req *RelayRequest) Tree() json.RawMessage {
	if len(req.Command) > 0 {
		return req.Command
	}

	params := req.Params
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}

	tree, _ := json.Marshal(map[string]map[string]json.RawMessage{
		swag.StringValue(req.Module): {swag.StringValue(req.Method): params},
	})
	return tree
}

// DeviceHandler serves the catalog of one logged-in session and relays
// commands to its devices.
type DeviceHandler struct {
	session *kasa.Session

	// serialises catalog refreshes from concurrent requests
	refresh sync.Mutex
	fetched bool
}

func NewDeviceHandler(session *kasa.Session) *DeviceHandler {
	return &DeviceHandler{
		session: session,
	}
}

// Register adds the device routes to a router.
func (h *DeviceHandler) Register(r *mux.Router) {
	r.HandleFunc("/devices", h.ListDevices).Methods(http.MethodGet)
	r.HandleFunc("/devices/{alias}", h.GetDevice).Methods(http.MethodGet)
	r.HandleFunc("/devices/{alias}/relay", h.Relay).Methods(http.MethodPost)
}

func (h *DeviceHandler) refreshCatalog(r *http.Request) error {
	h.refresh.Lock()
	defer h.refresh.Unlock()

	return h.refreshLocked(r)
}

func (h *DeviceHandler) refreshLocked(r *http.Request) error {
	if _, err := h.session.DeviceList(r.Context()); err != nil {
		return err
	}
	h.fetched = true
	return nil
}

// ensureCatalog fetches the catalog unless a previous request already did.
func (h *DeviceHandler) ensureCatalog(r *http.Request) error {
	h.refresh.Lock()
	defer h.refresh.Unlock()

	if h.fetched {
		return nil
	}
	return h.refreshLocked(r)
}

// device resolves the alias in the path, fetching the catalog first if it
// has never been fetched.
func (h *DeviceHandler) device(r *http.Request) (kasa.Device, error) {
	if err := h.ensureCatalog(r); err != nil {
		return nil, err
	}

	alias := mux.Vars(r)["alias"]
	return h.session.NewDevice(alias)
}

// ListDevices refreshes the catalog and returns every entry.
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	if err := h.refreshCatalog(r); err != nil {
		sendError(w, r, err)
		return
	}

	devices := h.session.Catalog().Devices()
	views := make([]DeviceView, 0, len(devices))
	for _, info := range devices {
		views = append(views, newDeviceView(info))
	}

	logging.Logger(r.Context()).Debugf("listing %d devices", len(views))
	sendJSONResponse(w, r, views)
}

// GetDevice returns one catalog entry with its current sysinfo.
func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := h.device(r)
	if err != nil {
		sendError(w, r, err)
		return
	}

	ctx := logging.WithDevice(r.Context(), d.Info().Alias)
	si, err := d.SysInfo(ctx)
	if err != nil {
		sendError(w, r, err)
		return
	}

	sendJSONResponse(w, r, DeviceStatus{
		Device:  newDeviceView(d.Info()),
		SysInfo: si,
	})
}

// Relay passes a vendor command through to the device and returns its reply
// as is.
func (h *DeviceHandler) Relay(w http.ResponseWriter, r *http.Request) {
	var req RelayRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		sendError(w, r, err)
		return
	}

	if err := req.Validate(formats); err != nil {
		sendError(w, r, err)
		return
	}

	d, err := h.device(r)
	if err != nil {
		sendError(w, r, err)
		return
	}

	ctx := logging.WithDevice(r.Context(), d.Info().Alias)
	reply, err := d.Passthrough(ctx, req.Tree())
	if err != nil {
		sendError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(reply); err != nil {
		logging.Logger(ctx).WithError(err).Error("sending relay response")
	}
}
