package kasa

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Cloud method names carried in the envelope "method" field.
const (
	methodLogin         = "login"
	methodGetDeviceList = "getDeviceList"
	methodPassthrough   = "passthrough"
)

// request is the outbound JSON body of every cloud call.
type request struct {
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the inbound envelope of every cloud call. ErrorCode zero means
// success; Result is operation specific.
type Response struct {
	ErrorCode int             `json:"error_code"`
	Message   string          `json:"msg,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// DecodeResponse parses a raw cloud reply into its envelope.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "decoding response envelope: %s", err)
	}
	return &resp, nil
}

// CheckError returns a *CloudError when the envelope reports a non-zero
// error code, and the unmodified result otherwise.
//
// The cloud answers protocol failures with HTTP 200, so this must run on
// every reply.
func CheckError(method string, resp *Response) (json.RawMessage, error) {
	if resp == nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "empty response to %s", method)
	}

	if resp.ErrorCode != 0 {
		return nil, &CloudError{
			Method:  method,
			Code:    resp.ErrorCode,
			Message: resp.Message,
		}
	}

	return resp.Result, nil
}

type loginParams struct {
	AppType       string `json:"appType"`
	CloudUserName string `json:"cloudUserName"`
	CloudPassword string `json:"cloudPassword"`
	TerminalUUID  string `json:"terminalUUID"`
}

type loginResult struct {
	AccountID string `json:"accountId"`
	RegTime   string `json:"regTime"`
	Email     string `json:"email"`
	Token     string `json:"token"`
}

type deviceListResult struct {
	DeviceList []DeviceInfo `json:"deviceList"`
}

// passthroughParams nests a vendor command for one device. RequestData is the
// command tree serialised as a JSON string; the cloud does not interpret it.
type passthroughParams struct {
	DeviceID    string `json:"deviceId"`
	RequestData string `json:"requestData"`
}

type passthroughResult struct {
	ResponseData string `json:"responseData"`
}
