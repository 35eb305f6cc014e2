// Package kasatest provides an in-memory Kasa cloud for tests.
package kasatest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jake-scott/kasa-cloud/pkg/kasa"
)

// Cloud error codes returned by the fake.
const (
	CodeBadCredentials = -20601
	CodeTokenExpired   = -20651
	CodeDeviceOffline  = -20571
	CodeUnknownMethod  = -20103
)

// Call is one exchange seen by the fake.
type Call struct {
	Method   string
	URL      string
	Token    string
	DeviceID string
	Command  map[string]map[string]json.RawMessage
}

// Cloud is a kasa.Transport answering login, getDeviceList and passthrough
// from in-memory state. It is safe for concurrent use.
type Cloud struct {
	User     string
	Password string
	Token    string

	mu      sync.Mutex
	devices []kasa.DeviceInfo
	replies map[string]map[string]string
	calls   []Call
}

func NewCloud(devices ...kasa.DeviceInfo) *Cloud {
	return &Cloud{
		User:     "user@example.com",
		Password: "secret",
		Token:    "test-token",
		devices:  devices,
		replies:  make(map[string]map[string]string),
	}
}

// SetDevices replaces the device list returned by getDeviceList.
func (c *Cloud) SetDevices(devices ...kasa.DeviceInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices = devices
}

// Reply scripts the reply of one device method, keyed "module.method". The
// reply is the method's JSON object, err_code included if wanted.
func (c *Cloud) Reply(deviceID, method, reply string) *Cloud {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.replies[deviceID] == nil {
		c.replies[deviceID] = make(map[string]string)
	}
	c.replies[deviceID][method] = reply
	return c
}

// Calls returns the exchanges seen so far.
func (c *Cloud) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()

	calls := make([]Call, len(c.calls))
	copy(calls, c.calls)
	return calls
}

// Session logs in to the fake and returns the session.
func (c *Cloud) Session(ctx context.Context) (*kasa.Session, error) {
	return kasa.Login(ctx, c, c.User, c.Password, "test-terminal")
}

type envelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func (c *Cloud) Do(ctx context.Context, req *kasa.Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	call := Call{
		Method: env.Method,
		URL:    req.URL,
		Token:  req.Query.Get("token"),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch env.Method {
	case "login":
		c.calls = append(c.calls, call)
		return c.login(env.Params)
	case "getDeviceList":
		c.calls = append(c.calls, call)
		if call.Token != c.Token {
			return cloudError(CodeTokenExpired, "Token expired")
		}
		return result(map[string]interface{}{"deviceList": c.devices})
	case "passthrough":
		reply, err := c.passthrough(&call, env.Params)
		c.calls = append(c.calls, call)
		return reply, err
	}

	c.calls = append(c.calls, call)
	return cloudError(CodeUnknownMethod, "Unknown method")
}

func (c *Cloud) login(params json.RawMessage) ([]byte, error) {
	var p struct {
		User     string `json:"cloudUserName"`
		Password string `json:"cloudPassword"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	if p.User != c.User || p.Password != c.Password {
		return cloudError(CodeBadCredentials, "Incorrect email or password")
	}

	return result(map[string]string{
		"accountId": "1",
		"email":     c.User,
		"token":     c.Token,
	})
}

func (c *Cloud) passthrough(call *Call, params json.RawMessage) ([]byte, error) {
	if call.Token != c.Token {
		return cloudError(CodeTokenExpired, "Token expired")
	}

	var p struct {
		DeviceID    string `json:"deviceId"`
		RequestData string `json:"requestData"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	call.DeviceID = p.DeviceID

	if err := json.Unmarshal([]byte(p.RequestData), &call.Command); err != nil {
		return nil, fmt.Errorf("kasatest: requestData is not a command tree: %v", err)
	}

	scripted, ok := c.replies[p.DeviceID]
	if !ok {
		return cloudError(CodeDeviceOffline, "Device is offline")
	}

	reply := make(map[string]map[string]json.RawMessage)
	for module, methods := range call.Command {
		reply[module] = make(map[string]json.RawMessage)
		for method := range methods {
			r, ok := scripted[module+"."+method]
			if !ok {
				r = `{"err_code":-2,"err_msg":"member not support"}`
			}
			reply[module][method] = json.RawMessage(r)
		}
	}

	data, err := json.Marshal(reply)
	if err != nil {
		return nil, err
	}

	return result(map[string]string{"responseData": string(data)})
}

func result(v interface{}) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"error_code": 0,
		"result":     v,
	})
}

func cloudError(code int, msg string) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"error_code": code,
		"msg":        msg,
	})
}
