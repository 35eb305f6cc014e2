package kasa

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
)

// stubTransport records every exchange and answers from a script.
type stubTransport struct {
	calls   []*Request
	replies []string
	err     error
}

func newStub(replies ...string) *stubTransport {
	return &stubTransport{replies: replies}
}

func (s *stubTransport) Do(ctx context.Context, req *Request) ([]byte, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.replies) == 0 {
		return nil, fmt.Errorf("stub: no scripted reply for call %d", len(s.calls))
	}

	reply := s.replies[0]
	s.replies = s.replies[1:]
	return []byte(reply), nil
}

func (s *stubTransport) script(replies ...string) {
	s.replies = append(s.replies, replies...)
}

// bodyOf re-encodes a request body so tests can inspect it as JSON.
func bodyOf(t *testing.T, req *Request) map[string]interface{} {
	t.Helper()

	data, err := json.Marshal(req.Body)
	if err != nil {
		t.Fatalf("encoding body: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decoding body %s: %v", data, err)
	}
	return m
}

const loginOK = `{"error_code":0,"result":{"accountId":"42","email":"me@example.com","token":"tok-123"}}`

func loggedIn(t *testing.T, stub *stubTransport) *Session {
	t.Helper()

	stub.script(loginOK)
	s, err := Login(context.Background(), stub, "me@example.com", "secret", "term-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	stub.calls = nil
	return s
}

func deviceListReply(devices ...DeviceInfo) string {
	data, _ := json.Marshal(map[string]interface{}{
		"error_code": 0,
		"result":     map[string]interface{}{"deviceList": devices},
	})
	return string(data)
}

// passthroughReply wraps a device reply the way the cloud does: as a JSON
// string in result.responseData.
func passthroughReply(deviceReply string) string {
	data, _ := json.Marshal(map[string]interface{}{
		"error_code": 0,
		"result":     map[string]string{"responseData": deviceReply},
	})
	return string(data)
}
