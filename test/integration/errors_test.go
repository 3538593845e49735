package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/rhuss/coachrelay/pkg/api"
)

func TestInvalidBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{"message":`},
		{"missing message", `{"text":"hello"}`},
		{"null message", `{"message":null}`},
		{"numeric message", `{"message":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testEnv.calls()
			resp := postChat(t, testEnv.Streaming.URL, tt.body)

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			var body api.ErrorResponse
			decodeJSON(t, resp, &body)
			if body.Detail == "" {
				t.Error("detail should not be empty")
			}
			if testEnv.calls() != before {
				t.Error("invalid requests must not reach the upstream")
			}
		})
	}
}

func TestUnconfiguredAPIKey(t *testing.T) {
	before := testEnv.calls()
	resp := postChat(t, testEnv.Unconfigured.URL, `{"message":"hello"}`)

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	var body api.ErrorResponse
	decodeJSON(t, resp, &body)
	if body.Detail != "OPENAI_API_KEY not configured" {
		t.Errorf("detail = %q", body.Detail)
	}
	if testEnv.calls() != before {
		t.Error("unconfigured requests must not reach the upstream")
	}
}

func TestUnsupportedContentType(t *testing.T) {
	resp, err := http.Post(testEnv.Streaming.URL+"/api/chat", "text/plain", strings.NewReader(`{"message":"hi"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	req, _ := http.NewRequest(http.MethodOptions, testEnv.Streaming.URL+"/api/chat", nil)
	req.Header.Set("Origin", "https://coach.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	readBody(t, resp)

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Headers"); got != "content-type" {
		t.Errorf("Allow-Headers = %q", got)
	}
}
