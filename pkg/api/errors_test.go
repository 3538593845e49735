package api

import (
	"encoding/json"
	"testing"
)

func TestAPIErrorInterface(t *testing.T) {
	var _ error = &APIError{}
}

func TestAPIErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			"with param",
			&APIError{Type: ErrorTypeInvalidRequest, Param: "message", Message: "is required"},
			"invalid_request: is required (param: message)",
		},
		{
			"without param",
			&APIError{Type: ErrorTypeServerError, Message: "internal failure"},
			"server_error: internal failure",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("APIError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name        string
		err         *APIError
		wantType    ErrorType
		wantMessage string
	}{
		{"invalid request", NewInvalidRequestError("message", "bad"), ErrorTypeInvalidRequest, "bad"},
		{"unconfigured", NewUnconfiguredError(), ErrorTypeUnconfigured, "OPENAI_API_KEY not configured"},
		{"upstream", NewUpstreamError("connection refused"), ErrorTypeUpstream, "Error calling OpenAI API: connection refused"},
		{"server error", NewServerError("internal failure"), ErrorTypeServerError, "internal failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", tt.err.Type, tt.wantType)
			}
			if tt.err.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.wantMessage)
			}
		})
	}
}

func TestErrorResponseJSON(t *testing.T) {
	data, err := json.Marshal(NewErrorResponse(NewUnconfiguredError()))
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	want := `{"detail":"OPENAI_API_KEY not configured"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
