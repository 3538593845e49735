package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const mockModel = "mock-model"

// Reply markers recognized in the last user message.
const (
	markerError   = "[error]"
	markerMidFail = "[midfail]"
	markerHang    = "[hang]"
	markerEcho    = "[echo]"
)

// defaultTokens is the streamed form of the default reply.
var defaultTokens = []string{"You", "'re", " doing", " well", ".", " Keep", " going", "!"}

func newMux(cfg mockConfig) *http.ServeMux {
	m := &mock{cfg: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", m.handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

type mock struct {
	cfg mockConfig
}

// --- Request types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// --- Response types ---

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      chatMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Handler ---

func (m *mock) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if m.cfg.APIKey != "" && r.Header.Get("Authorization") != "Bearer "+m.cfg.APIKey {
		writeAPIError(w, http.StatusUnauthorized, "Incorrect API key provided.", "invalid_request_error")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request: "+err.Error(), "invalid_request_error")
		return
	}
	if req.Model == "" {
		req.Model = mockModel
	}

	lastMsg := lastUserMessage(&req)
	if strings.Contains(lastMsg, markerError) {
		writeAPIError(w, http.StatusInternalServerError, "The server had an error while processing your request.", "server_error")
		return
	}

	tokens := replyTokens(lastMsg)
	if req.Stream {
		m.handleStreaming(w, r, &req, tokens, lastMsg)
		return
	}

	text := strings.Join(tokens, "")
	resp := chatResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Message:      chatMsg{Role: "assistant", Content: text},
			FinishReason: "stop",
		}},
		Usage: usage(&req, len(tokens)),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func replyTokens(lastMsg string) []string {
	if strings.Contains(lastMsg, markerEcho) {
		text := strings.TrimSpace(strings.ReplaceAll(lastMsg, markerEcho, ""))
		return strings.SplitAfter(text, " ")
	}
	return defaultTokens
}

// --- Streaming ---

func (m *mock) handleStreaming(w http.ResponseWriter, r *http.Request, req *chatRequest, tokens []string, lastMsg string) {
	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := "chatcmpl-" + uuid.NewString()
	send := func(v any) bool {
		data, _ := json.Marshal(v)
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	// Role-only frame, as the real API sends first.
	if !send(chunk(id, req.Model, map[string]any{"role": "assistant", "content": ""}, nil)) {
		return
	}

	limit := len(tokens)
	switch {
	case strings.Contains(lastMsg, markerMidFail):
		limit = min(2, limit)
	case strings.Contains(lastMsg, markerHang):
		limit = min(1, limit)
	}

	for _, tok := range tokens[:limit] {
		if m.cfg.ChunkDelay > 0 {
			select {
			case <-time.After(m.cfg.ChunkDelay):
			case <-r.Context().Done():
				return
			}
		}
		if !send(chunk(id, req.Model, map[string]any{"content": tok}, nil)) {
			return
		}
	}

	switch {
	case strings.Contains(lastMsg, markerMidFail):
		send(map[string]any{"error": map[string]any{
			"message": "The model is overloaded. Please try again later.",
			"type":    "server_error",
		}})
		return
	case strings.Contains(lastMsg, markerHang):
		<-r.Context().Done()
		return
	}

	stop := "stop"
	send(chunk(id, req.Model, map[string]any{}, &stop))

	u := usage(req, len(tokens))
	send(map[string]any{
		"id":      id,
		"object":  "chat.completion.chunk",
		"model":   req.Model,
		"choices": []any{},
		"usage":   u,
	})

	fmt.Fprint(w, "data: [DONE]\n\n")
	rc.Flush()
}

func chunk(id, model string, delta map[string]any, finishReason *string) map[string]any {
	return map[string]any{
		"id":      id,
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []any{map[string]any{
			"index":         0,
			"delta":         delta,
			"finish_reason": finishReason,
		}},
	}
}

// --- Models endpoint ---

func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": mockModel, "object": "model", "owned_by": "coachrelay-mock"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Helpers ---

func writeAPIError(w http.ResponseWriter, status int, message, typ string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": typ},
	})
}

func usage(req *chatRequest, completion int) chatUsage {
	prompt := 0
	for _, msg := range req.Messages {
		if s, ok := msg.Content.(string); ok {
			prompt += len(strings.Fields(s))
		}
	}
	return chatUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

func lastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != "user" {
			continue
		}
		switch v := req.Messages[i].Content.(type) {
		case string:
			return v
		case []any:
			for _, part := range v {
				if m, ok := part.(map[string]any); ok && m["type"] == "text" {
					if text, ok := m["text"].(string); ok {
						return text
					}
				}
			}
		}
	}
	return ""
}
