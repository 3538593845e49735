package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/coachrelay/pkg/api"
	"github.com/rhuss/coachrelay/pkg/provider"
	"github.com/rhuss/coachrelay/pkg/provider/openai"
)

func newTestProvider(t *testing.T, cfg mockConfig, key string) *openai.Provider {
	t.Helper()
	srv := httptest.NewServer(newMux(cfg))
	t.Cleanup(srv.Close)
	return openai.New(openai.Config{
		APIKey:       key,
		BaseURL:      srv.URL + "/v1",
		Model:        mockModel,
		IncludeUsage: true,
	})
}

func conversation(msg string) *provider.ProviderRequest {
	return &provider.ProviderRequest{
		Messages: api.NewConversation("You are a supportive mental coach.", msg),
	}
}

// collect drains a provider stream into its text and final event.
func collect(t *testing.T, ch <-chan provider.ProviderEvent) (string, provider.ProviderEvent) {
	t.Helper()
	var text strings.Builder
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatal("stream closed without a terminal event")
			}
			if ev.Type == provider.ProviderEventTextDelta {
				text.WriteString(ev.Delta)
				continue
			}
			return text.String(), ev
		case <-timeout:
			t.Fatal("timed out reading stream")
		}
	}
}

func TestMockComplete(t *testing.T) {
	p := newTestProvider(t, mockConfig{}, "sk-test")

	resp, err := p.Complete(context.Background(), conversation("hello"))
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Content != "You're doing well. Keep going!" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens == 0 {
		t.Error("usage should be reported")
	}
}

func TestMockStream(t *testing.T) {
	p := newTestProvider(t, mockConfig{}, "sk-test")

	ch, err := p.Stream(context.Background(), conversation("hello"))
	if err != nil {
		t.Fatalf("Stream error: %v", err)
	}
	text, last := collect(t, ch)

	if last.Type != provider.ProviderEventDone {
		t.Fatalf("last event = %+v, want done", last)
	}
	if text != "You're doing well. Keep going!" {
		t.Errorf("text = %q", text)
	}
	if last.Usage == nil || last.Usage.OutputTokens != len(defaultTokens) {
		t.Errorf("usage = %+v", last.Usage)
	}
}

func TestMockEcho(t *testing.T) {
	p := newTestProvider(t, mockConfig{}, "sk-test")

	resp, err := p.Complete(context.Background(), conversation("[echo] I feel anxious today"))
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Content != "I feel anxious today" {
		t.Errorf("Content = %q", resp.Content)
	}
}

func TestMockErrorMarker(t *testing.T) {
	p := newTestProvider(t, mockConfig{}, "sk-test")

	if _, err := p.Complete(context.Background(), conversation("please [error]")); err == nil {
		t.Error("expected error from Complete")
	}

	ch, _ := p.Stream(context.Background(), conversation("please [error]"))
	if _, last := collect(t, ch); last.Type != provider.ProviderEventError {
		t.Errorf("last event = %+v, want error", last)
	}
}

func TestMockMidStreamFailure(t *testing.T) {
	p := newTestProvider(t, mockConfig{}, "sk-test")

	ch, _ := p.Stream(context.Background(), conversation("[midfail]"))
	text, last := collect(t, ch)

	if text != "You're" {
		t.Errorf("text = %q, want the first two tokens", text)
	}
	if last.Type != provider.ProviderEventError || last.Err == nil {
		t.Fatalf("last event = %+v, want error", last)
	}
	if !strings.Contains(last.Err.Error(), "overloaded") {
		t.Errorf("error = %v", last.Err)
	}
}

func TestMockHangHonorsCancel(t *testing.T) {
	p := newTestProvider(t, mockConfig{}, "sk-test")

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := p.Stream(ctx, conversation("[hang]"))

	select {
	case ev := <-ch:
		if ev.Type != provider.ProviderEventTextDelta {
			t.Fatalf("first event = %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no first chunk")
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// Draining a last send is fine; the channel must close next.
			<-ch
		}
	case <-time.After(5 * time.Second):
		t.Fatal("producer did not stop after cancel")
	}
}

func TestMockRequiresKey(t *testing.T) {
	p := newTestProvider(t, mockConfig{APIKey: "sk-right"}, "sk-wrong")

	_, err := p.Complete(context.Background(), conversation("hello"))
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("expected 401 error, got %v", err)
	}
}

func TestMockModelsAndHealth(t *testing.T) {
	srv := httptest.NewServer(newMux(mockConfig{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/models")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()
	var models struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&models)
	if len(models.Data) != 1 || models.Data[0].ID != mockModel {
		t.Errorf("models = %+v", models)
	}

	health, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", health.StatusCode)
	}
}
