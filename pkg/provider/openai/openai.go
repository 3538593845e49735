package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/rhuss/coachrelay/pkg/api"
	"github.com/rhuss/coachrelay/pkg/debug"
	"github.com/rhuss/coachrelay/pkg/provider"
)

// ErrNoChoices is returned when the backend answers without any choice.
var ErrNoChoices = errors.New("response contained no choices")

// Provider implements provider.Provider using the OpenAI Go SDK.
type Provider struct {
	cfg    Config
	client sdk.Client
	http   *http.Client
}

// Ensure Provider implements provider.Provider at compile time.
var _ provider.Provider = (*Provider)(nil)

// New creates a Provider. The SDK's built-in retries are disabled so that
// every inbound request results in exactly one upstream call.
func New(cfg Config) *Provider {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	httpClient := &http.Client{}
	opts := []option.RequestOption{
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{
		cfg:    cfg,
		client: sdk.NewClient(opts...),
		http:   httpClient,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "openai"
}

// Model returns the configured model.
func (p *Provider) Model() string {
	return p.cfg.Model
}

// Complete performs a non-streaming chat completion.
func (p *Provider) Complete(ctx context.Context, req *provider.ProviderRequest) (*provider.ProviderResponse, error) {
	params := p.params(req)

	var opts []option.RequestOption
	if p.cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(p.cfg.Timeout))
	}

	debug.Log("providers", "chat completion request",
		"model", params.Model, "messages", len(params.Messages))

	completion, err := p.client.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, ErrNoChoices
	}

	choice := completion.Choices[0]
	return &provider.ProviderResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Model:        completion.Model,
		Usage:        toUsage(completion.Usage),
	}, nil
}

// Stream performs a streaming chat completion. The upstream HTTP call is
// made inside the producer goroutine, so connection failures and error
// statuses arrive as a ProviderEventError on the returned channel.
func (p *Provider) Stream(ctx context.Context, req *provider.ProviderRequest) (<-chan provider.ProviderEvent, error) {
	params := p.params(req)
	if p.cfg.IncludeUsage {
		params.StreamOptions = sdk.ChatCompletionStreamOptionsParam{
			IncludeUsage: sdk.Bool(true),
		}
	}

	ch := make(chan provider.ProviderEvent)

	go func() {
		defer close(ch)

		debug.Log("providers", "chat completion stream request",
			"model", params.Model, "messages", len(params.Messages))

		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		var usage *api.Usage
		for stream.Next() {
			chunk := stream.Current()

			if chunk.Usage.TotalTokens > 0 {
				u := toUsage(chunk.Usage)
				usage = &u
			}

			// Role-only, finish-only and usage-only frames carry no text.
			if len(chunk.Choices) == 0 {
				continue
			}
			text := chunk.Choices[0].Delta.Content
			if text == "" {
				continue
			}

			debug.Log("streaming", "chunk received", "bytes", len(text))
			if !provider.Send(ctx, ch, provider.ProviderEvent{
				Type:  provider.ProviderEventTextDelta,
				Delta: text,
			}) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			// A cancelled context is reported by the consumer, not here.
			if ctx.Err() != nil {
				return
			}
			slog.Debug("upstream stream failed", "error", err.Error())
			provider.Send(ctx, ch, provider.ProviderEvent{
				Type: provider.ProviderEventError,
				Err:  err,
			})
			return
		}

		provider.Send(ctx, ch, provider.ProviderEvent{
			Type:  provider.ProviderEventDone,
			Usage: usage,
		})
	}()

	return ch, nil
}

// Close releases provider resources.
func (p *Provider) Close() error {
	p.http.CloseIdleConnections()
	return nil
}

// params builds the SDK request from a ProviderRequest.
func (p *Provider) params(req *provider.ProviderRequest) sdk.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	return sdk.ChatCompletionNewParams{
		Model:    model,
		Messages: toMessages(req.Messages),
	}
}

// toMessages converts api.Message values to the SDK union type.
func toMessages(msgs []api.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, len(msgs))
	for i, m := range msgs {
		switch m.Role {
		case api.RoleSystem:
			out[i] = sdk.SystemMessage(m.Content)
		case api.RoleAssistant:
			out[i] = sdk.AssistantMessage(m.Content)
		default:
			out[i] = sdk.UserMessage(m.Content)
		}
	}
	return out
}

func toUsage(u sdk.CompletionUsage) api.Usage {
	return api.Usage{
		InputTokens:  int(u.PromptTokens),
		OutputTokens: int(u.CompletionTokens),
		TotalTokens:  int(u.TotalTokens),
	}
}
