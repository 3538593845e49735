// Package providertest provides a scriptable provider.Provider for tests.
package providertest

import (
	"context"
	"sync"
	"time"

	"github.com/rhuss/coachrelay/pkg/api"
	"github.com/rhuss/coachrelay/pkg/provider"
)

// Provider is a fake provider.Provider. Configure the exported fields
// before use; the fake records every request it receives.
type Provider struct {
	// Reply is returned by Complete.
	Reply string
	// Usage is attached to Complete responses and the stream's Done event.
	Usage *api.Usage
	// CompleteErr makes Complete fail.
	CompleteErr error

	// Deltas are streamed in order as TextDelta events. Empty strings are
	// delivered as is so that consumers can be tested for skipping them.
	Deltas []string
	// StreamErr makes Stream itself fail before returning a channel.
	StreamErr error
	// FailAfter, when non-nil, is emitted as an Error event after
	// FailAfterN deltas instead of a Done event.
	FailAfter  error
	FailAfterN int
	// Delay is slept before every event, honoring ctx.
	Delay time.Duration
	// Hang blocks the producer after the scripted deltas until ctx ends.
	Hang bool

	mu        sync.Mutex
	requests  []provider.ProviderRequest
	cancelled chan struct{}
	once      sync.Once
}

var _ provider.Provider = (*Provider)(nil)

// Name returns "fake".
func (p *Provider) Name() string { return "fake" }

// Complete records the request and returns Reply or CompleteErr.
func (p *Provider) Complete(ctx context.Context, req *provider.ProviderRequest) (*provider.ProviderResponse, error) {
	p.record(req)
	if p.Delay > 0 && !sleep(ctx, p.Delay) {
		p.markCancelled()
		return nil, ctx.Err()
	}
	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	resp := &provider.ProviderResponse{Content: p.Reply, Model: req.Model, FinishReason: "stop"}
	if p.Usage != nil {
		resp.Usage = *p.Usage
	}
	return resp, nil
}

// Stream records the request and plays back the scripted events on an
// unbuffered channel.
func (p *Provider) Stream(ctx context.Context, req *provider.ProviderRequest) (<-chan provider.ProviderEvent, error) {
	p.record(req)
	if p.StreamErr != nil {
		return nil, p.StreamErr
	}

	ch := make(chan provider.ProviderEvent)
	go func() {
		defer close(ch)
		for i, d := range p.Deltas {
			if p.FailAfter != nil && i == p.FailAfterN {
				break
			}
			if !p.emit(ctx, ch, provider.ProviderEvent{Type: provider.ProviderEventTextDelta, Delta: d}) {
				return
			}
		}
		if p.Hang {
			<-ctx.Done()
			p.markCancelled()
			return
		}
		if p.FailAfter != nil {
			p.emit(ctx, ch, provider.ProviderEvent{Type: provider.ProviderEventError, Err: p.FailAfter})
			return
		}
		p.emit(ctx, ch, provider.ProviderEvent{Type: provider.ProviderEventDone, Usage: p.Usage})
	}()
	return ch, nil
}

// Close is a no-op.
func (p *Provider) Close() error { return nil }

// Calls returns how many Complete or Stream calls were made.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Requests returns copies of every recorded request.
func (p *Provider) Requests() []provider.ProviderRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]provider.ProviderRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// Cancelled is closed once the fake observes a cancelled context.
func (p *Provider) Cancelled() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled == nil {
		p.cancelled = make(chan struct{})
	}
	return p.cancelled
}

func (p *Provider) record(req *provider.ProviderRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := *req
	cp.Messages = append([]api.Message(nil), req.Messages...)
	p.requests = append(p.requests, cp)
}

func (p *Provider) emit(ctx context.Context, ch chan<- provider.ProviderEvent, ev provider.ProviderEvent) bool {
	if p.Delay > 0 && !sleep(ctx, p.Delay) {
		p.markCancelled()
		return false
	}
	if !provider.Send(ctx, ch, ev) {
		p.markCancelled()
		return false
	}
	return true
}

func (p *Provider) markCancelled() {
	p.Cancelled()
	p.once.Do(func() {
		p.mu.Lock()
		close(p.cancelled)
		p.mu.Unlock()
	})
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
