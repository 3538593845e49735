// Package tokenizer estimates token counts for usage metrics when the
// upstream does not report usage itself.
package tokenizer

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/rhuss/coachrelay/pkg/api"
)

// Counter counts tokens for a model.
type Counter interface {
	// CountText counts tokens in a text string.
	CountText(text, model string) int

	// CountMessages counts prompt tokens for a message sequence, including
	// the per-message framing overhead of the chat format.
	CountMessages(messages []api.Message, model string) int
}

// Encoding names used by tiktoken.
const (
	EncodingCL100kBase = "cl100k_base"
	EncodingO200kBase  = "o200k_base"
)

// Chat framing overhead per message and per reply, as documented for the
// cl100k and o200k chat formats.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

// modelEncodings is ordered so that longer prefixes match first.
var modelEncodings = []struct {
	prefix   string
	encoding string
}{
	{"gpt-3.5", EncodingCL100kBase},
	{"gpt-4o", EncodingO200kBase},
	{"gpt-4.1", EncodingO200kBase},
	{"gpt-4", EncodingCL100kBase},
	{"gpt-5", EncodingO200kBase},
	{"chatgpt", EncodingO200kBase},
	{"o1", EncodingO200kBase},
	{"o3", EncodingO200kBase},
	{"o4", EncodingO200kBase},
}

// Tiktoken implements Counter with tiktoken-go. Encodings load in the
// background on first use (their BPE ranks may be downloaded); until an
// encoding is ready, or if it fails to load, counts fall back to Estimate.
type Tiktoken struct {
	mu        sync.Mutex
	encodings map[string]*encodingState
	load      func(name string) (*tiktoken.Tiktoken, error)
}

type encodingState struct {
	ready chan struct{}
	enc   *tiktoken.Tiktoken
}

var _ Counter = (*Tiktoken)(nil)

// New creates a Tiktoken counter.
func New() *Tiktoken {
	return &Tiktoken{
		encodings: make(map[string]*encodingState),
		load:      tiktoken.GetEncoding,
	}
}

// CountText counts tokens in text for model.
func (t *Tiktoken) CountText(text, model string) int {
	if text == "" {
		return 0
	}
	enc := t.encoding(ResolveEncoding(model))
	if enc == nil {
		return Estimate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// CountMessages counts prompt tokens for messages.
func (t *Tiktoken) CountMessages(messages []api.Message, model string) int {
	total := tokensPerReply
	for _, m := range messages {
		total += tokensPerMessage
		total += t.CountText(string(m.Role), model)
		total += t.CountText(m.Content, model)
	}
	return total
}

// encoding returns a loaded encoding, or nil while it is loading or after
// it failed to load. It never blocks on the load itself.
func (t *Tiktoken) encoding(name string) *tiktoken.Tiktoken {
	t.mu.Lock()
	st, ok := t.encodings[name]
	if !ok {
		st = &encodingState{ready: make(chan struct{})}
		t.encodings[name] = st
		go t.loadEncoding(name, st)
	}
	t.mu.Unlock()

	select {
	case <-st.ready:
		return st.enc
	default:
		return nil
	}
}

func (t *Tiktoken) loadEncoding(name string, st *encodingState) {
	defer close(st.ready)
	enc, err := t.load(name)
	if err != nil {
		slog.Warn("tokenizer encoding unavailable, using estimate",
			"encoding", name, "error", err.Error())
		return
	}
	st.enc = enc
}

// ResolveEncoding returns the encoding name for a model. Unknown models
// use cl100k_base.
func ResolveEncoding(model string) string {
	m := strings.ToLower(model)
	for _, me := range modelEncodings {
		if strings.HasPrefix(m, me.prefix) {
			return me.encoding
		}
	}
	return EncodingCL100kBase
}

// Estimate approximates a token count as one token per four bytes,
// rounded up.
func Estimate(text string) int {
	return (len(text) + 3) / 4
}
