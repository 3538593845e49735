// Package engine implements the completion relay. The Engine struct
// implements transport.ChatHandler: for every chat request it builds the
// two-message upstream conversation, makes exactly one provider call, and
// relays the result either as a single reply or as a stream of typed
// events, ending every stream with exactly one Done or Error event.
package engine
