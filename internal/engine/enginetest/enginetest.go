// Package enginetest provides an in-process engine.Engine for tests.
package enginetest

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/engine"
)

// Fake implements engine.Engine with replaceable functions. A nil ChatFn
// returns an error; a nil EmbedFn uses HashEmbed.
type Fake struct {
	ChatFn  func(ctx context.Context, model string, msgs []engine.Message) (string, error)
	EmbedFn func(ctx context.Context, model string, text string) ([]float32, error)

	mu    sync.Mutex
	chats [][]engine.Message
}

func (f *Fake) Chat(ctx context.Context, model string, msgs []engine.Message) (string, error) {
	f.mu.Lock()
	f.chats = append(f.chats, msgs)
	f.mu.Unlock()
	if f.ChatFn == nil {
		return "", errors.New("chat not configured")
	}
	return f.ChatFn(ctx, model, msgs)
}

func (f *Fake) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	if f.EmbedFn == nil {
		return HashEmbed(ctx, model, text)
	}
	return f.EmbedFn(ctx, model, text)
}

func (f *Fake) IsRunning(_ context.Context) bool { return true }

// Chats returns the message lists passed to Chat, oldest first.
func (f *Fake) Chats() [][]engine.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]engine.Message(nil), f.chats...)
}

// ChatCount returns how many times Chat has been called.
func (f *Fake) ChatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chats)
}

const hashDims = 64

// HashEmbed maps each lower-cased word of text into one of a fixed number of
// buckets, so texts that share words are similar.
func HashEmbed(_ context.Context, _ string, text string) ([]float32, error) {
	v := make([]float32, hashDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,;:!?()\"'")))
		v[h.Sum32()%hashDims]++
	}
	v[0] += 0.01
	return v, nil
}

// Contains reports whether any message in msgs contains substr.
func Contains(msgs []engine.Message, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m.Content, substr) {
			return true
		}
	}
	return false
}
