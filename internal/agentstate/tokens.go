package agentstate

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenMeter counts tokens for history-eviction and context-budget
// decisions, backed by tiktoken-go so counts track what the model actually
// consumes rather than a crude character-length proxy.
type TokenMeter struct {
	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

// NewTokenMeter builds a TokenMeter using the cl100k_base encoding, the
// closest stand-in tiktoken-go ships for modern chat models when the exact
// model encoding is unknown.
func NewTokenMeter() (*TokenMeter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &TokenMeter{enc: enc}, nil
}

// Count returns the token count for text.
func (m *TokenMeter) Count(text string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.enc.Encode(text, nil, nil))
}

// CountMessages sums the token count across every message's content.
func (m *TokenMeter) CountMessages(messages []Message) int {
	total := 0
	for _, msg := range messages {
		total += m.Count(msg.Content)
	}
	return total
}
