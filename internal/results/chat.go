package results

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"signaware-client/internal/gateway"
	"signaware-client/internal/shared/metrics"
)

// ErrChatClosed is returned by Send after Close.
var ErrChatClosed = errors.New("chat closed")

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderBot  Sender = "bot"
	SenderUser Sender = "user"
)

// Message is one entry of the chat transcript.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat is an in-memory conversation about one analysis. Sends are
// serialized so messages append in send order.
type Chat struct {
	analysis  gateway.Analysis
	responder Responder
	interval  time.Duration
	metrics   *metrics.Metrics
	now       func() time.Time

	sendMu sync.Mutex

	mu       sync.RWMutex
	messages []Message

	life   context.Context
	cancel context.CancelFunc
}

// ChatOption customizes a Chat.
type ChatOption func(*Chat)

// WithResponder overrides reply selection.
func WithResponder(r Responder) ChatOption {
	return func(c *Chat) { c.responder = r }
}

// WithRevealInterval sets the typing delay; 0 reveals immediately.
func WithRevealInterval(d time.Duration) ChatOption {
	return func(c *Chat) { c.interval = d }
}

// WithChatMetrics counts replies by topic.
func WithChatMetrics(m *metrics.Metrics) ChatOption {
	return func(c *Chat) { c.metrics = m }
}

// NewChat starts a conversation seeded with the greeting.
func NewChat(a gateway.Analysis, opts ...ChatOption) *Chat {
	life, cancel := context.WithCancel(context.Background())
	c := &Chat{
		analysis: a,
		interval: DefaultRevealInterval,
		now:      time.Now,
		life:     life,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.messages = []Message{c.message(SenderBot, Greeting)}
	return c
}

// Send appends the user's message, reveals the reply through onChunk and
// then appends the bot message. Blank input is ignored and returns a zero
// Message. If ctx ends or the chat is closed mid-reveal, the reply is dropped.
func (c *Chat) Send(ctx context.Context, text string, onChunk func(chunk string)) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, nil
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.life.Err() != nil {
		return Message{}, ErrChatClosed
	}
	c.append(c.message(SenderUser, text))

	reply, topic := c.responder.Reply(text, c.analysis)
	c.metrics.ObserveChatReply(string(topic))

	revealCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.life, cancel)
	defer stop()

	if onChunk == nil {
		onChunk = func(string) {}
	}
	if err := Reveal(revealCtx, reply, c.interval, onChunk); err != nil {
		if c.life.Err() != nil {
			return Message{}, ErrChatClosed
		}
		return Message{}, err
	}

	msg := c.message(SenderBot, reply)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.life.Err() != nil {
		return Message{}, ErrChatClosed
	}
	c.messages = append(c.messages, msg)
	return msg, nil
}

// Messages returns a copy of the transcript.
func (c *Chat) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Close stops any pending reveal. Nothing is appended afterwards.
func (c *Chat) Close() {
	c.cancel()
}

func (c *Chat) append(m Message) {
	c.mu.Lock()
	c.messages = append(c.messages, m)
	c.mu.Unlock()
}

func (c *Chat) message(sender Sender, text string) Message {
	return Message{ID: uuid.NewString(), Sender: sender, Text: text, Timestamp: c.now()}
}
