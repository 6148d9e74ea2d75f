package chat

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"servigo-client/api"
	"servigo-client/models"
)

// ErrEmptyMessage is returned when a send has neither text nor attachments.
// No request is made in that case.
var ErrEmptyMessage = errors.New("message requires text or at least one attachment")

// Config tunes the thread poller.
type Config struct {
	// Interval between polls, 3s unless configured otherwise.
	Interval time.Duration
	// JitterFraction spreads each interval by ±fraction.
	JitterFraction float64
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 3 * time.Second
	}
	if c.JitterFraction <= 0 {
		c.JitterFraction = 0.2
	}
	return c
}

// Thread is one dispute chat surface. The same type serves admin, user and
// servicer; the role only changes the endpoint prefix, which the API client
// already carries.
type Thread struct {
	client  *api.Client
	issueID uint
	cfg     Config

	// OnMessages receives every applied (non-stale) poll result. Optional.
	OnMessages func(messages []models.IssueMessage)
	// OnError receives poll failures. Polling continues afterwards. Optional.
	OnError func(err error)

	mu          sync.Mutex
	nextSeq     uint64
	lastApplied uint64
	latest      []models.IssueMessage
}

// NewThread creates a thread poller for one transaction issue.
func NewThread(client *api.Client, issueID uint, cfg Config) *Thread {
	return &Thread{
		client:  client,
		issueID: issueID,
		cfg:     cfg.withDefaults(),
	}
}

// Messages returns the most recently applied thread contents.
func (t *Thread) Messages() []models.IssueMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

// Poll fetches the thread once; stale (out-of-order) responses are dropped.
func (t *Thread) Poll(ctx context.Context) error {
	t.mu.Lock()
	t.nextSeq++
	seq := t.nextSeq
	t.mu.Unlock()

	messages, err := t.client.IssueChat(ctx, t.issueID)
	if err != nil {
		if ctx.Err() == nil && t.OnError != nil {
			t.OnError(err)
		}
		return err
	}

	t.mu.Lock()
	if seq <= t.lastApplied {
		t.mu.Unlock()
		return nil
	}
	t.lastApplied = seq
	t.latest = messages
	t.mu.Unlock()

	if t.OnMessages != nil {
		t.OnMessages(messages)
	}
	return nil
}

// Run polls until the context is cancelled. The first poll happens
// immediately; failures are reported through OnError and do not stop the loop.
func (t *Thread) Run(ctx context.Context) error {
	for {
		_ = t.Poll(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.jitteredInterval()):
		}
	}
}

// Send appends a message to the thread. A message needs non-empty text or at
// least one attachment; otherwise ErrEmptyMessage is returned before any
// network call. Attachments are passed through unmodified.
func (t *Thread) Send(ctx context.Context, text string, attachments []api.Upload) (*models.IssueMessage, error) {
	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		return nil, ErrEmptyMessage
	}
	msg, err := t.client.SendIssueMessage(ctx, t.issueID, text, attachments)
	if err != nil {
		return nil, err
	}
	// Refresh right away so the sender sees their own message without waiting
	// a full interval.
	_ = t.Poll(ctx)
	return msg, nil
}

func (t *Thread) jitteredInterval() time.Duration {
	base := float64(t.cfg.Interval)
	spread := base * t.cfg.JitterFraction
	return time.Duration(base - spread + rand.Float64()*2*spread)
}
