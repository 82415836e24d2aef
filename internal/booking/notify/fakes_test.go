package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

var errChannelDown = errors.New("channel down")

type fakePusher struct {
	mu     sync.Mutex
	sent   []PushMessage
	failOn map[int64]bool
}

func (f *fakePusher) SendPush(_ context.Context, msg PushMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[msg.Recipient.UserID] {
		return errChannelDown
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakePusher) recipients() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Recipient.UserID)
	}
	return out
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []Email
	fail bool
}

func (f *fakeMailer) SendEmail(_ context.Context, email Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errChannelDown
	}
	f.sent = append(f.sent, email)
	return nil
}

func (f *fakeMailer) templatesTo(addr string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.sent {
		if e.To == addr {
			out = append(out, e.Template)
		}
	}
	return out
}

type fakeSMS struct {
	mu     sync.Mutex
	sent   map[string]string
	failOn map[string]bool
}

func (f *fakeSMS) SendSMS(_ context.Context, to, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[to] {
		return errChannelDown
	}
	if f.sent == nil {
		f.sent = make(map[string]string)
	}
	f.sent[to] = message
	return nil
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
}

func (f *fakeScheduler) Schedule(_ context.Context, msg PushMessage, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheduled == nil {
		f.scheduled = make(map[string]time.Time)
	}
	f.scheduled[msg.ID] = at
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
