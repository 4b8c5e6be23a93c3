package fakesender

import (
	"context"
	"sync"

	"github.com/studykit/go-study-auth/accounts"
	"github.com/studykit/go-study-auth/notifications"
)

var _ notifications.Sender = (*FakeSender)(nil)

// Message records one delivery request.
type Message struct {
	Kind        string // "verification", "signin" or "reset"
	Channel     accounts.ChannelType
	Destination string
	Token       string
}

// FakeSender records messages for assertions in tests.
type FakeSender struct {
	messages []Message
	lock     sync.Mutex
}

func NewFakeSender() *FakeSender {
	return &FakeSender{}
}

func (s *FakeSender) SendVerification(ctx context.Context, channel accounts.ChannelType, destination, tokenValue string) error {
	s.record(Message{Kind: "verification", Channel: channel, Destination: destination, Token: tokenValue})
	return nil
}

func (s *FakeSender) SendSignInToken(ctx context.Context, channel accounts.ChannelType, destination, tokenValue string) error {
	s.record(Message{Kind: "signin", Channel: channel, Destination: destination, Token: tokenValue})
	return nil
}

func (s *FakeSender) SendPasswordReset(ctx context.Context, channel accounts.ChannelType, destination, tokenValue string) error {
	s.record(Message{Kind: "reset", Channel: channel, Destination: destination, Token: tokenValue})
	return nil
}

// Messages returns a copy of everything sent so far.
func (s *FakeSender) Messages() []Message {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *FakeSender) record(m Message) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.messages = append(s.messages, m)
}
