package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type mockSender struct {
	sent []*mail.Msg
	err  error
}

func (m *mockSender) DialAndSendWithContext(_ context.Context, msgs ...*mail.Msg) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msgs...)
	return nil
}

func TestSMTPDispatcher_Send(t *testing.T) {
	sender := &mockSender{}
	d := newSMTPDispatcher(sender, "shop@example.com")

	err := d.Send(context.Background(), Message{To: "ada@example.com", Subject: "Hi", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	rcpts, err := sender.sent[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.com"}, rcpts)
	assert.Equal(t, []string{"Hi"}, sender.sent[0].GetGenHeader(mail.HeaderSubject))
}

func TestSMTPDispatcher_InvalidRecipient(t *testing.T) {
	sender := &mockSender{}
	d := newSMTPDispatcher(sender, "shop@example.com")

	err := d.Send(context.Background(), Message{To: "not an address", Subject: "Hi"})
	require.ErrorContains(t, err, "invalid recipient")
	assert.Empty(t, sender.sent)
}

func TestSMTPDispatcher_TransportError(t *testing.T) {
	d := newSMTPDispatcher(&mockSender{err: errors.New("connection refused")}, "shop@example.com")

	err := d.Send(context.Background(), Message{To: "ada@example.com", Subject: "Hi"})
	require.ErrorContains(t, err, "connection refused")
}
