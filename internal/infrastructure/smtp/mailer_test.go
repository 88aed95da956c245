package smtp

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/print-order-api/internal/config"
	"github.com/print-order-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, defaultFrom string, m domain.Mail) string {
	t.Helper()
	msg, err := buildMessage(defaultFrom, m)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestBuildMessage_Headers(t *testing.T) {
	out := render(t, "shop@example.com", domain.Mail{
		To:      "orders@example.com",
		ReplyTo: "kunde@example.com",
		Subject: "New order",
		Body:    "Hello",
	})

	assert.Contains(t, out, "shop@example.com")
	assert.Contains(t, out, "orders@example.com")
	assert.Contains(t, out, "Reply-To: <kunde@example.com>")
	assert.Contains(t, out, "Subject: New order")
	assert.Contains(t, out, "Hello")
}

func TestBuildMessage_ExplicitFromWins(t *testing.T) {
	out := render(t, "shop@example.com", domain.Mail{
		From:    "billing@example.com",
		To:      "kunde@example.com",
		Subject: "x",
	})

	assert.Contains(t, out, "billing@example.com")
	assert.NotContains(t, out, "shop@example.com")
}

func TestBuildMessage_Attachments(t *testing.T) {
	out := render(t, "shop@example.com", domain.Mail{
		To:      "orders@example.com",
		Subject: "files",
		Attachments: []domain.Attachment{
			{Filename: "flyer.pdf", Content: []byte("%PDF-1.4"), ContentType: "application/pdf"},
			{Filename: "back.bin", Content: []byte{0x00, 0x01}},
		},
	})

	assert.Contains(t, out, `filename="flyer.pdf"`)
	assert.Contains(t, out, "application/pdf")
	assert.Contains(t, out, `filename="back.bin"`)
	assert.Contains(t, out, "application/octet-stream")
}

func TestBuildMessage_Invalid(t *testing.T) {
	_, err := buildMessage("shop@example.com", domain.Mail{Subject: "no recipient"})
	assert.Error(t, err)

	_, err = buildMessage("shop@example.com", domain.Mail{To: "not an address", Subject: "x"})
	assert.Error(t, err)
}

func TestSend_InvalidMailIsNotificationError(t *testing.T) {
	m, err := NewMailer(&config.Config{SMTPHost: "localhost", SMTPPort: 1025, SMTPFrom: "shop@example.com"})
	require.NoError(t, err)

	err = m.Send(context.Background(), domain.Mail{Subject: "no recipient"})
	assert.True(t, errors.Is(err, domain.ErrNotification))
}

func TestNewMailer_TLSPolicy(t *testing.T) {
	m, err := NewMailer(&config.Config{SMTPHost: "localhost", SMTPPort: 1025})
	require.NoError(t, err)
	assert.Equal(t, "TLSOpportunistic", m.client.TLSPolicy())

	m, err = NewMailer(&config.Config{SMTPHost: "localhost", SMTPPort: 587, SMTPTLS: true})
	require.NoError(t, err)
	assert.Equal(t, "TLSMandatory", m.client.TLSPolicy())
}

func TestNewMailer_SSLKeepsConfiguredPort(t *testing.T) {
	m, err := NewMailer(&config.Config{SMTPHost: "localhost", SMTPPort: 465, SMTPSSL: true})
	require.NoError(t, err)
	assert.Equal(t, "localhost:465", m.client.ServerAddr())
}
