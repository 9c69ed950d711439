package mailer

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unigest/unigest/internal/config"
)

// closedPort returns a local port nobody listens on
func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestNew_RequiresConfiguration(t *testing.T) {
	_, err := New(config.SMTPConfig{Host: "smtp.univ.test"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSend_TransportFailureIsDeliveryError(t *testing.T) {
	d, err := New(config.SMTPConfig{
		Host: "127.0.0.1",
		Port: closedPort(t),
		From: "scolarite@univ.test",
	}, zerolog.Nop())
	require.NoError(t, err)

	err = d.Send(context.Background(), Notification{
		Recipient: "etudiant@univ.test",
		Subject:   "Inscription validée",
		Body:      "Votre inscription est validée.",
	})

	var deliveryErr *DeliveryError
	require.True(t, errors.As(err, &deliveryErr), "got %v", err)
	assert.Equal(t, "etudiant@univ.test", deliveryErr.Recipient)
}

func TestSend_RejectsInvalidNotification(t *testing.T) {
	d, err := New(config.SMTPConfig{Host: "127.0.0.1", Port: 25, From: "scolarite@univ.test"}, zerolog.Nop())
	require.NoError(t, err)

	err = d.Send(context.Background(), Notification{Recipient: "not-an-email", Subject: "x", Body: "y"})
	require.Error(t, err)

	var deliveryErr *DeliveryError
	assert.False(t, errors.As(err, &deliveryErr), "validation errors are not delivery errors")
}
