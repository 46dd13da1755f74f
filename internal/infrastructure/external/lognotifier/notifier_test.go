package lognotifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

func TestNotifier_LogsMessage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewNotifier(zap.New(core))
	assert.Equal(t, entity.ChannelLog, n.Channel())

	require.NoError(t, n.Send(context.Background(), "mia@example.com", port.Message{
		Kind:        "comment_added",
		Subject:     "New comment on expense",
		StatusLabel: "New comment",
		Body:        "Hi Mia",
	}))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "mia@example.com", fields["recipient"])
	assert.Equal(t, "comment_added", fields["kind"])
	assert.Equal(t, "New comment on expense", fields["subject"])
}
