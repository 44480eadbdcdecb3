package enums

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSubscriptionStatus(t *testing.T) {
	status, err := ParseSubscriptionStatus("pending_activation")
	require.NoError(t, err)
	require.Equal(t, SubscriptionStatusPendingActivation, status)
	require.False(t, status.GrantsAccess())
	require.True(t, SubscriptionStatusActive.GrantsAccess())

	_, err = ParseSubscriptionStatus("trialing")
	require.Error(t, err)
}

func TestTransactionEnums(t *testing.T) {
	for _, raw := range []string{"pending", "completed", "failed", "refunded"} {
		s, err := ParseTransactionStatus(raw)
		require.NoError(t, err)
		require.True(t, s.IsValid())
	}
	_, err := ParseTransactionType("donation")
	require.Error(t, err)
	require.True(t, TransactionTypeActivation.IsValid())
}

func TestPredictionStatusSettled(t *testing.T) {
	require.False(t, PredictionStatusPending.Settled())
	require.True(t, PredictionStatusVoid.Settled())
}

func TestEmailTemplateDiscriminator(t *testing.T) {
	tpl, err := ParseEmailTemplate("new_predictions")
	require.NoError(t, err)
	require.Equal(t, EmailTemplateNewPredictions, tpl)
	require.False(t, EmailTemplate("sms").IsValid())
}

func TestOutboxEventTypes(t *testing.T) {
	evt, err := ParseOutboxEventType("transaction_created")
	require.NoError(t, err)
	require.Equal(t, EventTransactionCreated, evt)
	require.True(t, AggregateSubscription.IsValid())
	require.False(t, OutboxAggregateType("store").IsValid())
}
