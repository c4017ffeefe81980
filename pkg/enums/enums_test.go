package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in   string
		want PaymentMethod
	}{
		{"cash", PaymentMethodCash},
		{" Card ", PaymentMethodCard},
		{"MOBILE", PaymentMethodMobile},
	}
	for _, tt := range tests {
		got, err := ParsePaymentMethod(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.True(t, got.IsValid())
	}

	_, err := ParsePaymentMethod("cheque")
	assert.Error(t, err)
	assert.False(t, PaymentMethod("cheque").IsValid())
}

func TestOutboxEnums(t *testing.T) {
	for _, raw := range []string{"sale_recorded", "stock_adjusted", "low_stock_detected"} {
		parsed, err := ParseOutboxEventType(raw)
		require.NoError(t, err)
		assert.True(t, parsed.IsValid())
	}
	_, err := ParseOutboxEventType("order_created")
	assert.Error(t, err)

	agg, err := ParseOutboxAggregateType("product")
	require.NoError(t, err)
	assert.Equal(t, AggregateProduct, agg)
	assert.False(t, OutboxAggregateType("store").IsValid())
}

func TestStockMovementReason(t *testing.T) {
	reason, err := ParseStockMovementReason("manual_adjustment")
	require.NoError(t, err)
	assert.Equal(t, StockMovementManualAdjustment, reason)
	assert.Equal(t, "manual_adjustment", reason.String())

	_, err = ParseStockMovementReason("theft")
	assert.Error(t, err)
}

func TestOutboxDLQErrorReason(t *testing.T) {
	assert.True(t, OutboxDLQReasonMaxAttempts.IsValid())
	assert.True(t, OutboxDLQReasonNoTopic.IsValid())
	assert.False(t, OutboxDLQErrorReason("timeout").IsValid())
}
