package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, true},
		{"pending to shipped", StatusPending, StatusShipped, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to refunded", StatusPending, StatusRefunded, true},
		{"pending to delivered", StatusPending, StatusDelivered, false},
		{"processing to shipped", StatusProcessing, StatusShipped, true},
		{"processing to cancelled", StatusProcessing, StatusCancelled, true},
		{"processing to refunded", StatusProcessing, StatusRefunded, true},
		{"processing to pending", StatusProcessing, StatusPending, false},
		{"shipped to delivered", StatusShipped, StatusDelivered, true},
		{"shipped to cancelled", StatusShipped, StatusCancelled, false},
		{"delivered is terminal", StatusDelivered, StatusPending, false},
		{"cancelled is terminal", StatusCancelled, StatusProcessing, false},
		{"refunded is terminal", StatusRefunded, StatusPending, false},
		{"no self transition", StatusPending, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, status)

	_, err = ParseStatus("shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
