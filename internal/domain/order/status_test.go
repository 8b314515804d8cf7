package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"pending", "pending_review", "processing", "shipped", "delivered", "cancelled"} {
		s, ok := ParseStatus(valid)
		assert.True(t, ok, valid)
		assert.Equal(t, Status(valid), s)
	}

	_, ok := ParseStatus("refunded")
	assert.False(t, ok)
	_, ok = ParseStatus("")
	assert.False(t, ok)
}

func TestOverridableStatus(t *testing.T) {
	assert.True(t, OverridableStatus(StatusShipped))
	assert.True(t, OverridableStatus(StatusDelivered))
	assert.True(t, OverridableStatus(StatusCancelled))
	assert.True(t, OverridableStatus(StatusPending))
	assert.True(t, OverridableStatus(StatusProcessing))

	// The only way into review is an actual receipt upload.
	assert.False(t, OverridableStatus(StatusPendingReview))
	assert.False(t, OverridableStatus("refunded"))
}
