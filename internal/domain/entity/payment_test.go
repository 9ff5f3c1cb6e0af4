package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/makini/pay-ledger/internal/domain/entity"
)

func TestPayment_CompletedIsCaseInsensitive(t *testing.T) {
	for _, status := range []string{"completed", "COMPLETED", "Completed"} {
		p := entity.NewPayment("T1", "ST001", 100, "KES", status, "card", "", "")
		assert.True(t, p.Completed(), "status %q", status)
	}

	for _, status := range []string{"pending", "failed", ""} {
		p := entity.NewPayment("T1", "ST001", 100, "KES", status, "card", "", "")
		assert.False(t, p.Completed(), "status %q", status)
	}
}

func TestStudent_ApplyPaymentIsSigned(t *testing.T) {
	s := entity.NewStudent("ST001", "Richard", "Smith", 2, "M")

	s.ApplyPayment(1000)
	assert.Equal(t, 1000.0, s.Balance())

	s.ApplyPayment(-1500)
	assert.Equal(t, -500.0, s.Balance())
}
