package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventPropertyTransferred.Category())
	assert.Equal(t, CategorySecurity, EventDecryptRequested.Category())
	assert.Equal(t, CategoryOperations, EventWalletConnected.Category())
	assert.Equal(t, CategorySecurity, EventSignInRejected.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("unknown").Category())
}

func TestPrepare(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	e := Event{Action: EventProofRejected, Category: CategoryOperations}.Prepare(now)
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, CategorySecurity, e.Category)
	assert.Equal(t, now, e.Timestamp)

	fixed := uuid.New()
	earlier := now.Add(-time.Hour)
	e = Event{ID: fixed, Action: EventWalletConnected, Timestamp: earlier}.Prepare(now)
	assert.Equal(t, fixed, e.ID)
	assert.Equal(t, earlier, e.Timestamp)
}
