package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academybook/internal/domain"
)

func TestAuditRepository_RecordAndList(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, domain.AuditEvent{
		ActionType: domain.AuditBookingApproved,
		Severity:   domain.SeverityHigh,
		Label:      "Booking approved",
		EntityType: "booking",
		EntityID:   "bk_1",
		UserID:     7,
		AcademyID:  10,
		Metadata:   map[string]any{"booking_user_id": float64(42)},
	}))
	require.NoError(t, repo.Record(ctx, domain.AuditEvent{
		ActionType: domain.AuditBookingCancelled,
		Severity:   domain.SeverityMedium,
		Label:      "Booking cancelled",
		EntityType: "booking",
		EntityID:   "bk_1",
		UserID:     7,
		AcademyID:  10,
	}))
	require.NoError(t, repo.Record(ctx, domain.AuditEvent{
		ActionType: domain.AuditBookingRejected,
		Severity:   domain.SeverityMedium,
		EntityType: "booking",
		EntityID:   "bk_other",
		UserID:     8,
		AcademyID:  11,
	}))

	events, err := repo.ListForEntity(ctx, "booking", "bk_1", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	for _, e := range events {
		assert.Equal(t, "bk_1", e.EntityID)
		assert.NotEmpty(t, e.ID, "record assigns an id")
	}

	var approved *domain.AuditEvent
	for i := range events {
		if events[i].ActionType == domain.AuditBookingApproved {
			approved = &events[i]
		}
	}
	require.NotNil(t, approved)
	assert.Equal(t, domain.SeverityHigh, approved.Severity)
	assert.Equal(t, map[string]any{"booking_user_id": float64(42)}, approved.Metadata)
}

func TestAuditRepository_ListLimitDefaults(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, repo.Record(ctx, domain.AuditEvent{
			ActionType: domain.AuditBookingApproved,
			Severity:   domain.SeverityLow,
			EntityType: "booking",
			EntityID:   "bk_many",
		}))
	}

	events, err := repo.ListForEntity(ctx, "booking", "bk_many", 0)
	require.NoError(t, err)
	assert.Len(t, events, 20)
}

func TestDeviceTokenRepository_UpsertAndLookup(t *testing.T) {
	db := openTestDB(t)
	repo := NewDeviceTokenRepository(db)
	ctx := context.Background()

	_, err := repo.TokenForUser(ctx, 42)
	require.Error(t, err, "no token registered yet")

	require.NoError(t, repo.Upsert(ctx, 42, "tok-a"))
	token, err := repo.TokenForUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "tok-a", token)

	// Second upsert replaces, it does not duplicate.
	require.NoError(t, repo.Upsert(ctx, 42, "tok-b"))
	token, err = repo.TokenForUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "tok-b", token)

	var count int64
	require.NoError(t, db.Model(&deviceTokenModel{}).Where("user_id = ?", int64(42)).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPayoutAccountRepository_StakeholderLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewPayoutAccountRepository(db)
	ctx := context.Background()

	acc := &domain.PayoutAccount{AccountID: "pa_1", AcademyID: 10}
	require.NoError(t, repo.Create(ctx, acc))
	assert.NotZero(t, acc.ID)

	stored, err := repo.GetByAccountID(ctx, "pa_1")
	require.NoError(t, err)
	assert.Empty(t, stored.StakeholderID)

	require.NoError(t, repo.SetStakeholderID(ctx, "pa_1", "stk_9"))
	stored, err = repo.GetByAccountID(ctx, "pa_1")
	require.NoError(t, err)
	assert.Equal(t, "stk_9", stored.StakeholderID)

	_, err = repo.GetByAccountID(ctx, "pa_missing")
	require.Error(t, err)
}
