package payout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"academybook/internal/domain"
)

type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) CreateStakeholder(ctx context.Context, accountID string, data domain.StakeholderData) (string, error) {
	args := m.Called(ctx, accountID, data)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) CreateTransfer(ctx context.Context, payoutID, accountID string, amount float64, currency, notes string) error {
	args := m.Called(ctx, payoutID, accountID, amount, currency, notes)
	return args.Error(0)
}

type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) GetByAccountID(ctx context.Context, accountID string) (*domain.PayoutAccount, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayoutAccount), args.Error(1)
}

func (m *MockAccountStore) SetStakeholderID(ctx context.Context, accountID, stakeholderID string) error {
	args := m.Called(ctx, accountID, stakeholderID)
	return args.Error(0)
}

func stakeholderJob(t *testing.T) *domain.Job {
	t.Helper()
	payload, err := json.Marshal(StakeholderJobPayload{
		AccountID:       "acc_provider_1",
		PayoutAccountID: "pa_1",
		StakeholderData: domain.StakeholderData{
			Name:         "Asha Rao",
			Email:        "asha@example.com",
			Phone:        "+911234567890",
			Relationship: "owner",
			KYC:          domain.StakeholderKYC{PAN: "ABCDE1234F"},
		},
		AutoCreated: true,
	})
	require.NoError(t, err)
	return &domain.Job{ID: "job_1", Type: domain.JobStakeholderCreate, Payload: payload}
}

func TestStakeholderCreate_Success(t *testing.T) {
	provider := new(MockPaymentProvider)
	accounts := new(MockAccountStore)
	ctx := context.Background()

	provider.On("CreateStakeholder", ctx, "acc_provider_1", mock.Anything).Return("stk_9", nil)
	accounts.On("SetStakeholderID", ctx, "pa_1", "stk_9").Return(nil)
	accounts.On("GetByAccountID", ctx, "pa_1").
		Return(&domain.PayoutAccount{AccountID: "pa_1", StakeholderID: "stk_9"}, nil)

	h := stakeholderCreateHandler(provider, accounts, zap.NewNop())
	assert.NoError(t, h(ctx, stakeholderJob(t)))

	provider.AssertExpectations(t)
	accounts.AssertExpectations(t)
}

func TestStakeholderCreate_VerifyMismatchFails(t *testing.T) {
	provider := new(MockPaymentProvider)
	accounts := new(MockAccountStore)
	ctx := context.Background()

	provider.On("CreateStakeholder", ctx, "acc_provider_1", mock.Anything).Return("stk_9", nil)
	accounts.On("SetStakeholderID", ctx, "pa_1", "stk_9").Return(nil)
	// The read-back holds someone else's id: wrote the wrong value.
	accounts.On("GetByAccountID", ctx, "pa_1").
		Return(&domain.PayoutAccount{AccountID: "pa_1", StakeholderID: "stk_other"}, nil)

	h := stakeholderCreateHandler(provider, accounts, zap.NewNop())
	err := h(ctx, stakeholderJob(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestStakeholderCreate_RecordMissingFails(t *testing.T) {
	provider := new(MockPaymentProvider)
	accounts := new(MockAccountStore)
	ctx := context.Background()

	provider.On("CreateStakeholder", ctx, "acc_provider_1", mock.Anything).Return("stk_9", nil)
	accounts.On("SetStakeholderID", ctx, "pa_1", "stk_9").Return(nil)
	accounts.On("GetByAccountID", ctx, "pa_1").Return(nil, gorm.ErrRecordNotFound)

	h := stakeholderCreateHandler(provider, accounts, zap.NewNop())
	err := h(ctx, stakeholderJob(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "lost")
}

func TestStakeholderCreate_ProviderErrorRetries(t *testing.T) {
	provider := new(MockPaymentProvider)
	accounts := new(MockAccountStore)
	ctx := context.Background()

	provider.On("CreateStakeholder", ctx, "acc_provider_1", mock.Anything).
		Return("", errors.New("kyc service timeout"))

	h := stakeholderCreateHandler(provider, accounts, zap.NewNop())
	err := h(ctx, stakeholderJob(t))

	require.Error(t, err)
	accounts.AssertNotCalled(t, "SetStakeholderID", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransferHandler(t *testing.T) {
	provider := new(MockPaymentProvider)
	ctx := context.Background()

	payload, err := json.Marshal(TransferJobPayload{
		PayoutID:  "p1",
		AccountID: "acc_provider_1",
		Amount:    2500,
		Currency:  "INR",
		Notes:     "weekly payout",
	})
	require.NoError(t, err)

	provider.On("CreateTransfer", ctx, "p1", "acc_provider_1", 2500.0, "INR", "weekly payout").Return(nil)

	h := transferHandler(provider)
	assert.NoError(t, h(ctx, &domain.Job{ID: "job_2", Payload: payload}))
	provider.AssertExpectations(t)
}

func TestTransferHandler_BadPayload(t *testing.T) {
	h := transferHandler(new(MockPaymentProvider))
	err := h(context.Background(), &domain.Job{Payload: []byte("{")})
	assert.Error(t, err)
}
