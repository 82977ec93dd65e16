package worker

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
	"iglivez/worker/features/job"
)

type MockUserFlows struct {
	mock.Mock
}

func (m *MockUserFlows) Start(ctx context.Context, userID int64, username, firstName, text string) error {
	return m.Called(ctx, userID, username, firstName, text).Error(0)
}
func (m *MockUserFlows) Account(ctx context.Context, userID, chatID, messageID int64) error {
	return m.Called(ctx, userID, chatID, messageID).Error(0)
}
func (m *MockUserFlows) Referrals(ctx context.Context, userID, chatID, messageID int64) error {
	return m.Called(ctx, userID, chatID, messageID).Error(0)
}
func (m *MockUserFlows) Help(ctx context.Context, userID, chatID, messageID int64) error {
	return m.Called(ctx, userID, chatID, messageID).Error(0)
}
func (m *MockUserFlows) Settings(ctx context.Context, userID, chatID, messageID int64) error {
	return m.Called(ctx, userID, chatID, messageID).Error(0)
}
func (m *MockUserFlows) Back(ctx context.Context, userID, chatID, messageID int64) error {
	return m.Called(ctx, userID, chatID, messageID).Error(0)
}
func (m *MockUserFlows) LanguagePicker(ctx context.Context, userID, chatID, messageID int64) error {
	return m.Called(ctx, userID, chatID, messageID).Error(0)
}
func (m *MockUserFlows) SetLanguage(ctx context.Context, userID, chatID, messageID int64, code string) error {
	return m.Called(ctx, userID, chatID, messageID, code).Error(0)
}
func (m *MockUserFlows) SetInitialLanguage(ctx context.Context, userID, chatID, messageID int64, code string) error {
	return m.Called(ctx, userID, chatID, messageID, code).Error(0)
}

type MockStreamFlows struct {
	mock.Mock
}

func (m *MockStreamFlows) CheckLive(ctx context.Context, userID, chatID, messageID int64, page int) error {
	return m.Called(ctx, userID, chatID, messageID, page).Error(0)
}

type MockPaymentFlows struct {
	mock.Mock
}

func (m *MockPaymentFlows) Buy(ctx context.Context, userID, chatID, messageID int64) error {
	return m.Called(ctx, userID, chatID, messageID).Error(0)
}
func (m *MockPaymentFlows) SendInvoice(ctx context.Context, userID int64, packageID string) error {
	return m.Called(ctx, userID, packageID).Error(0)
}
func (m *MockPaymentFlows) PreCheckout(ctx context.Context, queryID string, senderID int64, invoicePayload string) error {
	return m.Called(ctx, queryID, senderID, invoicePayload).Error(0)
}
func (m *MockPaymentFlows) ApplySuccessfulPayment(ctx context.Context, senderID int64, chargeID string, totalAmount int, invoicePayload string) error {
	return m.Called(ctx, senderID, chargeID, totalAmount, invoicePayload).Error(0)
}

type MockBroadcastFlows struct {
	mock.Mock
}

func (m *MockBroadcastFlows) Execute(ctx context.Context, raw json.RawMessage) error {
	return m.Called(ctx, raw).Error(0)
}
func (m *MockBroadcastFlows) HandleCommand(ctx context.Context, adminID int64, text string) error {
	return m.Called(ctx, adminID, text).Error(0)
}

type MockNotifyFlows struct {
	mock.Mock
}

func (m *MockNotifyFlows) NotifyLive(ctx context.Context, entityKey, link string) error {
	return m.Called(ctx, entityKey, link).Error(0)
}
func (m *MockNotifyFlows) Toggle(ctx context.Context, userID, chatID, messageID int64) error {
	return m.Called(ctx, userID, chatID, messageID).Error(0)
}
func (m *MockNotifyFlows) Clear(ctx context.Context, userID, chatID, messageID int64) error {
	return m.Called(ctx, userID, chatID, messageID).Error(0)
}

type MockJoinApprover struct {
	mock.Mock
}

func (m *MockJoinApprover) ApproveChatJoinRequest(ctx context.Context, chatID, userID int64) error {
	return m.Called(ctx, chatID, userID).Error(0)
}

type MockStreamStore struct {
	mock.Mock
}

func (m *MockStreamStore) SetLiveStatus(ctx context.Context, username, link string, isLive bool) (bool, error) {
	args := m.Called(ctx, username, link, isLive)
	return args.Bool(0), args.Error(1)
}

type MockJobEnqueuer struct {
	mock.Mock
}

func (m *MockJobEnqueuer) Enqueue(ctx context.Context, jobType job.Type, payload json.RawMessage) (int64, error) {
	args := m.Called(ctx, jobType, payload)
	return args.Get(0).(int64), args.Error(1)
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allowed(subjectID int64, action string) bool { return true }

type denyAllLimiter struct{}

func (denyAllLimiter) Allowed(subjectID int64, action string) bool { return false }
