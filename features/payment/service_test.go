package payment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"iglivez/worker/features/user"
	"iglivez/worker/internal/adapter/telegram"
)

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Record(ctx context.Context, p *Payment) error {
	return m.Called(ctx, p).Error(0)
}
func (m *MockRepo) ListByUser(ctx context.Context, userID int64) ([]Payment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Payment), args.Error(1)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Get(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}
func (m *MockUserStore) AddPoints(ctx context.Context, id int64, delta int) error {
	return m.Called(ctx, id, delta).Error(0)
}
func (m *MockUserStore) ExtendSubscription(ctx context.Context, id int64, d time.Duration) error {
	return m.Called(ctx, id, d).Error(0)
}

type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) SendMessage(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) (int64, error) {
	args := m.Called(ctx, chatID, text, kb)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockMessenger) EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb telegram.Keyboard) error {
	return m.Called(ctx, chatID, messageID, text, kb).Error(0)
}
func (m *MockMessenger) SendInvoice(ctx context.Context, chatID int64, title, description, payload string, prices []telegram.LabeledPrice) error {
	return m.Called(ctx, chatID, title, description, payload, prices).Error(0)
}
func (m *MockMessenger) AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage string) error {
	return m.Called(ctx, queryID, ok, errorMessage).Error(0)
}

func newTestService(repo *MockRepo, users *MockUserStore, tg *MockMessenger) *Service {
	return NewService(repo, users, tg, slog.Default())
}

func TestBuy_ListsAllPackages(t *testing.T) {
	tg := new(MockMessenger)
	svc := newTestService(new(MockRepo), new(MockUserStore), tg)

	tg.On("EditMessageText", mock.Anything, int64(42), int64(100), mock.Anything,
		mock.MatchedBy(func(kb telegram.Keyboard) bool {
			// One row per package plus the back row.
			return len(kb) == len(Packages)+1 && kb[0][0].CallbackData == "pay:points_50"
		})).Return(nil)

	err := svc.Buy(context.Background(), 42, 42, 100)

	assert.NoError(t, err)
	tg.AssertExpectations(t)
}

func TestSendInvoice_BindsPackageAndBuyer(t *testing.T) {
	tg := new(MockMessenger)
	svc := newTestService(new(MockRepo), new(MockUserStore), tg)

	tg.On("SendInvoice", mock.Anything, int64(42), "7 Days Premium", mock.Anything,
		"premium_7d:42", []telegram.LabeledPrice{{Label: "7 Days Premium", Amount: 150}}).
		Return(nil)

	err := svc.SendInvoice(context.Background(), 42, "premium_7d")

	assert.NoError(t, err)
	tg.AssertExpectations(t)
}

func TestSendInvoice_UnknownPackage(t *testing.T) {
	tg := new(MockMessenger)
	svc := newTestService(new(MockRepo), new(MockUserStore), tg)

	err := svc.SendInvoice(context.Background(), 42, "premium_99y")

	assert.True(t, errors.Is(err, ErrUnknownPackage))
	tg.AssertNotCalled(t, "SendInvoice", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendInvoice_FailureNotifiesUser(t *testing.T) {
	tg := new(MockMessenger)
	svc := newTestService(new(MockRepo), new(MockUserStore), tg)

	tg.On("SendInvoice", mock.Anything, int64(42), mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("api down"))
	tg.On("SendMessage", mock.Anything, int64(42), mock.Anything, mock.Anything).Return(int64(1), nil)

	err := svc.SendInvoice(context.Background(), 42, "points_50")

	assert.Error(t, err)
	tg.AssertExpectations(t)
}

func TestPreCheckout_Approves(t *testing.T) {
	tg := new(MockMessenger)
	svc := newTestService(new(MockRepo), new(MockUserStore), tg)

	tg.On("AnswerPreCheckoutQuery", mock.Anything, "q1", true, "").Return(nil)

	err := svc.PreCheckout(context.Background(), "q1", 42, "premium_7d:42")

	assert.NoError(t, err)
	tg.AssertExpectations(t)
}

func TestPreCheckout_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantMsg string
	}{
		{"MalformedPayload", "premium_7d", "Payment validation failed"},
		{"UserMismatch", "premium_7d:777", "User verification failed"},
		{"UnknownPackage", "premium_99y:42", "Invalid package"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := new(MockMessenger)
			svc := newTestService(new(MockRepo), new(MockUserStore), tg)

			tg.On("AnswerPreCheckoutQuery", mock.Anything, "q1", false, tt.wantMsg).Return(nil)

			err := svc.PreCheckout(context.Background(), "q1", 42, tt.payload)

			assert.NoError(t, err)
			tg.AssertExpectations(t)
		})
	}
}

func TestApplySuccessfulPayment_Points(t *testing.T) {
	repo := new(MockRepo)
	users := new(MockUserStore)
	tg := new(MockMessenger)
	svc := newTestService(repo, users, tg)

	repo.On("Record", mock.Anything, mock.MatchedBy(func(p *Payment) bool {
		return p.UserID == 42 && p.PackageType == "points_100" && p.Status == StatusCompleted && p.CompletedAt != nil
	})).Return(nil)
	users.On("AddPoints", mock.Anything, int64(42), 100).Return(nil)
	users.On("Get", mock.Anything, int64(42)).Return(&user.User{ID: 42, Points: 103}, nil)
	tg.On("SendMessage", mock.Anything, int64(42),
		mock.MatchedBy(func(text string) bool { return strings.Contains(text, "103 points") }),
		mock.Anything).Return(int64(1), nil)

	err := svc.ApplySuccessfulPayment(context.Background(), 42, "charge_a", 90, "points_100:42")

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestApplySuccessfulPayment_Premium(t *testing.T) {
	repo := new(MockRepo)
	users := new(MockUserStore)
	tg := new(MockMessenger)
	svc := newTestService(repo, users, tg)

	repo.On("Record", mock.Anything, mock.Anything).Return(nil)
	users.On("ExtendSubscription", mock.Anything, int64(42), 7*24*time.Hour).Return(nil)
	tg.On("SendMessage", mock.Anything, int64(42), mock.Anything, mock.Anything).Return(int64(1), nil)

	err := svc.ApplySuccessfulPayment(context.Background(), 42, "charge_b", 150, "premium_7d:42")

	assert.NoError(t, err)
	users.AssertExpectations(t)
}

func TestApplySuccessfulPayment_UserMismatch(t *testing.T) {
	repo := new(MockRepo)
	svc := newTestService(repo, new(MockUserStore), new(MockMessenger))

	err := svc.ApplySuccessfulPayment(context.Background(), 42, "charge_c", 150, "premium_7d:777")

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestApplySuccessfulPayment_LostConfirmationDoesNotFail(t *testing.T) {
	repo := new(MockRepo)
	users := new(MockUserStore)
	tg := new(MockMessenger)
	svc := newTestService(repo, users, tg)

	repo.On("Record", mock.Anything, mock.Anything).Return(nil)
	users.On("ExtendSubscription", mock.Anything, int64(42), mock.Anything).Return(nil)
	tg.On("SendMessage", mock.Anything, int64(42), mock.Anything, mock.Anything).
		Return(int64(0), errors.New("blocked by user"))

	err := svc.ApplySuccessfulPayment(context.Background(), 42, "charge_d", 500, "premium_30d:42")

	assert.NoError(t, err)
}

func TestParsePayload(t *testing.T) {
	pkg, uid, err := parsePayload("premium_7d:42")
	assert.NoError(t, err)
	assert.Equal(t, "premium_7d", pkg)
	assert.Equal(t, int64(42), uid)

	_, _, err = parsePayload("premium_7d")
	assert.Error(t, err)

	_, _, err = parsePayload("premium_7d:notanumber")
	assert.Error(t, err)
}
