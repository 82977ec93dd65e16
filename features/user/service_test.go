package user

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"iglivez/worker/internal/adapter/telegram"
)

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Get(ctx context.Context, id int64) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}
func (m *MockRepo) Create(ctx context.Context, u *User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *MockRepo) Touch(ctx context.Context, id int64, seen time.Time) error {
	return m.Called(ctx, id, seen).Error(0)
}
func (m *MockRepo) SetPoints(ctx context.Context, id int64, points int, seen time.Time) error {
	return m.Called(ctx, id, points, seen).Error(0)
}
func (m *MockRepo) AddPoints(ctx context.Context, id int64, delta int) error {
	return m.Called(ctx, id, delta).Error(0)
}
func (m *MockRepo) SetLanguage(ctx context.Context, id int64, lang string) error {
	return m.Called(ctx, id, lang).Error(0)
}
func (m *MockRepo) SetNotifications(ctx context.Context, id int64, enabled bool) error {
	return m.Called(ctx, id, enabled).Error(0)
}
func (m *MockRepo) ExtendSubscription(ctx context.Context, id int64, d time.Duration) error {
	return m.Called(ctx, id, d).Error(0)
}
func (m *MockRepo) CountReferrals(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}
func (m *MockRepo) ListNotifiable(ctx context.Context) ([]User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]User), args.Error(1)
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

func newTestService(repo *MockRepo, tg *MockMessenger) *Service {
	return NewService(repo, tg, Config{
		DailyPoints:   3,
		ReferralBonus: 5,
		BotUsername:   "iglivez_bot",
	}, slog.Default())
}

func TestStart_NewUserGetsLanguagePicker(t *testing.T) {
	repo := new(MockRepo)
	tg := new(MockMessenger)
	svc := newTestService(repo, tg)

	repo.On("Get", mock.Anything, int64(42)).Return(nil, ErrNotFound)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *User) bool {
		return u.ID == 42 && u.Points == 3 && u.NotificationsEnabled && u.ReferredByID == nil
	})).Return(nil)
	tg.On("SendMessage", mock.Anything, int64(42), mock.Anything, mock.Anything).Return(int64(1), nil)

	err := svc.Start(context.Background(), 42, "alice", "Alice", "/start")

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	tg.AssertExpectations(t)
}

func TestStart_ReferralCreditsReferrer(t *testing.T) {
	repo := new(MockRepo)
	tg := new(MockMessenger)
	svc := newTestService(repo, tg)

	repo.On("Get", mock.Anything, int64(42)).Return(nil, ErrNotFound)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *User) bool {
		return u.ReferredByID != nil && *u.ReferredByID == 7
	})).Return(nil)
	repo.On("AddPoints", mock.Anything, int64(7), 5).Return(nil)
	tg.On("SendMessage", mock.Anything, int64(42), mock.Anything, mock.Anything).Return(int64(1), nil)

	err := svc.Start(context.Background(), 42, "alice", "Alice", "/start 7")

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestStart_SelfReferralIgnored(t *testing.T) {
	repo := new(MockRepo)
	tg := new(MockMessenger)
	svc := newTestService(repo, tg)

	repo.On("Get", mock.Anything, int64(42)).Return(nil, ErrNotFound)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *User) bool {
		return u.ReferredByID == nil
	})).Return(nil)
	tg.On("SendMessage", mock.Anything, int64(42), mock.Anything, mock.Anything).Return(int64(1), nil)

	err := svc.Start(context.Background(), 42, "alice", "Alice", "/start 42")

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "AddPoints", mock.Anything, mock.Anything, mock.Anything)
}

func TestStart_ReturningUserSameDayOnlyTouches(t *testing.T) {
	repo := new(MockRepo)
	tg := new(MockMessenger)
	svc := newTestService(repo, tg)

	now := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	repo.On("Get", mock.Anything, int64(42)).Return(&User{
		ID: 42, Language: LangEnglish, Points: 1, LastSeen: now.Add(-2 * time.Hour),
	}, nil)
	repo.On("Touch", mock.Anything, int64(42), now).Return(nil)
	tg.On("SendMessage", mock.Anything, int64(42), mock.Anything, mock.Anything).Return(int64(1), nil)

	err := svc.Start(context.Background(), 42, "alice", "Alice", "/start")

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "SetPoints", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStart_NewUTCDayResetsPoints(t *testing.T) {
	repo := new(MockRepo)
	tg := new(MockMessenger)
	svc := newTestService(repo, tg)

	now := time.Date(2025, 6, 2, 0, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	repo.On("Get", mock.Anything, int64(42)).Return(&User{
		ID: 42, Language: LangRussian, Points: 0,
		LastSeen: time.Date(2025, 6, 1, 23, 50, 0, 0, time.UTC),
	}, nil)
	repo.On("SetPoints", mock.Anything, int64(42), 3, now).Return(nil)
	tg.On("SendMessage", mock.Anything, int64(42), mock.Anything, mock.Anything).Return(int64(1), nil)

	err := svc.Start(context.Background(), 42, "alice", "Alice", "/start")

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestStart_PremiumUserSkipsDailyReset(t *testing.T) {
	repo := new(MockRepo)
	tg := new(MockMessenger)
	svc := newTestService(repo, tg)

	now := time.Date(2025, 6, 2, 0, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	subEnd := now.Add(48 * time.Hour)

	repo.On("Get", mock.Anything, int64(42)).Return(&User{
		ID: 42, Language: LangEnglish, Points: 0, SubscriptionEnd: &subEnd,
		LastSeen: now.Add(-24 * time.Hour),
	}, nil)
	repo.On("Touch", mock.Anything, int64(42), now).Return(nil)
	tg.On("SendMessage", mock.Anything, int64(42), mock.Anything, mock.Anything).Return(int64(1), nil)

	err := svc.Start(context.Background(), 42, "alice", "Alice", "/start")

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "SetPoints", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAccount_EditsInPlace(t *testing.T) {
	repo := new(MockRepo)
	tg := new(MockMessenger)
	svc := newTestService(repo, tg)

	repo.On("Get", mock.Anything, int64(42)).Return(&User{
		ID: 42, FirstName: "Alice", Language: LangEnglish, Points: 2,
	}, nil)
	repo.On("CountReferrals", mock.Anything, int64(42)).Return(4, nil)
	tg.On("EditMessageText", mock.Anything, int64(42), int64(100),
		mock.MatchedBy(func(text string) bool { return len(text) > 0 }), mock.Anything).Return(nil)

	err := svc.Account(context.Background(), 42, 42, 100)

	assert.NoError(t, err)
	tg.AssertExpectations(t)
}

func TestAccount_UnregisteredUserPromptedToStart(t *testing.T) {
	repo := new(MockRepo)
	tg := new(MockMessenger)
	svc := newTestService(repo, tg)

	repo.On("Get", mock.Anything, int64(42)).Return(nil, ErrNotFound)
	tg.On("SendMessage", mock.Anything, int64(42), mock.Anything, mock.Anything).Return(int64(1), nil)

	err := svc.Account(context.Background(), 42, 42, 100)

	assert.NoError(t, err)
	tg.AssertNotCalled(t, "EditMessageText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetLanguage_UnknownCodeIgnored(t *testing.T) {
	repo := new(MockRepo)
	tg := new(MockMessenger)
	svc := newTestService(repo, tg)

	err := svc.SetLanguage(context.Background(), 42, 42, 100, "de")

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "SetLanguage", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetInitialLanguage_FallsBackToEnglish(t *testing.T) {
	repo := new(MockRepo)
	tg := new(MockMessenger)
	svc := newTestService(repo, tg)

	repo.On("SetLanguage", mock.Anything, int64(42), LangEnglish).Return(nil)
	tg.On("EditMessageText", mock.Anything, int64(42), int64(100), mock.Anything, mock.Anything).Return(nil)

	err := svc.SetInitialLanguage(context.Background(), 42, 42, 100, "xx")

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestIsNewDay(t *testing.T) {
	tests := []struct {
		name string
		seen time.Time
		now  time.Time
		want bool
	}{
		{"SameDay", time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC), time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC), false},
		{"MidnightRollover", time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC), time.Date(2025, 6, 2, 0, 1, 0, 0, time.UTC), true},
		{"MonthRollover", time.Date(2025, 5, 31, 12, 0, 0, 0, time.UTC), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), true},
		{"YearRollover", time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNewDay(tt.seen, tt.now))
		})
	}
}
