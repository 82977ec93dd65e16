package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"iglivez/worker/internal/config"
)

type IntegrationSuite struct {
	T   *testing.T
	DB  *sql.DB
	NSQ *nsq.Producer

	// Mapped address of the Postgres container.
	DBHost string
	DBPort int

	// NSQDAddr is the mapped TCP address of the nsqd container, for
	// wiring consumers directly at it.
	NSQDAddr string

	// Containers
	pgContainer  *postgres.PostgresContainer
	nsqContainer testcontainers.Container

	withNSQ bool
}

func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	return &IntegrationSuite{T: t}
}

// WithNSQ makes Setup also start an nsqd container. Most suites only
// need Postgres.
func (s *IntegrationSuite) WithNSQ() *IntegrationSuite {
	s.withNSQ = true
	return s
}

func (s *IntegrationSuite) Setup() {
	ctx := context.Background()

	// 1. Postgres
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("iglivez_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T, err)
	s.pgContainer = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T, err)

	s.DBHost, err = pgContainer.Host(ctx)
	require.NoError(s.T, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(s.T, err)
	s.DBPort = pgPort.Int()

	s.DB, err = sql.Open("postgres", connStr)
	require.NoError(s.T, err)

	// Run Migrations
	_, b, _, _ := runtime.Caller(0)
	basepath := filepath.Dir(b)
	migrationPath := fmt.Sprintf("file://%s/../../migrations", basepath)

	m, err := migrate.New(migrationPath, connStr)
	require.NoError(s.T, err)
	require.NoError(s.T, m.Up())

	if !s.withNSQ {
		return
	}

	// 2. NSQ
	nsqReq := testcontainers.ContainerRequest{
		Image:        "nsqio/nsq:v1.3.0",
		ExposedPorts: []string{"4150/tcp", "4151/tcp"},
		Cmd:          []string{"/nsqd", "--broadcast-address=localhost"}, // Simplified for test
		WaitingFor:   wait.ForLog("TCP: listening on").WithStartupTimeout(60 * time.Second),
	}
	nsqC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: nsqReq,
		Started:          true,
	})
	require.NoError(s.T, err)
	s.nsqContainer = nsqC

	nsqHost, err := nsqC.Host(ctx)
	require.NoError(s.T, err)
	nsqPort, err := nsqC.MappedPort(ctx, "4150")
	require.NoError(s.T, err)

	s.NSQDAddr = fmt.Sprintf("%s:%s", nsqHost, nsqPort.Port())

	nsqCfg := nsq.NewConfig()
	s.NSQ, err = nsq.NewProducer(s.NSQDAddr, nsqCfg)
	require.NoError(s.T, err)
}

// GetAppConfig returns a Config pointed at the suite's containers, with
// production-like defaults for everything else.
func (s *IntegrationSuite) GetAppConfig() *config.Config {
	return &config.Config{
		DBHost: s.DBHost,
		DBPort: s.DBPort,
		DBUser: "test",
		DBPass: "test",
		DBName: "iglivez_test",

		NSQDHost: s.NSQDAddr,

		BotToken:    "test-token",
		BotUsername: "IGLiveZBot",

		RunOnce:                 true,
		PollingIntervalSeconds:  1,
		RetryCeiling:            3,
		SlowJobThresholdSeconds: 5,
		StuckJobResetMinutes:    15,

		AutoBroadcastThreshold:            10,
		AutoBroadcastCooldownHours:        24,
		AutoBroadcastCheckIntervalSeconds: 300,

		RateCheckLiveMax:         5,
		RateCheckLiveWindowSec:   60,
		RateLiveCheckLogicMax:    10,
		RateLiveCheckLogicWinSec: 60,
		RateButtonClickMax:       20,
		RateButtonClickWindowSec: 60,
		RatePaymentMax:           3,
		RatePaymentWindowSec:     300,
		RateMessageMax:           10,
		RateMessageWindowSec:     60,

		DefaultDailyPoints:  3,
		ReferralBonusPoints: 5,
		LiveStreamsPerPage:  5,

		ServerPort:    8082,
		MigrationPath: "file://../../migrations",

		BootstrapRetryAttempts:     3,
		BootstrapRetryDelaySeconds: 1,
	}
}

func (s *IntegrationSuite) Teardown() {
	ctx := context.Background()
	if s.NSQ != nil {
		s.NSQ.Stop()
	}
	if s.pgContainer != nil {
		s.pgContainer.Terminate(ctx)
	}
	if s.nsqContainer != nil {
		s.nsqContainer.Terminate(ctx)
	}
}
