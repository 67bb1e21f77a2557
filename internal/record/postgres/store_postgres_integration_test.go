//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"certpass/internal/fingerprint"
	"certpass/internal/record"
	"certpass/internal/record/postgres"
	"certpass/pkg/platform/sentinel"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	store     *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("certpass"),
		tcpostgres.WithUsername("certpass"),
		tcpostgres.WithPassword("certpass"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	pool, err := postgres.Connect(ctx, url)
	s.Require().NoError(err)
	s.pool = pool

	_, err = pool.Exec(ctx, postgres.Schema)
	s.Require().NoError(err)

	s.store = postgres.New(pool)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), "TRUNCATE certificate_records")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestSaveAndFind() {
	ctx := context.Background()
	rec := record.Record{
		Fingerprint:        "369c1e3444d8ae3f63412d05663acd8476a3b198036903976c0e1632d9368434",
		Name:               "MEHUL KHARE",
		Email:              "mehul@example.com",
		RegistrationNumber: "24BAI10631",
		TeamID:             "1",
		EventName:          "Linpack 2025",
		IssuedOn:           "2025-03-14",
		CustomFields:       map[string]string{"college": "VIT Bhopal"},
		HashConfig: fingerprint.Config{
			IncludeName:               true,
			IncludeRegistrationNumber: true,
			IncludeTeamID:             true,
			CustomFieldKeys:           []string{"college"},
		},
		CreatedAt: time.Now(),
	}
	s.Require().NoError(s.store.Save(ctx, rec))

	got, err := s.store.FindByFingerprint(ctx, rec.Fingerprint)
	s.Require().NoError(err)
	s.Equal(rec.Name, got.Name)
	s.Equal(rec.IssuedOn, got.IssuedOn)
	s.Equal("VIT Bhopal", got.CustomFields["college"])
	s.Equal(rec.HashConfig, got.HashConfig)
}

func (s *PostgresStoreSuite) TestFindMiss() {
	_, err := s.store.FindByFingerprint(context.Background(),
		"0000000000000000000000000000000000000000000000000000000000000000")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpsert() {
	ctx := context.Background()
	fp := "097e5036fed7680e4180b73e2e985a16fdbc723747bb19b076e94c155946b5d0"

	s.Require().NoError(s.store.Save(ctx, record.Record{Fingerprint: fp, Name: "first", Email: "a@b.dev"}))
	s.Require().NoError(s.store.Save(ctx, record.Record{Fingerprint: fp, Name: "second", Email: "a@b.dev"}))

	got, err := s.store.FindByFingerprint(ctx, fp)
	s.Require().NoError(err)
	s.Equal("second", got.Name)
}
