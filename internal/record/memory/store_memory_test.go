package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"certpass/internal/record"
	"certpass/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) TestSaveAndFind() {
	rec := record.Record{
		Fingerprint:        "369c1e3444d8ae3f63412d05663acd8476a3b198036903976c0e1632d9368434",
		Name:               "MEHUL KHARE",
		Email:              "mehul@example.com",
		RegistrationNumber: "24BAI10631",
		TeamID:             "1",
		EventName:          "Linpack 2025",
		IssuedOn:           "2025-03-14",
		CustomFields:       map[string]string{"college": "VIT Bhopal"},
	}
	s.Require().NoError(s.store.Save(s.ctx, rec))

	got, err := s.store.FindByFingerprint(s.ctx, rec.Fingerprint)
	s.Require().NoError(err)
	s.Equal("MEHUL KHARE", got.Name)
	s.Equal("2025-03-14", got.IssuedOn)
	s.Equal("VIT Bhopal", got.CustomFields["college"])
	s.False(got.CreatedAt.IsZero(), "CreatedAt stamped on save")
}

func (s *MemoryStoreSuite) TestFindMiss() {
	_, err := s.store.FindByFingerprint(s.ctx, "0000000000000000000000000000000000000000000000000000000000000000")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestUpsertByFingerprint() {
	fp := "369c1e3444d8ae3f63412d05663acd8476a3b198036903976c0e1632d9368434"
	s.Require().NoError(s.store.Save(s.ctx, record.Record{Fingerprint: fp, Name: "first"}))
	s.Require().NoError(s.store.Save(s.ctx, record.Record{Fingerprint: fp, Name: "second"}))

	got, err := s.store.FindByFingerprint(s.ctx, fp)
	s.Require().NoError(err)
	s.Equal("second", got.Name, "last write wins for team-scoped fingerprints")
	s.Equal(1, s.store.Len())
}

func (s *MemoryStoreSuite) TestReturnedRecordIsDetached() {
	fp := "369c1e3444d8ae3f63412d05663acd8476a3b198036903976c0e1632d9368434"
	s.Require().NoError(s.store.Save(s.ctx, record.Record{
		Fingerprint:  fp,
		CustomFields: map[string]string{"k": "v"},
	}))

	got, err := s.store.FindByFingerprint(s.ctx, fp)
	require.NoError(s.T(), err)
	got.CustomFields["k"] = "mutated"

	again, err := s.store.FindByFingerprint(s.ctx, fp)
	require.NoError(s.T(), err)
	s.Equal("v", again.CustomFields["k"])
}
