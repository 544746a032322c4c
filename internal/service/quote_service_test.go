package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/pricing"
)

type fakeQuoteStore struct {
	records   []domain.QuoteRecord
	insertErr error
}

func (s *fakeQuoteStore) Insert(_ context.Context, q domain.QuoteRecord) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.records = append(s.records, q)
	return nil
}

func (s *fakeQuoteStore) ListRecent(_ context.Context, limit int) ([]domain.QuoteRecord, error) {
	if limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]domain.QuoteRecord, limit)
	copy(out, s.records[len(s.records)-limit:])
	return out, nil
}

type fakeQuoteCache struct {
	entries map[string]domain.PremiumBreakdown
	hits    int
	sets    int
}

func newFakeQuoteCache() *fakeQuoteCache {
	return &fakeQuoteCache{entries: make(map[string]domain.PremiumBreakdown)}
}

func (c *fakeQuoteCache) Set(_ context.Context, fp string, b domain.PremiumBreakdown, _ time.Duration) error {
	c.entries[fp] = b
	c.sets++
	return nil
}

func (c *fakeQuoteCache) Get(_ context.Context, fp string) (domain.PremiumBreakdown, error) {
	b, ok := c.entries[fp]
	if !ok {
		return domain.PremiumBreakdown{}, domain.ErrNotFound
	}
	c.hits++
	return b, nil
}

var (
	_ domain.QuoteStore = (*fakeQuoteStore)(nil)
	_ domain.QuoteCache = (*fakeQuoteCache)(nil)
)

func newQuoteHarness(t *testing.T) (*QuoteService, *fakeQuoteStore, *fakeQuoteCache) {
	t.Helper()
	calc := pricing.NewCalculator(
		pricing.DefaultJobTypeWeights(),
		pricing.DefaultIndustryWeights(),
		pricing.DefaultRates(),
	)
	store := &fakeQuoteStore{}
	cache := newFakeQuoteCache()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewQuoteService(calc, store, cache, 10*time.Minute, logger), store, cache
}

func sampleQuote() domain.PolicyQuote {
	rep := 85.0
	return domain.PolicyQuote{
		CoverageAmount:  5_000,
		PeriodDays:      60,
		JobType:         domain.JobDesign,
		Industry:        domain.IndustryRetail,
		ReputationScore: &rep,
	}
}

func TestQuotePricesAndAudits(t *testing.T) {
	svc, store, cache := newQuoteHarness(t)

	b, err := svc.Quote(context.Background(), sampleQuote())
	require.NoError(t, err)
	assert.Greater(t, b.Premium, 0.0)
	assert.GreaterOrEqual(t, b.RiskScore, 0.0)
	assert.LessOrEqual(t, b.RiskScore, 100.0)

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 5_000.0, rec.CoverageAmount)
	assert.Equal(t, 85.0, rec.ReputationScore)
	assert.Equal(t, b.Premium, rec.Premium)

	assert.Equal(t, 1, cache.sets)
}

func TestQuoteCacheHitSkipsRepricing(t *testing.T) {
	svc, store, cache := newQuoteHarness(t)

	first, err := svc.Quote(context.Background(), sampleQuote())
	require.NoError(t, err)

	second, err := svc.Quote(context.Background(), sampleQuote())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.hits)
	// No second audit row for a cached answer.
	assert.Len(t, store.records, 1)
}

func TestQuoteDifferentInputsMissCache(t *testing.T) {
	svc, store, _ := newQuoteHarness(t)

	_, err := svc.Quote(context.Background(), sampleQuote())
	require.NoError(t, err)

	q := sampleQuote()
	q.CoverageAmount = 7_500
	_, err = svc.Quote(context.Background(), q)
	require.NoError(t, err)

	assert.Len(t, store.records, 2)
}

func TestQuoteValidationErrorIsNotCachedOrAudited(t *testing.T) {
	svc, store, cache := newQuoteHarness(t)

	q := sampleQuote()
	q.CoverageAmount = -1
	_, err := svc.Quote(context.Background(), q)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "coverage_amount", ve.Field)
	assert.Empty(t, store.records)
	assert.Zero(t, cache.sets)
}

func TestQuoteAuditRecordsDefaultReputation(t *testing.T) {
	svc, store, _ := newQuoteHarness(t)

	q := sampleQuote()
	q.ReputationScore = nil
	b, err := svc.Quote(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, store.records, 1)
	assert.Equal(t, float64(pricing.DefaultReputationScore), store.records[0].ReputationScore)

	// The audit row reflects the score the calculator actually priced with.
	rep := float64(pricing.DefaultReputationScore)
	explicit := sampleQuote()
	explicit.ReputationScore = &rep
	b2, err := svc.Quote(context.Background(), explicit)
	require.NoError(t, err)
	assert.Equal(t, b.Premium, b2.Premium)
}

func TestQuoteAuditFailureIsBestEffort(t *testing.T) {
	svc, store, _ := newQuoteHarness(t)
	store.insertErr = errors.New("connection refused")

	b, err := svc.Quote(context.Background(), sampleQuote())
	require.NoError(t, err)
	assert.Greater(t, b.Premium, 0.0)
}

func TestQuoteNilCachePricesFresh(t *testing.T) {
	calc := pricing.NewCalculator(
		pricing.DefaultJobTypeWeights(),
		pricing.DefaultIndustryWeights(),
		pricing.DefaultRates(),
	)
	store := &fakeQuoteStore{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := NewQuoteService(calc, store, nil, time.Minute, logger)

	_, err := svc.Quote(context.Background(), sampleQuote())
	require.NoError(t, err)
	_, err = svc.Quote(context.Background(), sampleQuote())
	require.NoError(t, err)

	assert.Len(t, store.records, 2)
}

func TestRecentQuotes(t *testing.T) {
	svc, store, _ := newQuoteHarness(t)

	for i := range 3 {
		q := sampleQuote()
		q.CoverageAmount += float64(i * 100)
		_, err := svc.Quote(context.Background(), q)
		require.NoError(t, err)
	}
	require.Len(t, store.records, 3)

	recent, err := svc.RecentQuotes(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
