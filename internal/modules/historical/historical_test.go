package historical

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aristath/hodl/internal/domain"
	"github.com/aristath/hodl/internal/work"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPriceProvider is a mock implementation of PriceProvider
type MockPriceProvider struct {
	mock.Mock
}

func (m *MockPriceProvider) History(ctx context.Context, ticker, interval, period string) ([]domain.Bar, error) {
	args := m.Called(ctx, ticker, interval, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Bar), args.Error(1)
}

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func bars(days ...int) []domain.Bar {
	out := make([]domain.Bar, len(days))
	for i, d := range days {
		price := 100 + float64(d)/2
		out[i] = domain.Bar{
			Date:     day(d),
			Open:     price,
			High:     price + 1,
			Low:      price - 1,
			Close:    price + 0.25,
			AdjClose: price + 0.25,
			Volume:   int64(1000 * d),
		}
	}
	return out
}

func newTestSynchronizer(t *testing.T, provider PriceProvider, now time.Time) (*Synchronizer, *Store) {
	t.Helper()
	store := NewStore(t.TempDir(), zerolog.Nop())
	pool := work.NewPool(2, time.Second, zerolog.Nop())
	s := NewSynchronizer(provider, store, pool, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s, store
}

func TestRefetchPeriod(t *testing.T) {
	tests := []struct {
		delta  int
		period string
		ok     bool
	}{
		{-3, "", false},
		{0, "", false},
		{1, "1y", true},
		{364, "1y", true},
		{365, "10y", true},
		{3649, "10y", true},
		{3650, "20y", true},
		{7299, "20y", true},
		{7300, "30y", true},
		{20000, "30y", true},
	}

	for _, tt := range tests {
		period, ok := RefetchPeriod(tt.delta)
		assert.Equal(t, tt.ok, ok, "delta %d", tt.delta)
		assert.Equal(t, tt.period, period, "delta %d", tt.delta)
	}
}

func TestStore_CreateAndRead(t *testing.T) {
	store := NewStore(t.TempDir(), zerolog.Nop())

	written, err := store.Write("EUNL", "1d", bars(3, 2, 2, 4))
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	data, err := os.ReadFile(store.Path("EUNL", "1d"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Date;Open;High;Low;Close;Adj Close;Volume", lines[0])
	assert.Equal(t, "2024-01-02;101;102;100;101,25;101,25;2000", lines[1])

	got, err := store.Read("EUNL", "1d")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, day(4), got[2].Date)
	assert.InDelta(t, 102.25, got[2].Close, 1e-9)
	assert.Equal(t, int64(4000), got[2].Volume)

	last, ok, err := store.LastDate("EUNL", "1d")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, day(4), last)
}

func TestStore_AppendOnlyNewRows(t *testing.T) {
	store := NewStore(t.TempDir(), zerolog.Nop())
	_, err := store.Write("EUNL", "1d", bars(1, 2, 3))
	require.NoError(t, err)

	before, err := os.ReadFile(store.Path("EUNL", "1d"))
	require.NoError(t, err)

	written, err := store.Write("EUNL", "1d", bars(2, 3, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	after, err := os.ReadFile(store.Path("EUNL", "1d"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(after), string(before)), "existing bytes must be preserved")

	got, err := store.Read("EUNL", "1d")
	require.NoError(t, err)
	dates := make(map[time.Time]bool)
	for _, b := range got {
		assert.False(t, dates[b.Date], "duplicate date %s", b.Date)
		dates[b.Date] = true
	}
	assert.Len(t, got, 5)
}

func TestStore_NoNewRowsLeavesFileUntouched(t *testing.T) {
	store := NewStore(t.TempDir(), zerolog.Nop())
	_, err := store.Write("EUNL", "1d", bars(1, 2, 3))
	require.NoError(t, err)

	path := store.Path("EUNL", "1d")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	written, err := store.Write("EUNL", "1d", bars(1, 2, 3))
	require.NoError(t, err)
	assert.Zero(t, written)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStore_AppendAddsMissingNewline(t *testing.T) {
	store := NewStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, store.EnsureDir("EUNL", "1d"))

	path := store.Path("EUNL", "1d")
	content := "Date;Open;High;Low;Close;Adj Close;Volume\n2024-01-01;1;1;1;1;1;10"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	written, err := store.Write("EUNL", "1d", bars(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	got, err := store.Read("EUNL", "1d")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day(2), got[1].Date)
}

func TestStore_HeaderOnlyCacheReceivesEverything(t *testing.T) {
	store := NewStore(t.TempDir(), zerolog.Nop())
	_, err := store.Write("EUNL", "1d", nil)
	require.NoError(t, err)

	_, ok, err := store.LastDate("EUNL", "1d")
	require.NoError(t, err)
	assert.False(t, ok)

	written, err := store.Write("EUNL", "1d", bars(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, written)
}

func TestStore_MissingDateColumn(t *testing.T) {
	store := NewStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, store.EnsureDir("EUNL", "1d"))
	require.NoError(t, os.WriteFile(store.Path("EUNL", "1d"), []byte("Day;Close\n2024-01-01;1\n"), 0644))

	_, err := store.Read("EUNL", "1d")

	var missing *domain.MissingDateColumnError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, store.Path("EUNL", "1d"), missing.Path)
}

func TestStore_IntradayKeepsTimeOfDay(t *testing.T) {
	store := NewStore(t.TempDir(), zerolog.Nop())
	at := time.Date(2024, time.January, 2, 9, 30, 0, 0, time.UTC)
	first := []domain.Bar{{Date: at, Close: 1}, {Date: at.Add(time.Hour), Close: 2}}

	_, err := store.Write("EUNL", "1h", first)
	require.NoError(t, err)

	written, err := store.Write("EUNL", "1h", append(first, domain.Bar{Date: at.Add(2 * time.Hour), Close: 3}))
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	got, err := store.Read("EUNL", "1h")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, at.Add(2*time.Hour), got[2].Date)
}

func TestSync_NoCacheCreatesFile(t *testing.T) {
	provider := new(MockPriceProvider)
	provider.On("History", mock.Anything, "AAA", "1d", "10y").Return(bars(1, 2, 3), nil).Once()

	s, store := newTestSynchronizer(t, provider, day(3))

	result, err := s.Sync(context.Background(), "AAA", "1d", "10y")
	require.NoError(t, err)

	assert.Equal(t, StateCreated, result.State)
	assert.Equal(t, "10y", result.Period)
	assert.Equal(t, 3, result.Appended)

	assert.FileExists(t, filepath.Join(store.root, "AAA", "1d", "AAA.csv"))
	got, err := store.Read("AAA", "1d")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(got), 1)
	provider.AssertExpectations(t)
}

func TestSync_IdempotentSameDay(t *testing.T) {
	provider := new(MockPriceProvider)
	provider.On("History", mock.Anything, "AAA", "1d", "10y").Return(bars(1, 2, 3), nil).Once()

	s, store := newTestSynchronizer(t, provider, day(3))

	_, err := s.Sync(context.Background(), "AAA", "1d", "10y")
	require.NoError(t, err)
	before, err := os.ReadFile(store.Path("AAA", "1d"))
	require.NoError(t, err)

	result, err := s.Sync(context.Background(), "AAA", "1d", "10y")
	require.NoError(t, err)
	assert.Equal(t, StateUpToDate, result.State)

	after, err := os.ReadFile(store.Path("AAA", "1d"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	provider.AssertExpectations(t)
}

func TestSync_IdempotentWithoutNewRemoteData(t *testing.T) {
	provider := new(MockPriceProvider)
	provider.On("History", mock.Anything, "AAA", "1d", "10y").Return(bars(1, 2, 3), nil).Once()
	provider.On("History", mock.Anything, "AAA", "1d", "1y").Return(bars(1, 2, 3), nil)

	s, store := newTestSynchronizer(t, provider, day(10))

	_, err := s.Sync(context.Background(), "AAA", "1d", "10y")
	require.NoError(t, err)
	before, err := os.ReadFile(store.Path("AAA", "1d"))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		result, err := s.Sync(context.Background(), "AAA", "1d", "10y")
		require.NoError(t, err)
		assert.Equal(t, StateNoNewData, result.State)
		assert.Equal(t, "1y", result.Period)
	}

	after, err := os.ReadFile(store.Path("AAA", "1d"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSync_AppendsStrictlyNewerRows(t *testing.T) {
	provider := new(MockPriceProvider)
	provider.On("History", mock.Anything, "AAA", "1d", "10y").Return(bars(1, 2, 3), nil).Once()
	provider.On("History", mock.Anything, "AAA", "1d", "1y").Return(bars(2, 3, 4, 5), nil).Once()

	s, store := newTestSynchronizer(t, provider, day(3))
	_, err := s.Sync(context.Background(), "AAA", "1d", "10y")
	require.NoError(t, err)

	s.now = func() time.Time { return day(6) }
	result, err := s.Sync(context.Background(), "AAA", "1d", "10y")
	require.NoError(t, err)

	assert.Equal(t, StateAppended, result.State)
	assert.Equal(t, 4, result.Fetched)
	assert.Equal(t, 2, result.Appended)

	got, err := store.Read("AAA", "1d")
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, b := range got {
		assert.Equal(t, day(i+1), b.Date)
	}
	provider.AssertExpectations(t)
}

func TestSync_ProviderError(t *testing.T) {
	provider := new(MockPriceProvider)
	provider.On("History", mock.Anything, "AAA", "1d", "10y").Return(nil, errors.New("no data"))

	s, store := newTestSynchronizer(t, provider, day(3))

	_, err := s.Sync(context.Background(), "AAA", "1d", "10y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AAA")

	exists, err := store.Exists("AAA", "1d")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSync_MissingDateColumnFails(t *testing.T) {
	provider := new(MockPriceProvider)
	s, store := newTestSynchronizer(t, provider, day(3))

	require.NoError(t, store.EnsureDir("AAA", "1d"))
	require.NoError(t, os.WriteFile(store.Path("AAA", "1d"), []byte("Close\n1\n"), 0644))

	_, err := s.Sync(context.Background(), "AAA", "1d", "10y")

	var missing *domain.MissingDateColumnError
	assert.True(t, errors.As(err, &missing))
	provider.AssertNotCalled(t, "History", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncAll_IsolatesFailures(t *testing.T) {
	provider := new(MockPriceProvider)
	provider.On("History", mock.Anything, "AAA", "1d", "10y").Return(bars(1, 2), nil)
	provider.On("History", mock.Anything, "BBB", "1d", "10y").Return(nil, errors.New("symbol not found"))
	provider.On("History", mock.Anything, "CCC", "1d", "10y").Return(bars(1), nil)

	s, store := newTestSynchronizer(t, provider, day(2))

	summary, results := s.SyncAll(context.Background(), []string{"AAA", "BBB", "CCC"}, "1d", "10y")

	require.Len(t, summary.Results, 3)
	assert.Equal(t, 2, summary.Succeeded())
	failed := summary.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "BBB", failed[0].Subject)
	assert.Equal(t, SyncWorkType+":BBB", failed[0].ID)

	require.Len(t, results, 2)
	assert.Equal(t, StateCreated, results["AAA"].State)
	assert.Equal(t, StateCreated, results["CCC"].State)

	for _, ticker := range []string{"AAA", "CCC"} {
		exists, err := store.Exists(ticker, "1d")
		require.NoError(t, err)
		assert.True(t, exists, ticker)
	}
}
