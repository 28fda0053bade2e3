package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticker-rain/internal/quotes"
	"ticker-rain/internal/rain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "quotes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertAndGetQuotes(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.UpsertQuotes([]quotes.Quote{
		{Symbol: "AAPL", Price: 190.5, Change: 1.5, ChangePercent: 0.79},
		{Symbol: "TSLA", Price: 250, Change: -4, ChangePercent: -1.58},
		{Symbol: ""},
	}))

	n, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// second write replaces instead of duplicating
	require.NoError(t, db.UpsertQuotes([]quotes.Quote{{Symbol: "AAPL", Price: 191, Change: 2, ChangePercent: 1.05}}))
	n, err = db.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := db.GetQuotes(0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	bySymbol := map[string]quotes.Quote{}
	for _, q := range all {
		bySymbol[q.Symbol] = q
	}
	assert.Equal(t, 191.0, bySymbol["AAPL"].Price)
	assert.Equal(t, -4.0, bySymbol["TSLA"].Change)

	one, err := db.GetQuotes(1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestUpsertEmpty(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.UpsertQuotes(nil))
	all, err := db.GetQuotes(0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMessagesRoundTrip(t *testing.T) {
	db := openTestDB(t)

	for _, m := range []rain.Message{
		{Title: "one", Body: " first", Tone: rain.ToneNeutral},
		{Title: "two", Body: " second", Tone: rain.TonePositive},
		{Title: "three", Body: " third", Tone: rain.ToneNegative},
	} {
		require.NoError(t, db.InsertMessage(m))
	}

	recent, err := db.GetRecentMessages(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Message.Title)
	assert.Equal(t, rain.TonePositive, recent[0].Message.Tone)
	assert.Equal(t, "three", recent[1].Message.Title)
	assert.Equal(t, rain.ToneNegative, recent[1].Message.Tone)
}

func TestReopenKeepsQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.db")
	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.UpsertQuotes([]quotes.Quote{{Symbol: "AMD", Price: 150}}))
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	all, err := db.GetQuotes(0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "AMD", all[0].Symbol)
}
