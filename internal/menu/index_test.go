package menu

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntries() []Entry {
	return []Entry{
		{ID: "1", Name: "Chicken Biryani", Price: decimal.NewFromInt(350), Category: CategoryItem},
		{ID: "2", Name: "Chinese Rice", Price: decimal.NewFromInt(300), Category: CategoryItem},
		{ID: "3", Name: "Egg Fried Rice", Price: decimal.NewFromInt(280), Category: CategoryItem},
		{ID: "4", Name: "Zinger Burger", Price: decimal.NewFromInt(450), Category: CategoryItem},
		{ID: "5", Name: "Family Deal", Price: decimal.NewFromInt(2200), Category: CategoryDeal},
	}
}

type fakeSource struct {
	entries []Entry
	err     error
	calls   int
}

func (f *fakeSource) ListMenuEntries(context.Context) ([]Entry, error) {
	f.calls++
	return f.entries, f.err
}

func TestNormalize(t *testing.T) {
	testCases := map[string]struct {
		in       string
		expected string
	}{
		"should lowercase and collapse whitespace": {in: "  Chicken   BIRYANI ", expected: "chicken biryani"},
		"should drop punctuation":                  {in: "Fish-&-Chips!", expected: "fish chips"},
		"should keep digits":                       {in: "7UP 500ml", expected: "7up 500ml"},
		"should return empty for punctuation only": {in: "?!.", expected: ""},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Normalize(tc.in))
		})
	}
}

func TestScore(t *testing.T) {
	assert.Equal(t, 100.0, Score("chicken biryani", "Chicken Biryani"))
	assert.InDelta(t, 86.67, Score("chicken briyani", "Chicken Biryani"), 0.01)
	assert.InDelta(t, 90.0, Score("biryani", "Chicken Biryani"), 0.01)
	assert.InDelta(t, 90.0, Score("large coke", "Coke"), 0.01)
	assert.Less(t, Score("large pizza", "Coke"), DefaultThreshold)
	assert.Less(t, Score("pizza", "Chicken Biryani"), DefaultThreshold)
	assert.Equal(t, 0.0, Score("", "Chicken Biryani"))
}

func TestIndex_FindBestMatch(t *testing.T) {
	ix := NewStaticIndex(testEntries())

	testCases := map[string]struct {
		candidate    string
		expectedName string
		expectedErr  error
	}{
		"should match exact name ignoring case": {
			candidate:    "zinger burger",
			expectedName: "Zinger Burger",
		},
		"should tolerate misspelling": {
			candidate:    "chicken briyani",
			expectedName: "Chicken Biryani",
		},
		"should match a single word of a longer name": {
			candidate:    "biryani",
			expectedName: "Chicken Biryani",
		},
		"should prefer the shorter name on equal scores": {
			candidate:    "rice",
			expectedName: "Chinese Rice",
		},
		"should match deals": {
			candidate:    "family deal",
			expectedName: "Family Deal",
		},
		"should match a name inside a longer candidate": {
			candidate:    "large zinger burger",
			expectedName: "Zinger Burger",
		},
		"should return not found below threshold": {
			candidate:   "sushi platter",
			expectedErr: ErrNotFound,
		},
		"should return not found for empty candidate": {
			candidate:   "  ",
			expectedErr: ErrNotFound,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			m, err := ix.FindBestMatch(tc.candidate)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedName, m.Entry.Name)
			assert.GreaterOrEqual(t, m.Score, ix.Threshold())
		})
	}
}

func TestIndex_Threshold(t *testing.T) {
	strict := NewStaticIndex(testEntries(), WithThreshold(95))

	_, err := strict.FindBestMatch("chicken briyani")
	assert.ErrorIs(t, err, ErrNotFound)

	m, err := strict.FindBestMatch("Chicken Biryani")
	require.NoError(t, err)
	assert.Equal(t, "1", m.Entry.ID)
}

func TestIndex_Entries(t *testing.T) {
	ix := NewStaticIndex(testEntries())

	entries := ix.Entries()
	require.Len(t, entries, 5)
	assert.Equal(t, "Chicken Biryani", entries[0].Name)
	assert.Equal(t, "Family Deal", entries[4].Name)
}

func TestIndex_Ensure(t *testing.T) {
	src := &fakeSource{entries: testEntries()}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	ix := NewIndex(src, WithMaxAge(time.Minute))
	ix.now = func() time.Time { return now }

	require.NoError(t, ix.Ensure(context.Background()))
	require.NoError(t, ix.Ensure(context.Background()))
	assert.Equal(t, 1, src.calls)

	now = now.Add(2 * time.Minute)
	src.err = errors.New("mongo down")

	require.NoError(t, ix.Ensure(context.Background()), "stale snapshot should keep serving")
	assert.Equal(t, 2, src.calls)

	_, err := ix.FindBestMatch("zinger burger")
	assert.NoError(t, err)
}

func TestIndex_EnsureWithoutSnapshotFails(t *testing.T) {
	src := &fakeSource{err: errors.New("mongo down")}
	ix := NewIndex(src)

	err := ix.Ensure(context.Background())
	assert.ErrorContains(t, err, "mongo down")
}
