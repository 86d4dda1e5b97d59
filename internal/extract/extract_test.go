package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNumber(t *testing.T) {
	testCases := map[string]struct {
		text          string
		expected      int
		expectedFound bool
	}{
		"should find digits after table":          {text: "I want 2 chicken briyani for table 3", expected: 3, expectedFound: true},
		"should find table number phrase":         {text: "table number 12, two naan", expected: 12, expectedFound: true},
		"should find table no abbreviation":       {text: "Table no. 4 one coke", expected: 4, expectedFound: true},
		"should find hash notation":               {text: "table #9 zinger burger", expected: 9, expectedFound: true},
		"should find number words":                {text: "table five, one biryani", expected: 5, expectedFound: true},
		"should find bare number keyword":         {text: "number 7 wants a pizza", expected: 7, expectedFound: true},
		"should take the first match":             {text: "table 2 and table 6", expected: 2, expectedFound: true},
		"should ignore quantities without keyword": {text: "2 biryani please", expectedFound: false},
		"should ignore table for two":             {text: "a table for two", expectedFound: false},
		"should skip table zero":                  {text: "table 0 then table 8", expected: 8, expectedFound: true},
		"should prefer the earlier number keyword": {text: "the family deal number 2 for table 4", expected: 2, expectedFound: true},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			n, ok := TableNumber(tc.text)
			assert.Equal(t, tc.expectedFound, ok)
			assert.Equal(t, tc.expected, n)
		})
	}
}

func TestGreetingWord(t *testing.T) {
	testCases := map[string]struct {
		word     string
		fuzzy    bool
		expected bool
	}{
		"should match exact greeting":          {word: "hello", expected: true},
		"should match misspelling when fuzzy":  {word: "helo", fuzzy: true, expected: true},
		"should not match misspelling exactly": {word: "helo", expected: false},
		"should not match food when exact":     {word: "salad", expected: false},
		"should not fuzz short words":          {word: "ho", fuzzy: true, expected: false},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, GreetingWord(tc.word, tc.fuzzy))
		})
	}
}

func TestItemCandidates(t *testing.T) {
	testCases := map[string]struct {
		text     string
		expected []Candidate
	}{
		"should extract single item with digit quantity": {
			text:     "I want 2 chicken briyani for table 3",
			expected: []Candidate{{Phrase: "chicken briyani", Quantity: 2}},
		},
		"should extract item after table reference": {
			text:     "table 5, one biryani",
			expected: []Candidate{{Phrase: "biryani", Quantity: 1}},
		},
		"should split on conjunctions and punctuation": {
			text: "table 2 order 1 pizza, 2 zinger burgers and a coke",
			expected: []Candidate{
				{Phrase: "pizza", Quantity: 1},
				{Phrase: "zinger burgers", Quantity: 2},
				{Phrase: "coke", Quantity: 1},
			},
		},
		"should parse multiplier suffix": {
			text:     "family deal x2 please",
			expected: []Candidate{{Phrase: "family deal", Quantity: 2}},
		},
		"should parse multiplier prefix": {
			text:     "3x garlic naan",
			expected: []Candidate{{Phrase: "garlic naan", Quantity: 3}},
		},
		"should default quantity to one": {
			text:     "can i get chinese rice",
			expected: []Candidate{{Phrase: "chinese rice", Quantity: 1}},
		},
		"should strip contractions": {
			text:     "I'd like three samosas, thanks",
			expected: []Candidate{{Phrase: "samosas", Quantity: 3}},
		},
		"should return nothing for filler only": {
			text:     "please, thank you",
			expected: nil,
		},
		"should return nothing for table only": {
			text:     "table 4",
			expected: nil,
		},
		"should drop a greeting fragment": {
			text:     "hello, one coke for table 4",
			expected: []Candidate{{Phrase: "coke", Quantity: 1}},
		},
		"should drop a greeting before the table": {
			text:     "hey table 4 one coke",
			expected: []Candidate{{Phrase: "coke", Quantity: 1}},
		},
		"should strip a leading greeting": {
			text:     "hi i want a coke table 4",
			expected: []Candidate{{Phrase: "coke", Quantity: 1}},
		},
		"should strip greetings with their filler": {
			text:     "hi there, good evening, two naan",
			expected: []Candidate{{Phrase: "naan", Quantity: 2}},
		},
		"should keep items that resemble greetings": {
			text:     "table 3 one salad",
			expected: []Candidate{{Phrase: "salad", Quantity: 1}},
		},
		"should keep descriptive words for matching": {
			text:     "one large coke for table 4",
			expected: []Candidate{{Phrase: "large coke", Quantity: 1}},
		},
		"should skip a lone x after a quantity": {
			text:     "table 4: 2 x coke",
			expected: []Candidate{{Phrase: "coke", Quantity: 2}},
		},
		"should strip every table reference": {
			text:     "I'd like the family deal number 2 for table 4",
			expected: []Candidate{{Phrase: "family deal", Quantity: 1}},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ItemCandidates(tc.text))
		})
	}
}
