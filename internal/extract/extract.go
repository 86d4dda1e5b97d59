// Package extract pulls table numbers and item phrases out of utterances.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"orderagent/internal/menu"
)

var numberWords = []string{
	"", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
	"eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen",
	"eighteen", "nineteen", "twenty",
}

var (
	numberValue = func() map[string]int {
		m := map[string]int{"a": 1, "an": 1, "single": 1, "couple": 2, "dozen": 12}
		for i, w := range numberWords[1:] {
			m[w] = i + 1
		}
		return m
	}()

	tableRe = regexp.MustCompile(`(?i)\b(?:table|number)\s*(?:number\s*|no\.?\s*|num\s*)?#?\s*(\d+|` +
		`twenty|nineteen|eighteen|seventeen|sixteen|fifteen|fourteen|thirteen|twelve|eleven|ten|` +
		`nine|eight|seven|six|five|four|three|two|one)\b`)

	splitRe = regexp.MustCompile(`(?i)\s*(?:[,;/&+]|\band\b|\bplus\b|\balso\b|\bthen\b)\s*`)

	multRe = regexp.MustCompile(`^(?:x(\d+)|(\d+)x)$`)
)

var leadingFiller = toSet(
	"i", "id", "im", "ill", "we", "wed", "well", "want", "wanna", "would", "like", "love", "please", "pls",
	"can", "could", "may", "get", "give", "me", "us", "have", "take", "order", "ordering", "to", "add",
	"need", "lets", "let", "the", "some", "bring", "just", "um", "uh", "ok", "okay", "yes", "so", "for",
	"more", "another", "extra", "of", "also", "with", "go", "gonna", "will", "be",
)

var trailingFiller = toSet(
	"please", "pls", "for", "thanks", "thank", "you", "now", "too", "only", "x", "each", "more",
	"as", "well", "right", "away", "asap",
)

// Candidate is an item phrase with the quantity spoken for it.
type Candidate struct {
	Phrase   string `json:"phrase"`
	Quantity int    `json:"quantity"`
}

// TableNumber returns the first number adjacent to a table keyword
// ("table 5", "table number 5", "table no. five", "number 5").
func TableNumber(text string) (int, bool) {
	for _, m := range tableRe.FindAllStringSubmatch(text, -1) {
		raw := strings.ToLower(m[1])
		v, err := strconv.Atoi(raw)
		if err != nil {
			v = numberValue[raw]
		}
		if v > 0 {
			return v, true
		}
	}
	return 0, false
}

// ItemCandidates splits an utterance into item phrases, one per fragment
// separated by punctuation or conjunctions. Table references, greetings and
// filler words are removed; a leading or trailing quantity is parsed off.
func ItemCandidates(text string) []Candidate {
	text = tableRe.ReplaceAllString(text, " , ")

	var out []Candidate
	for _, frag := range splitRe.Split(text, -1) {
		if c, ok := parseFragment(frag); ok {
			out = append(out, c)
		}
	}
	return out
}

func parseFragment(frag string) (Candidate, bool) {
	frag = strings.NewReplacer("'", "", "’", "").Replace(frag)
	tokens := strings.Fields(menu.Normalize(frag))

	qty := 0
	greeted := false
	for len(tokens) > 0 {
		t := tokens[0]
		if q, ok := quantity(t); ok && qty == 0 {
			qty = q
			tokens = tokens[1:]
			continue
		}
		// "2 x coke"
		if t == "x" && qty > 0 {
			tokens = tokens[1:]
			continue
		}
		if n := greetingPrefix(tokens); n > 0 {
			greeted = true
			tokens = tokens[n:]
			continue
		}
		if greeted && GreetingFiller(t) {
			tokens = tokens[1:]
			continue
		}
		if _, ok := leadingFiller[t]; ok {
			tokens = tokens[1:]
			continue
		}
		break
	}

	for len(tokens) > 0 {
		t := tokens[len(tokens)-1]
		if q, ok := trailingQuantity(t); ok && qty == 0 {
			qty = q
			tokens = tokens[:len(tokens)-1]
			continue
		}
		if _, ok := trailingFiller[t]; ok {
			tokens = tokens[:len(tokens)-1]
			continue
		}
		break
	}

	if len(tokens) == 0 {
		return Candidate{}, false
	}
	if qty == 0 {
		qty = 1
	}

	return Candidate{Phrase: strings.Join(tokens, " "), Quantity: qty}, true
}

func quantity(t string) (int, bool) {
	if n, err := strconv.Atoi(t); err == nil && n > 0 {
		return n, true
	}
	if n, ok := numberValue[t]; ok {
		return n, true
	}
	return multiplier(t)
}

func trailingQuantity(t string) (int, bool) {
	if n, err := strconv.Atoi(t); err == nil && n > 0 {
		return n, true
	}
	return multiplier(t)
}

func multiplier(t string) (int, bool) {
	m := multRe.FindStringSubmatch(t)
	if m == nil {
		return 0, false
	}
	s := m[1]
	if s == "" {
		s = m[2]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
