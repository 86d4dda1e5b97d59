package extract

import "orderagent/internal/menu"

const greetingFuzz = 80.0

var greetingWords = []string{
	"hi", "hii", "hello", "hey", "hiya", "howdy", "yo", "salam", "salaam", "assalamualaikum",
	"aoa", "greetings",
}

var dayParts = toSet("morning", "afternoon", "evening")

var greetingFiller = toSet(
	"there", "everyone", "all", "team", "sir", "madam", "friend", "friends", "folks", "guys",
	"buddy", "buddies", "again", "oh", "and", "um", "well", "alaikum", "walaikum",
)

// GreetingWord reports whether t is a greeting. With fuzzy set, words of
// four letters or more may be misspelled ("helo", "salaam").
func GreetingWord(t string, fuzzy bool) bool {
	for _, w := range greetingWords {
		if t == w {
			return true
		}
		if fuzzy && len(t) >= 4 && len(w) >= 4 && menu.Score(t, w) >= greetingFuzz {
			return true
		}
	}
	return false
}

// DayPart reports whether t completes "good ..." as a greeting.
func DayPart(t string) bool {
	_, ok := dayParts[t]
	return ok
}

// GreetingFiller reports whether t may accompany a greeting ("hi there").
func GreetingFiller(t string) bool {
	_, ok := greetingFiller[t]
	return ok
}

// greetingPrefix returns how many leading tokens form a greeting, 0 if none.
func greetingPrefix(tokens []string) int {
	switch {
	case len(tokens) > 1 && tokens[0] == "good" && DayPart(tokens[1]):
		return 2
	case len(tokens) > 0 && GreetingWord(tokens[0], false):
		return 1
	}
	return 0
}
