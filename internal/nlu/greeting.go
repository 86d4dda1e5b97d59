package nlu

import (
	"strings"

	"orderagent/internal/extract"
	"orderagent/internal/menu"
)

// IsGreeting reports whether the utterance is nothing but a greeting. Words
// of four letters or more may be misspelled ("helo", "salaam").
func IsGreeting(text string) bool {
	tokens := strings.Fields(menu.Normalize(text))

	greeted := false
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t == "good" && i+1 < len(tokens) && extract.DayPart(tokens[i+1]):
			greeted = true
			i++
		case extract.GreetingWord(t, true):
			greeted = true
		case extract.GreetingFiller(t):
		default:
			return false
		}
	}
	return greeted
}
