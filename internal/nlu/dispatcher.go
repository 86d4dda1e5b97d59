package nlu

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"orderagent/internal/extract"
	"orderagent/internal/ledger"
	"orderagent/internal/tools"
)

var queryPatterns = []struct {
	kind QueryKind
	re   *regexp.Regexp
}{
	{QueryAllOrders, regexp.MustCompile(`\ball (?:the )?(?:orders|tables)\b|\blist (?:all |the )?orders\b|\bevery table\b`)},
	{QueryTableDetails, regexp.MustCompile(`\bwhat (?:did|has|have|does)\b.*\border(?:ed)?\b|\border (?:details|summary|status)\b|` +
		`\bshow (?:me )?(?:my|our|the) order\b|\bwhat(?:'s| is) (?:in|on) (?:my|our|the) order\b`)},
	{QueryTableTotal, regexp.MustCompile(`\btotal\b|\bbill\b|\bamount due\b|\bhow much\b|\bcheck please\b`)},
	{QueryMenu, regexp.MustCompile(`\bmenu\b|\bwhat do you (?:have|serve|offer)\b|\bwhat(?:'s| is) available\b`)},
}

// Rules classifies with fixed vocabularies and patterns:
// greeting, then query, then order action, else unrecognized.
type Rules struct {
	menu Menu
	log  *slog.Logger
}

func NewRules(m Menu, logger *slog.Logger) *Rules {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rules{menu: m, log: logger}
}

func (r *Rules) Plan(ctx context.Context, utterance string, tableHint int) (Plan, error) {
	if IsGreeting(utterance) {
		return Plan{Intent: IntentGreeting}, nil
	}

	table, ok := extract.TableNumber(utterance)
	if !ok {
		table = max(tableHint, 0)
	}

	if kind, ok := MatchQuery(utterance); ok {
		p := Plan{Intent: IntentQuery, Query: kind}
		if !kind.NeedsTable() {
			p.Calls = queryCall(kind, 0)
			return p, nil
		}
		if table == 0 {
			return p, ledger.ErrMissingTableNumber
		}
		p.Table = table
		p.Calls = queryCall(kind, table)
		return p, nil
	}

	if err := r.menu.Ensure(ctx); err != nil {
		return Plan{}, fmt.Errorf("menu: %w", err)
	}

	cands := extract.ItemCandidates(utterance)
	if !r.anyResolves(cands) {
		r.log.Debug("No menu item in utterance", "candidates", len(cands))
		return Plan{Intent: IntentUnrecognized}, nil
	}

	p := Plan{Intent: IntentOrderAction, Table: table, Candidates: cands}
	if table == 0 {
		return p, ledger.ErrMissingTableNumber
	}
	for _, c := range cands {
		p.Calls = append(p.Calls, tools.NewPlaceOrderCall(table, c.Phrase, c.Quantity))
	}
	return p, nil
}

func (r *Rules) anyResolves(cands []extract.Candidate) bool {
	for _, c := range cands {
		if r.menu.BestScore(c.Phrase) >= r.menu.Threshold() {
			return true
		}
	}
	return false
}

// MatchQuery returns the kind of the first query pattern found in text.
func MatchQuery(text string) (QueryKind, bool) {
	text = strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	for _, qp := range queryPatterns {
		if qp.re.MatchString(text) {
			return qp.kind, true
		}
	}
	return "", false
}
