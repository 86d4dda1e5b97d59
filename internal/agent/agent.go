// Package agent runs conversational turns: utterance in, reply out, with
// the ledger updated in between.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"orderagent/internal/audiostore"
	"orderagent/internal/ledger"
	"orderagent/internal/menu"
	"orderagent/internal/nlu"
	"orderagent/internal/speech"
	"orderagent/internal/tools"
)

type Channel string

const (
	ChannelText  Channel = "text"
	ChannelVoice Channel = "voice"
)

// Turn records one request and how it was answered.
type Turn struct {
	ID        string                   `json:"id"`
	Channel   Channel                  `json:"channel"`
	Input     string                   `json:"input"`
	Table     int                      `json:"table,omitempty"`
	Intent    nlu.Intent               `json:"intent,omitempty"`
	Accepted  []tools.PlaceOrderResult `json:"accepted,omitempty"`
	Unmatched []string                 `json:"unmatched,omitempty"`
	Reply     string                   `json:"reply"`
	Audio     *audiostore.Ref          `json:"audio,omitempty"`
	At        time.Time                `json:"at"`
}

type Menu interface {
	Ensure(ctx context.Context) error
	Entries() []menu.Entry
}

type Agent struct {
	dispatcher nlu.Dispatcher
	toolbox    *tools.Toolbox
	menu       Menu
	speech     *speech.FrontEnd
	log        *slog.Logger
	now        func() time.Time
}

type Option func(*Agent)

func WithSpeech(fe *speech.FrontEnd) Option {
	return func(a *Agent) {
		a.speech = fe
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) {
		a.log = l
	}
}

func New(d nlu.Dispatcher, tb *tools.Toolbox, m Menu, opts ...Option) *Agent {
	a := &Agent{
		dispatcher: d,
		toolbox:    tb,
		menu:       m,
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// VoiceEnabled reports whether HandleVoiceTurn can transcribe.
func (a *Agent) VoiceEnabled() bool {
	return a.speech != nil
}

// HandleTextTurn answers a typed utterance. The returned error is non-nil
// only for service failures; the turn's reply is always set.
func (a *Agent) HandleTextTurn(ctx context.Context, text string, tableHint int) (Turn, error) {
	turn := a.newTurn(ChannelText, text)
	err := a.run(ctx, &turn, tableHint)
	a.logTurn(turn, err)
	return turn, err
}

// HandleVoiceTurn transcribes audio, answers it like a text turn and
// attaches a synthesized reply when text-to-speech is configured. A failed
// synthesis leaves Audio nil and is not an error.
func (a *Agent) HandleVoiceTurn(ctx context.Context, audio []byte, filename string, tableHint int) (Turn, error) {
	turn := a.newTurn(ChannelVoice, "")

	var err error
	if a.speech == nil {
		err = fmt.Errorf("%w: voice channel disabled", speech.ErrTranscriptionFailed)
	} else {
		turn.Input, err = a.speech.Transcribe(ctx, audio, filename)
	}

	if errors.Is(err, speech.ErrTranscriptionFailed) {
		turn.Reply = ReplyRepeat
		err = nil
	} else {
		err = a.run(ctx, &turn, tableHint)
	}

	if a.speech != nil && a.speech.CanSynthesize() {
		if ref, serr := a.speech.Synthesize(ctx, turn.Reply); serr != nil {
			a.log.Warn("Reply synthesis failed", "turn", turn.ID, "err", serr)
		} else {
			turn.Audio = &ref
		}
	}

	a.logTurn(turn, err)
	return turn, err
}

func (a *Agent) newTurn(ch Channel, input string) Turn {
	return Turn{ID: uuid.NewString(), Channel: ch, Input: input, At: a.now()}
}

func (a *Agent) run(ctx context.Context, turn *Turn, tableHint int) error {
	plan, err := a.dispatcher.Plan(ctx, turn.Input, tableHint)
	turn.Intent = plan.Intent
	turn.Table = plan.Table

	switch {
	case errors.Is(err, ledger.ErrMissingTableNumber):
		turn.Reply = ReplyMissingTable
		return nil
	case err != nil:
		turn.Reply = ReplyServiceError
		return fmt.Errorf("plan: %w", err)
	}

	switch plan.Intent {
	case nlu.IntentGreeting:
		turn.Reply = ReplyGreeting
		return nil
	case nlu.IntentUnrecognized:
		turn.Reply = ReplyUnrecognized
		return nil
	}

	if plan.Query == nlu.QueryMenu {
		if err := a.menu.Ensure(ctx); err != nil {
			turn.Reply = ReplyServiceError
			return fmt.Errorf("menu: %w", err)
		}
		turn.Reply = composeMenu(a.menu.Entries())
		return nil
	}

	reply, err := a.execute(ctx, turn, plan)
	if err != nil {
		turn.Reply = ReplyServiceError
		return err
	}
	turn.Reply = reply
	return nil
}

// execute runs the plan's calls in order. Semantic failures become part of
// the reply; anything else aborts the turn. Order lines are reported per
// table they were placed on.
func (a *Agent) execute(ctx context.Context, turn *Turn, plan nlu.Plan) (string, error) {
	var (
		parts   []string
		ordered bool
	)

	for _, call := range plan.Calls {
		res, err := a.toolbox.Invoke(ctx, call)

		var itemErr *ledger.ItemError
		switch {
		case errors.As(err, &itemErr):
			ordered = true
			turn.Unmatched = append(turn.Unmatched, itemErr.Candidate)
			continue
		case errors.Is(err, ledger.ErrMissingTableNumber):
			return ReplyMissingTable, nil
		case errors.Is(err, ledger.ErrUnknownTable):
			parts = append(parts, composeUnknownTable(plan.Table))
			continue
		case errors.Is(err, ledger.ErrInvalidQuantity):
			ordered = true
			parts = append(parts, composeBadQuantity(call))
			continue
		case err != nil:
			return "", fmt.Errorf("%s: %w", call.Name, err)
		}

		switch r := res.(type) {
		case tools.PlaceOrderResult:
			ordered = true
			turn.Accepted = append(turn.Accepted, r)
		case tools.TableTotalResult:
			parts = append(parts, composeTotal(r))
		case tools.OrderDetailsResult:
			parts = append(parts, composeDetails(r))
		case tools.AllOrdersResult:
			parts = append(parts, composeAllOrders(r))
		}
	}

	if ordered {
		parts = append([]string{composeOrder(plan.Table, turn.Accepted, turn.Unmatched)}, parts...)
	}
	if len(parts) == 0 {
		return ReplyUnrecognized, nil
	}
	return strings.Join(parts, " "), nil
}

func (a *Agent) logTurn(t Turn, err error) {
	attrs := []any{
		"turn", t.ID,
		"channel", t.Channel,
		"intent", t.Intent,
		"table", t.Table,
		"accepted", len(t.Accepted),
		"unmatched", len(t.Unmatched),
	}
	if err != nil {
		a.log.Error("Turn failed", append(attrs, "err", err)...)
		return
	}
	a.log.Info("Turn handled", attrs...)
}
