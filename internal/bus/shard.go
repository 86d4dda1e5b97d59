package bus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"orderagent/internal/agent"
)

type Agent interface {
	HandleTextTurn(ctx context.Context, text string, tableHint int) (agent.Turn, error)
	HandleVoiceTurn(ctx context.Context, audio []byte, filename string, tableHint int) (agent.Turn, error)
}

// Shard answers hub messages addressed to Name. AudioPath maps a stored
// clip id to the ref sent back; nil sends the bare id.
type Shard struct {
	Name      string
	Conn      *Conn
	Agent     Agent
	AudioPath func(id string) string
	Log       *slog.Logger
}

// Run serves messages until ctx ends. Dropped connections are redialed.
func (s *Shard) Run(ctx context.Context) error {
	if s.Log == nil {
		s.Log = slog.Default()
	}
	s.Log.Info("Shard ready", "name", s.Name)

	go func() {
		<-ctx.Done()
		s.Conn.Close()
	}()

	for {
		msg, err := s.Conn.Read()
		if ctx.Err() != nil {
			return nil
		}

		var syntaxErr *json.SyntaxError
		switch {
		case errors.As(err, &syntaxErr), errors.As(err, new(*json.UnmarshalTypeError)):
			s.Log.Warn("Dropping malformed bus message", "err", err)
			continue
		case err != nil:
			if isClosed(err) {
				s.Log.Warn("Bus connection lost", "err", err)
			} else {
				s.Log.Error("Bus read failed", "err", err)
			}
			if err := s.Conn.Redial(ctx); err != nil {
				return nil
			}
			continue
		}

		if msg.To != "" && msg.To != s.Name {
			continue
		}

		go s.serve(ctx, msg)
	}
}

func (s *Shard) serve(ctx context.Context, msg *Message) {
	var (
		turn agent.Turn
		err  error
	)

	switch msg.Kind {
	case KindText:
		turn, err = s.Agent.HandleTextTurn(ctx, msg.Content, msg.Table)
	case KindVoice:
		turn, err = s.Agent.HandleVoiceTurn(ctx, msg.Audio, msg.Content, msg.Table)
	default:
		s.Log.Debug("Ignoring bus message", "from", msg.From, "kind", msg.Kind)
		return
	}

	reply := &Message{
		From:    s.Name,
		To:      msg.From,
		Kind:    KindReply,
		Content: turn.Reply,
		Table:   turn.Table,
	}
	if err != nil {
		reply.Kind = KindError
	}
	if turn.Audio != nil {
		reply.AudioRef = turn.Audio.ID
		if s.AudioPath != nil {
			reply.AudioRef = s.AudioPath(turn.Audio.ID)
		}
	}

	if err := s.Conn.Write(reply); err != nil {
		s.Log.Error("Failed to send reply", "to", msg.From, "err", err)
	}
}
