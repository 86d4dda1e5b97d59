// Package app assembles an agent and its collaborators from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/bsm/redislock"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"orderagent/internal/agent"
	"orderagent/internal/audiostore"
	"orderagent/internal/catalog"
	"orderagent/internal/config"
	"orderagent/internal/events"
	"orderagent/internal/ledger"
	"orderagent/internal/menu"
	"orderagent/internal/nlu"
	"orderagent/internal/proxy"
	"orderagent/internal/speech"
	"orderagent/internal/tools"
	"orderagent/internal/tts"
	"orderagent/pkg/stt"
)

type App struct {
	Agent *agent.Agent
	Menu  *menu.Index
	Audio audiostore.Store // nil without a synthesizer

	closers []func()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Build connects every configured backing service. On error everything
// opened so far is closed.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var db *mongo.Database
	if cfg.MongoURI != "" {
		client, d, err := config.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })
		db = d
		logger.Info("Connected to mongo", "db", cfg.MongoDB)
	}

	var rdb *redis.Client
	if cfg.RedisAddress != "" {
		rctx, cancel := context.WithTimeout(ctx, time.Minute)
		rdb, err = config.ConnectRedis(rctx, cfg.RedisAddress, logger)
		cancel()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
	}

	var src menu.Source
	if db != nil {
		src = catalog.NewMongo(db, logger)
	} else {
		src = catalog.NewFile(cfg.CatalogFile)
	}
	if rdb != nil {
		src = catalog.NewRedisCache(src, rdb, cfg.MenuCacheTTL, logger)
	}

	a.Menu = menu.NewIndex(src,
		menu.WithThreshold(cfg.FuzzyThreshold),
		menu.WithMaxAge(cfg.MenuCacheTTL),
		menu.WithLogger(logger),
	)
	if err := a.Menu.Refresh(ctx); err != nil {
		// Ensure retries on the first turn.
		logger.Warn("Initial menu load failed", "err", err)
	}

	lopts := []ledger.Option{ledger.WithLogger(logger)}
	if db != nil {
		store := ledger.NewMongoStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		lopts = append(lopts, ledger.WithStore(store))
	}
	if rdb != nil {
		lopts = append(lopts, ledger.WithLocker(ledger.NewRedisLocker(redislock.New(rdb), 0)))
	}
	if cfg.AMQPURL != "" {
		pub, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		lopts = append(lopts, ledger.WithPublisher(pub))
	}
	tb := tools.New(ledger.New(a.Menu, lopts...))

	var oai *openai.Client
	if cfg.OpenAIKey != "" {
		c, err := newOpenAI(cfg)
		if err != nil {
			return nil, err
		}
		oai = &c
	}

	var d nlu.Dispatcher
	switch cfg.Dispatcher {
	case config.DispatcherLLM:
		if oai == nil {
			return nil, errors.New("llm dispatcher needs OPENAI_API_KEY")
		}
		d = nlu.NewLLMDispatcher(*oai, cfg.OpenAIModel, logger)
	default:
		d = nlu.NewRules(a.Menu, logger)
	}

	aopts := []agent.Option{agent.WithLogger(logger)}
	fe, err := a.speech(ctx, cfg, oai, logger)
	if err != nil {
		return nil, err
	}
	if fe != nil {
		aopts = append(aopts, agent.WithSpeech(fe))
	}

	a.Agent = agent.New(d, tb, a.Menu, aopts...)
	logger.Info("Agent ready",
		"dispatcher", cfg.Dispatcher,
		"stt", cfg.STTBackend,
		"tts", cfg.TTSBackend,
		"menu_entries", len(a.Menu.Entries()),
	)
	return a, nil
}

func (a *App) speech(ctx context.Context, cfg config.Config, oai *openai.Client, logger *slog.Logger) (*speech.FrontEnd, error) {
	var tr speech.Transcriber
	switch cfg.STTBackend {
	case config.BackendOpenAI:
		if oai == nil {
			return nil, errors.New("openai stt needs OPENAI_API_KEY")
		}
		tr = speech.NewOpenAITranscriber(*oai, cfg.STTLanguage)
	case config.BackendWhisper:
		model, err := stt.NewTranscriber(cfg.WhisperModel)
		if err != nil {
			return nil, fmt.Errorf("whisper: %w", err)
		}
		a.closers = append(a.closers, func() { _ = model.Close() })
		tr = stt.Clip{
			Model: model,
			Options: stt.Options{
				Language:      cfg.STTLanguage,
				InitialPrompt: menuPrompt(a.Menu.Entries()),
			},
		}
	default:
		return nil, nil
	}

	opts := []speech.Option{speech.WithTimeout(cfg.SpeechTimeout), speech.WithLogger(logger)}
	if cfg.TTSBackend == config.BackendEspeak {
		store, err := a.audioStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.Audio = store
		opts = append(opts, speech.WithSynthesizer(tts.NewEspeak(cfg.EspeakVoice), store))
	}
	return speech.New(tr, opts...), nil
}

func (a *App) audioStore(ctx context.Context, cfg config.Config) (audiostore.Store, error) {
	if cfg.AudioStore == config.StoreGCS {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return audiostore.NewGCS(client, cfg.GCSBucket, cfg.GCSPrefix, cfg.AudioTTL), nil
	}
	return audiostore.NewFS(cfg.AudioDir, cfg.AudioTTL)
}

func newOpenAI(cfg config.Config) (openai.Client, error) {
	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIKey)}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	if cfg.OpenAIProxy != "" {
		hc, err := proxy.NewSocksClient(cfg.OpenAIProxy, 0)
		if err != nil {
			return openai.Client{}, fmt.Errorf("socks proxy %s: %w", cfg.OpenAIProxy, err)
		}
		opts = append(opts, option.WithHTTPClient(hc))
	}
	return openai.NewClient(opts...), nil
}

// menuPrompt biases whisper towards dish names it would otherwise misspell.
func menuPrompt(entries []menu.Entry) string {
	if len(entries) == 0 {
		return ""
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return "Restaurant order. Table number. Menu: " + strings.Join(names, ", ") + "."
}
