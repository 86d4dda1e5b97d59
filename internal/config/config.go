// Package config loads agent settings from the environment (optionally a
// .env file) and validates them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DispatcherRules = "rules"
	DispatcherLLM   = "llm"

	BackendNone    = "none"
	BackendOpenAI  = "openai"
	BackendWhisper = "whisper"
	BackendEspeak  = "espeak"

	StoreFS  = "fs"
	StoreGCS = "gcs"
)

type Config struct {
	Addr string `validate:"required"`

	MongoURI     string
	MongoDB      string `validate:"required"`
	CatalogFile  string `validate:"required_without=MongoURI"`
	RedisAddress string
	MenuCacheTTL time.Duration `validate:"gte=0"`

	FuzzyThreshold float64 `validate:"gte=0,lte=100"`
	Dispatcher     string  `validate:"oneof=rules llm"`

	OpenAIKey     string `validate:"required_if=Dispatcher llm,required_if=STTBackend openai"`
	OpenAIBaseURL string `validate:"omitempty,url"`
	OpenAIModel   string
	OpenAIProxy   string `validate:"omitempty,hostname_port"`

	STTBackend    string `validate:"oneof=openai whisper none"`
	STTLanguage   string
	WhisperModel  string `validate:"required_if=STTBackend whisper"`
	TTSBackend    string `validate:"oneof=espeak none"`
	EspeakVoice   string
	SpeechTimeout time.Duration `validate:"gt=0"`

	AudioStore string `validate:"oneof=fs gcs"`
	AudioDir   string `validate:"required_if=AudioStore fs"`
	GCSBucket  string `validate:"required_if=AudioStore gcs"`
	GCSPrefix  string
	AudioTTL   time.Duration `validate:"gt=0"`

	AMQPURL      string `validate:"omitempty,url"`
	AMQPExchange string

	CORSOrigins []string `validate:"dive,url"`
	BusURL      string   `validate:"omitempty,url"`
	ShardName   string   `validate:"required"`
}

// Load reads envFile when present and builds a validated Config. A missing
// env file is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	e := env{get: getenv}

	cfg := Config{
		Addr: ":" + e.str("PORT", "8000"),

		MongoURI:     e.str("MONGO_URI", ""),
		MongoDB:      e.str("MONGO_DB", "menudb"),
		CatalogFile:  e.str("CATALOG_FILE", ""),
		RedisAddress: e.str("REDIS_ADDRESS", ""),
		MenuCacheTTL: e.duration("MENU_CACHE_TTL", 30*time.Second),

		FuzzyThreshold: e.float("FUZZY_THRESHOLD", 70),
		Dispatcher:     strings.ToLower(e.str("DISPATCHER", DispatcherRules)),

		OpenAIKey:     e.str("OPENAI_API_KEY", ""),
		OpenAIBaseURL: e.str("OPENAI_BASE_URL", ""),
		OpenAIModel:   e.str("OPENAI_MODEL", ""),
		OpenAIProxy:   e.str("OPENAI_PROXY", ""),

		STTBackend:    strings.ToLower(e.str("STT_BACKEND", BackendNone)),
		STTLanguage:   e.str("STT_LANGUAGE", "en"),
		WhisperModel:  e.str("WHISPER_MODEL", ""),
		TTSBackend:    strings.ToLower(e.str("TTS_BACKEND", BackendNone)),
		EspeakVoice:   e.str("ESPEAK_VOICE", "en"),
		SpeechTimeout: e.duration("SPEECH_TIMEOUT", 30*time.Second),

		AudioStore: strings.ToLower(e.str("AUDIO_STORE", StoreFS)),
		AudioDir:   e.str("AUDIO_DIR", os.TempDir()+"/orderagent-audio"),
		GCSBucket:  e.str("GCS_BUCKET", ""),
		GCSPrefix:  e.str("GCS_PREFIX", "agent-audio/"),
		AudioTTL:   e.duration("AUDIO_TTL", 15*time.Minute),

		AMQPURL:      e.str("AMQP_URL", ""),
		AMQPExchange: e.str("AMQP_EXCHANGE", "orders"),

		CORSOrigins: e.list("CORS_ORIGINS"),
		BusURL:      e.str("BUS_URL", ""),
		ShardName:   e.str("SHARD_NAME", "orderagent"),
	}
	if e.err != nil {
		return Config{}, e.err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// VoiceEnabled reports whether voice turns can be served at all.
func (c Config) VoiceEnabled() bool {
	return c.STTBackend != BackendNone
}

type env struct {
	get func(string) string
	err error
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return def
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}

func (e *env) float(key string, def float64) float64 {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return f
}

func (e *env) list(key string) []string {
	var out []string
	for _, p := range strings.Split(e.get(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (e *env) fail(key, val string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%s=%q: %w", key, val, err)
	}
}
