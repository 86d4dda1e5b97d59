package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"orderagent/internal/api"
	"orderagent/internal/audio"
	"orderagent/internal/ipc"
	"orderagent/internal/notify"
	"orderagent/pkg/audioconv"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type kiosk struct {
	table  int
	client *api.Client
	rec    *audio.Recorder
	player *notify.Player

	busy sync.Mutex
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	server := cli.StringP("server", "s", "", "Agent base url (KIOSK_SERVER)")
	table := cli.IntP("table", "t", 0, "Table this kiosk sits at (KIOSK_TABLE)")
	socket := cli.String("socket", ipc.DefaultSocketPath, "Control socket path")
	cue := cli.String("cue", "beep.mp3", "Listening cue, empty for none")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up kiosk")

	_ = godotenv.Load(*envFile)
	if *server == "" {
		*server = os.Getenv("KIOSK_SERVER")
	}
	if *server == "" {
		*server = "http://localhost:8000"
	}
	if *table == 0 {
		if v := os.Getenv("KIOSK_TABLE"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				log.Error("Bad KIOSK_TABLE", "value", v)
				os.Exit(1)
			}
			*table = n
		}
	}

	rec := audio.NewRecorder(audio.DefaultVAD)
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()

	player, err := notify.NewPlayer(*cue)
	if err != nil {
		log.Error("Failed to init speaker", "err", err)
		os.Exit(1)
	}

	k := &kiosk{
		table:  *table,
		client: api.NewClient(*server, &http.Client{Timeout: 90 * time.Second}),
		rec:    rec,
		player: player,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Boot up - successful", "server", *server, "table", *table)
	if err := ipc.Serve(ctx, *socket, k.handle, log.Default()); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
}

func (k *kiosk) handle(ctx context.Context, msg ipc.ControlMessage) ipc.Response {
	if !k.busy.TryLock() {
		return ipc.Response{Error: "kiosk is busy with another turn"}
	}
	defer k.busy.Unlock()

	table := k.table
	if msg.Table > 0 {
		table = msg.Table
	}

	var (
		out api.TurnResponse
		err error
	)
	switch msg.Cmd {
	case ipc.CmdTrigger:
		out, err = k.listen(ctx, table)
	case ipc.CmdSay:
		if msg.Text == "" {
			return ipc.Response{Error: "say needs text"}
		}
		out, err = k.client.Text(ctx, msg.Text, table)
	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
		return ipc.Response{Error: "unknown command " + msg.Cmd}
	}

	if out.Reply == "" && err != nil {
		log.Error("Turn failed", "cmd", msg.Cmd, "err", err)
		return ipc.Response{Error: err.Error()}
	}

	log.Info("Reply", "intent", out.Intent, "table", out.Table, "text", out.Reply)
	k.speak(ctx, out)
	return ipc.Response{OK: true, Reply: out.Reply}
}

func (k *kiosk) listen(ctx context.Context, table int) (api.TurnResponse, error) {
	if err := k.player.Cue(ctx); err != nil {
		log.Warn("Failed to play cue", "err", err)
	}

	log.Info("Starting listening")
	pcm, err := k.rec.RecordAuto(ctx)
	if err != nil {
		return api.TurnResponse{}, fmt.Errorf("record: %w", err)
	}
	log.Info("Recorded", "samples", len(pcm))

	clip, err := audioconv.EncodeWAV(pcm, audio.SampleRate)
	if err != nil {
		return api.TurnResponse{}, err
	}

	out, err := k.client.Voice(ctx, clip, "kiosk.wav", table)
	if err == nil {
		log.Info("Transcribed", "text", out.Transcript)
	}
	return out, err
}

// speak plays the reply clip when the agent produced one.
func (k *kiosk) speak(ctx context.Context, out api.TurnResponse) {
	if out.AudioRef == "" {
		return
	}
	data, ct, err := k.client.Audio(ctx, out.AudioRef)
	if err != nil {
		log.Warn("Failed to fetch reply audio", "ref", out.AudioRef, "err", err)
		return
	}
	if err := k.player.Play(ctx, data, ct); err != nil {
		log.Warn("Failed to play reply", "err", err)
	}
}
