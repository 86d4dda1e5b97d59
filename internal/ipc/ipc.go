// Package ipc is the kiosk control channel: one JSON request and one JSON
// response per unix socket connection.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"
)

const DefaultSocketPath = "/tmp/orderagent-kiosk.sock"

const (
	CmdTrigger = "trigger"
	CmdSay     = "say"
)

type ControlMessage struct {
	Cmd   string `json:"cmd"`
	Text  string `json:"text,omitempty"`
	Table int    `json:"table,omitempty"`
}

type Response struct {
	OK    bool   `json:"ok"`
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

type Handler func(context.Context, ControlMessage) Response

// Serve listens on path until ctx ends. A stale socket file is replaced.
func Serve(ctx context.Context, path string, handler Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	logger.Info("Control socket ready", "path", path)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("Accept failed", "err", err)
			continue
		}
		go handleConn(ctx, conn, handler, logger)
	}
}

func handleConn(ctx context.Context, conn net.Conn, handler Handler, logger *slog.Logger) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		logger.Warn("Bad control message", "err", err)
		_ = json.NewEncoder(conn).Encode(Response{Error: "bad request"})
		return
	}

	resp := handler(ctx, msg)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		logger.Debug("Control client went away", "cmd", msg.Cmd, "err", err)
	}
}

// Send delivers msg and waits up to timeout for the response.
func Send(path string, msg ControlMessage, timeout time.Duration) (Response, error) {
	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}
	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Response{}, err
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	if !resp.OK && resp.Error != "" {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}
