package ipc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeAndSend(t *testing.T) {
	// unix socket paths are length limited; keep it short.
	dir, err := os.MkdirTemp("", "ipc")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "k.sock")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, path, func(_ context.Context, m ControlMessage) Response {
			switch m.Cmd {
			case CmdSay:
				return Response{OK: true, Reply: "got: " + m.Text}
			case CmdTrigger:
				return Response{OK: true}
			default:
				return Response{Error: "unknown command " + m.Cmd}
			}
		}, nil)
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	testCases := map[string]struct {
		msg           ControlMessage
		expectedReply string
		expectedErr   string
	}{
		"should answer say": {
			msg:           ControlMessage{Cmd: CmdSay, Text: "table 2 one coke"},
			expectedReply: "got: table 2 one coke",
		},
		"should accept trigger": {
			msg: ControlMessage{Cmd: CmdTrigger},
		},
		"should surface handler errors": {
			msg:         ControlMessage{Cmd: "dance"},
			expectedErr: "unknown command dance",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			resp, err := Send(path, tc.msg, time.Second)
			if tc.expectedErr != "" {
				assert.EqualError(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, resp.OK)
			assert.Equal(t, tc.expectedReply, resp.Reply)
		})
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}

func TestSend_NoServer(t *testing.T) {
	_, err := Send(filepath.Join(t.TempDir(), "none.sock"), ControlMessage{Cmd: CmdTrigger}, time.Second)
	assert.Error(t, err)
}
