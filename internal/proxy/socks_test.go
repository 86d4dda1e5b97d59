package proxy

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSocksClient(t *testing.T) {
	c, err := NewSocksClient("127.0.0.1:1080", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.Timeout)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.NotNil(t, tr.DialContext)
}

func TestNewSocksClient_DialsProxy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	greeted := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 3)
		n, _ := conn.Read(buf)
		greeted <- buf[:n]
	}()

	c, err := NewSocksClient(ln.Addr().String(), time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _ = c.Transport.(*http.Transport).DialContext(ctx, "tcp", "api.openai.com:443")

	select {
	case got := <-greeted:
		// SOCKS5 version, one method, no auth
		assert.Equal(t, []byte{0x05, 0x01, 0x00}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("proxy was never dialed")
	}
}
