package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"orderagent/internal/ipc"
)

func main() {
	socket := cli.String("socket", ipc.DefaultSocketPath, "Kiosk control socket")
	table := cli.IntP("table", "t", 0, "Table number hint")
	timeout := cli.Duration("timeout", 2*time.Minute, "How long to wait for the reply")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: orderctl [flags] trigger | say <text...>")
		cli.PrintDefaults()
	}
	cli.Parse()

	msg := ipc.ControlMessage{Cmd: ipc.CmdTrigger, Table: *table}
	if args := cli.Args(); len(args) > 0 {
		msg.Cmd = args[0]
		msg.Text = strings.Join(args[1:], " ")
	}

	resp, err := ipc.Send(*socket, msg, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "orderctl:", err)
		os.Exit(1)
	}
	if resp.Reply != "" {
		fmt.Println(resp.Reply)
	}
}
