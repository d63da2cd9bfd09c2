package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"supportchat/internal/client"
)

func main() {
	home, _ := os.UserHomeDir()
	serverURL := flag.String("server", "http://localhost:5000", "chat server base URL")
	sessionFile := flag.String("session-file", filepath.Join(home, ".supportchat.db"), "file holding the saved session token")
	flag.Parse()

	store, err := client.OpenBoltTokenStore(*sessionFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := client.NewSession(client.NewAPI(*serverURL, nil), store)
	r := newREPL(session, bufio.NewReader(os.Stdin), os.Stdout)
	if err := r.run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
