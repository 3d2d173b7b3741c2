package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"quiz-tracker/internal/userclient"
)

func main() {
	username := flag.String("username", "", "username to log in with (required)")
	server := flag.String("server", "http://127.0.0.1:3000", "quiz service base URL")
	timeout := flag.Duration("timeout", 5*time.Second, "HTTP timeout")
	randomLimit := flag.Int("random-limit", 20, "default number of tests for 'random'")
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "error: --username is required")
		os.Exit(1)
	}

	err := userclient.Run(context.Background(), os.Stdin, os.Stdout, userclient.Config{
		Username:    *username,
		ServerURL:   *server,
		RandomLimit: *randomLimit,
		HTTPTimeout: *timeout,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
