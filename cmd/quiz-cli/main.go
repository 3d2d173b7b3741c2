package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"quiz-tracker/internal/app"
	"quiz-tracker/internal/cli"
	"quiz-tracker/internal/config"
	"quiz-tracker/internal/opentdb"
)

func main() {
	configPath := flag.String("config", os.Getenv("QUIZ_CONFIG"), "optional YAML config file")
	flag.Parse()

	if err := run(*configPath, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	quizApp, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer quizApp.Close()

	trivia := opentdb.NewClient(&http.Client{Timeout: 15 * time.Second})
	return cli.NewApp(quizApp.Service, trivia, os.Stdout).Run(ctx, args)
}
