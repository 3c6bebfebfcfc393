package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Markko1982/order-manager/cmd/order-api/app"
	"github.com/Markko1982/order-manager/configs"
)

func main() {
	env := os.Getenv("APP_ENV") // local | dev | staging | prod
	if env == "" {
		env = "dev"
	}

	cfg, err := configs.Load("configs", env)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, env); err != nil {
		log.Fatal(err)
	}
}
