package main

import (
	"calbot/app/config"
	"calbot/app/service/agent"
	"calbot/app/service/api"
	"calbot/app/service/calendar"
	"calbot/app/service/catalog"
	"calbot/app/service/conflict"
	"calbot/app/service/conversation"
	"calbot/app/service/engine"
	"calbot/app/service/mcpsrv"
	"calbot/app/service/reminder"
	"calbot/app/service/shell"
	"calbot/app/util/mylog"
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, calendar.New)
	do.Provide(di, conflict.New)
	do.Provide(di, catalog.New)
	do.Provide(di, agent.New)
	do.Provide(di, engine.New)
	do.Provide(di, conversation.New)
	do.Provide(di, api.New)
	do.Provide(di, mcpsrv.New)
	do.Provide(di, reminder.New)
	do.Provide(di, shell.New)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go func() {
		if err := do.MustInvoke[*api.Service](di).Run(appCtx); err != nil {
			slog.Error("HTTP API stopped", "error", err)
		}
	}()

	go func() {
		if err := do.MustInvoke[*mcpsrv.Service](di).Run(appCtx); err != nil {
			slog.Error("MCP server stopped", "error", err)
		}
	}()

	go func() {
		if err := do.MustInvoke[*reminder.Service](di).Run(appCtx); err != nil {
			slog.Error("Reminder dispatcher stopped", "error", err)
		}
	}()

	// The shell owns the foreground; once it exits the whole app goes down.
	go func() {
		if err := do.MustInvoke[*shell.Service](di).Run(appCtx); err != nil {
			slog.Error("Shell stopped", "error", err)
		}

		cancel()
	}()

	<-appCtx.Done()
}
