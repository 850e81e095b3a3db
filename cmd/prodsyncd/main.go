package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/openshelf/prodsync/config"
	"github.com/openshelf/prodsync/internal/adminapi"
	"github.com/openshelf/prodsync/internal/app"
	"github.com/openshelf/prodsync/internal/webserver"
)

var (
	configFile = flag.String("c", "/etc/prodsync.yml", "config file")
	initDB     = flag.Bool("initdb", false, "drop and recreate all tables, then exit")
	showVer    = flag.Bool("v", false, "print version and exit")
)

var version = "dev"

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println("prodsyncd", version)
		return
	}

	cfg := config.LoadConfig(*configFile)
	cfg.InitDirs()

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initDB {
		application.DropAll()
		if err := application.MigrateDB(); err != nil {
			zap.S().Fatalf("initdb failed: %v", err)
		}
		zap.S().Info("database initialized")
		return
	}

	server := webserver.NewWebServer(cfg, application.Auth())
	adminapi.Attach(server.Echo(), adminapi.Deps{
		DB:      application.DB(),
		Store:   application.Store(),
		Auth:    application.Auth(),
		Manager: application.Workbenches(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zap.S().Fatalf("web server error: %v", err)
		}
	case sig := <-sigCh:
		zap.S().Infof("received signal %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			zap.S().Errorf("shutdown error: %v", err)
		}
	}
}
