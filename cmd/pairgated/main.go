package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pairgate/pairgate/config"
	"github.com/pairgate/pairgate/internal/api"
	"github.com/pairgate/pairgate/internal/app"
	"github.com/pairgate/pairgate/internal/archive"
	"github.com/pairgate/pairgate/internal/pairing"
	"github.com/pairgate/pairgate/internal/registry"
	"github.com/pairgate/pairgate/internal/wa"
	"github.com/pairgate/pairgate/internal/webserver"
)

var (
	confFile = flag.String("c", "/etc/pairgate.yaml", "config file path")
	initDb   = flag.Bool("initdb", false, "drop and recreate database tables, then exit")
	showVer  = flag.Bool("v", false, "print version and exit")
)

var version = "dev"

func main() {
	flag.Parse()
	if *showVer {
		fmt.Println("pairgated", version)
		return
	}

	cfg := config.LoadConfig(*confFile)
	if err := os.MkdirAll(cfg.System.Workdir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "workdir:", err)
		os.Exit(1)
	}

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initDb {
		application.InitDb()
		zap.L().Info("database initialized")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archiveClient, err := archive.NewClient(ctx, archive.Config{
		Bucket:     cfg.Archive.Bucket,
		Prefix:     cfg.Archive.Prefix,
		Region:     cfg.Archive.Region,
		Endpoint:   cfg.Archive.Endpoint,
		PathStyle:  cfg.Archive.PathStyle,
		AccessKey:  cfg.Archive.AccessKey,
		SecretKey:  cfg.Archive.SecretKey,
		PublicHost: cfg.Archive.PublicHost,
		Tag:        cfg.Archive.Tag,
	})
	if err != nil {
		zap.L().Fatal("archive client init failed", zap.Error(err))
	}

	reg := registry.New()
	pairingSvc := pairing.NewService(
		wa.NewDialer(),
		application.CredStore(),
		archiveClient,
		reg,
		application.DB(),
		pairing.DefaultPolicy(),
	)

	webserver.Init(application)
	api.InitRouter(api.Deps{
		BaseCtx:  ctx,
		App:      application,
		Pairing:  pairingSvc,
		Archive:  archiveClient,
		Creds:    application.CredStore(),
		Registry: reg,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webserver.Listen()
	})
	g.Go(func() error {
		<-gctx.Done()
		return webserver.Shutdown(context.Background())
	})

	zap.L().Info("pairgated started", zap.String("version", version))
	if err := g.Wait(); err != nil {
		zap.L().Error("server exited", zap.Error(err))
	}
}
