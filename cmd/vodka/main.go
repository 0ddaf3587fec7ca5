package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/liangyou/vodka/internal/cli"
	"github.com/liangyou/vodka/internal/config"
	"github.com/liangyou/vodka/internal/feed"
	"github.com/liangyou/vodka/internal/platform"
	"github.com/liangyou/vodka/internal/remote"
	"github.com/liangyou/vodka/internal/storage"
	"github.com/liangyou/vodka/internal/version"
)

const appVersion = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(os.Stdout, buildServices, appVersion)
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func buildServices(configFile string) (*cli.Services, error) {
	cfg, err := config.Load(config.Options{ConfigFile: configFile})
	if err != nil {
		return nil, err
	}

	registry := storage.NewFileRegistry(cfg)
	client := remote.NewClient(remote.WithUserAgent("vodka/" + appVersion))
	catalog := remote.NewCatalog(remote.DefaultSources(client, cfg), remote.WithFetchTimeout(cfg.FetchTimeout))
	downloader := version.NewDownloader(cfg, client)
	verifier := version.NewVerifier(client)
	installer := version.NewInstaller(registry, downloader, verifier, client, feed.Resolve(cfg),
		version.WithProgressObserver(cli.ProgressPrinter(os.Stderr)))

	return &cli.Services{
		Lister:      version.NewLister(catalog, registry),
		Installer:   installer,
		Uninstaller: version.NewUninstaller(registry),
		Registry:    registry,
		Platform:    platform.NewChecker(cfg),
	}, nil
}
