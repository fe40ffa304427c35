package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/talkincode/eazybuy/config"
	"github.com/talkincode/eazybuy/internal/adminapi"
	"github.com/talkincode/eazybuy/internal/app"
	"github.com/talkincode/eazybuy/internal/storeapi"
	"github.com/talkincode/eazybuy/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	cfile    = flag.String("c", "", "config file, default eazybuy.yml or /etc/eazybuy.yml")
	initdb   = flag.Bool("initdb", false, "drop and recreate the database schema, then exit")
	showConf = flag.Bool("p", false, "print the effective configuration and exit")
)

func main() {
	flag.Parse()

	cfg := config.LoadConfig(*cfile)
	if *showConf {
		fmt.Printf("%+v\n", cfg)
		return
	}
	cfg.InitDirs()

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.L().Info("database initialized")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := webserver.New(cfg)
	adminHandler := adminapi.NewHandler(
		cfg,
		application.Products(),
		application.Ledger(),
		application.DiscountAdmin(),
		application.Orders(),
		application.Checkout(),
		application.Accounts().Repo(),
		application.Operators(),
	)
	storeHandler := storeapi.NewHandler(
		cfg,
		application.Products(),
		application.Ledger(),
		application.Reconciler(),
		application.Carts(),
		application.Wishlist(),
		application.Checkout(),
		application.Orders(),
		application.Accounts(),
		application.Mailer(),
		application.Prefs(),
	)
	adminHandler.Register(server.PublicGroup(), server.AdminGroup())
	storeHandler.Register(server.PublicGroup(), server.StoreGroup())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx)
	})

	if err := g.Wait(); err != nil {
		zap.L().Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
}
