// Package main запускает HTTP-сервер витрины доставки еды.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/foodie-express/internal/cart"
	"github.com/mmeshcher/foodie-express/internal/catalog"
	"github.com/mmeshcher/foodie-express/internal/config"
	"github.com/mmeshcher/foodie-express/internal/events"
	"github.com/mmeshcher/foodie-express/internal/handler"
	"github.com/mmeshcher/foodie-express/internal/middleware"
	"github.com/mmeshcher/foodie-express/internal/order"
	"github.com/mmeshcher/foodie-express/internal/remote"
	"github.com/mmeshcher/foodie-express/internal/repository"
	"github.com/mmeshcher/foodie-express/internal/service"
	"github.com/mmeshcher/foodie-express/internal/tracking"
)

const mirrorQueueSize = 256

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(cfg.DatabaseURI, cfg.SQLitePath)
	if err != nil {
		sugar.Fatalw("storage initialization error", "error", err.Error())
	}
	defer store.Close()

	hub := events.NewHub(logger)

	menu := catalog.NewRepository(store, hub, logger, catalog.Baseline())
	menu.Reload(ctx)

	var (
		cartRemote cart.Remote
		queue      cart.Enqueuer
		mirror     *remote.Mirror
		opts       = []service.Option{service.WithAdmins(cfg.AdminEmails)}
	)

	if cfg.RemoteEnabled() {
		sink, err := remote.NewRedisSink(ctx, cfg.RemoteSinkAddress)
		if err != nil {
			sugar.Fatalw("remote sink initialization error", "error", err.Error())
		}
		defer sink.Close()

		mirror = remote.NewMirror(logger, mirrorQueueSize)
		cartRemote = sink
		queue = mirror
		opts = append(opts, service.WithRemote(sink, mirror))
		sugar.Infow("remote sink enabled", "addr", cfg.RemoteSinkAddress)
	} else {
		sugar.Info("running in demo mode without remote sink")
	}

	if cfg.TrackingSystemAddress != "" {
		opts = append(opts, service.WithTracker(tracking.NewClient(cfg.TrackingSystemAddress)))
	}

	carts := cart.NewService(store, cartRemote, queue, logger)
	ledger := order.NewLedger(store, logger)
	svc := service.NewService(store, menu, carts, ledger, logger, opts...)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, hub, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Фоновая синхронизация с удалённым зеркалом
	if mirror != nil {
		g.Go(func() error {
			return mirror.Run(ctx)
		})
	}

	// Сигналы об изменениях хранилища от других экземпляров
	g.Go(func() error {
		err := store.Watch(ctx, func(key repository.Key) {
			menu.OnStorageChange(ctx, key)
			carts.OnStorageChange(ctx, key)
			hub.Broadcast(events.StorageChanged(key.String()))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("storage watch error: %w", err)
		}
		return nil
	})

	// Опрос системы отслеживания заказов
	g.Go(func() error {
		svc.StartStatusUpdates(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting foodie express server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
