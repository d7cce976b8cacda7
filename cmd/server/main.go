package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ankitaduttagupta/ticketing-service/internal/config"
	"github.com/ankitaduttagupta/ticketing-service/internal/database"
	"github.com/ankitaduttagupta/ticketing-service/internal/handler"
	"github.com/ankitaduttagupta/ticketing-service/internal/middleware"
	"github.com/ankitaduttagupta/ticketing-service/internal/queue"
	"github.com/ankitaduttagupta/ticketing-service/internal/repository"
	"github.com/ankitaduttagupta/ticketing-service/internal/router"
	"github.com/ankitaduttagupta/ticketing-service/internal/service"
	"github.com/ankitaduttagupta/ticketing-service/internal/wallet"
)

func main() {
	cfg := config.Load()

	rdb, err := config.NewRedisClient()
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	repo := repository.NewTicketRepo(rdb)

	// Select the payment collaborator.  The static wallet approves every
	// debit; the mysql wallet charges a real ledger.
	var debitor wallet.Debitor
	switch cfg.WalletMode {
	case "mysql":
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("wallet db: %v", err)
		}
		defer db.Close()
		debitor = wallet.NewSQLWallet(db)
	default:
		debitor = &wallet.Static{Approve: true, Latency: 10 * time.Millisecond}
	}

	purchases := service.NewPurchaseService(repo, debitor, queue.PublishTicketsPurchased, cfg.Lease, cfg.UnitPrice)

	h := handler.NewReservationHandler(repo, purchases)
	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, h,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.AdminGuard(cfg.AdminJWTSecret),
	)

	// The consumer runs its own reconnect loop; only start it when a broker
	// is actually configured so broker-less setups stay quiet.
	if os.Getenv("RABBITMQ_URL") != "" || os.Getenv("AMQP_URL") != "" {
		go func() {
			if err := queue.StartPurchaseConsumer(); err != nil {
				log.Printf("purchase-consumer: %v", err)
			}
		}()
	}

	// Sweepers stop when sweepCtx is cancelled; sweeperDone marks that every
	// per-class loop has exited so the Redis client can be closed safely.
	sweepCtx, stopSweepers := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		service.NewSweeper(repo, cfg.SweepClasses, cfg.SweepInterval, cfg.SweepBatch).Run(sweepCtx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, sweeping %d classes)", addr, cfg.Env, len(cfg.SweepClasses))
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Print("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	stopSweepers()
	<-sweeperDone

	if err := rdb.Close(); err != nil {
		log.Printf("redis close: %v", err)
	}
}
