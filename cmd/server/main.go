package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solshop-be/internal/cart"
	"solshop-be/internal/checkout"
	"solshop-be/internal/config"
	"solshop-be/internal/currency"
	"solshop-be/internal/db"
	"solshop-be/internal/exchange"
	internalhttp "solshop-be/internal/http"
	"solshop-be/internal/ledger"
	"solshop-be/internal/logger"
	"solshop-be/internal/order"
	"solshop-be/internal/payment"
	"solshop-be/internal/reconcile"
	"solshop-be/internal/wallet"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	database := db.InitDB(cfg)
	defer database.Close()

	cartRepo := cart.NewRepository(database)
	cartSvc := cart.NewService(cartRepo)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo)

	rateSvc := exchange.NewService(rateSource(cfg))

	signer := wallet.NewBridgeSigner(cfg.WalletBridgeURL)
	chain := ledger.NewRPCClient(cfg.LedgerRPCURL)
	submitter := payment.NewSubmitter(signer, chain, cfg.ConfirmPollInterval, cfg.ConfirmTimeout)

	orchestrator := checkout.NewOrchestrator(cartSvc, orderSvc, submitter, cfg.MerchantAddress)

	handler := internalhttp.NewHandler(cartSvc, orderSvc, orchestrator, rateSvc)
	srv := internalhttp.NewServer(handler)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	worker := reconcile.NewWorker(orderRepo, chain, cfg.ReconcileInterval)
	go worker.Run(workerCtx)

	httpServer := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: srv.Router,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.AppPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	stopWorker()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}

// rateSource picks the quote source: a live price API by default, or
// rates pinned in the environment for offline development.
func rateSource(cfg *config.Config) exchange.RateSource {
	if cfg.FixedRates {
		rates := make(map[currency.Currency]decimal.Decimal)
		if v, err := decimal.NewFromString(cfg.SOLUSDRate); err == nil {
			rates[currency.SOL] = v
		}
		if v, err := decimal.NewFromString(cfg.USDCUSDRate); err == nil {
			rates[currency.USDC] = v
		}
		return exchange.FixedSource{Rates: rates}
	}
	return exchange.NewHTTPSource(cfg.RateAPIURL)
}
