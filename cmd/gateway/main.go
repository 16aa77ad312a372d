// Command gateway is the ATM acquirer gateway's entry point: it wires
// config, logging, metrics, the ISO-8583 dictionary/codec, the charge
// engine, the ESB client, the processor, and the TCP server together and
// runs until a termination signal arrives (spec.md §4.9, §5).
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pride-innovation/atm-gateway/internal/charge"
	"github.com/pride-innovation/atm-gateway/internal/config"
	"github.com/pride-innovation/atm-gateway/internal/esb"
	"github.com/pride-innovation/atm-gateway/internal/iso"
	"github.com/pride-innovation/atm-gateway/internal/logging"
	"github.com/pride-innovation/atm-gateway/internal/metrics"
	"github.com/pride-innovation/atm-gateway/internal/processor"
	"github.com/pride-innovation/atm-gateway/internal/server"
)

const defaultConfigPath = "config/gateway.yaml"

var (
	configPath  = flag.String("config", defaultConfigPath, "Path to gateway configuration file")
	metricsAddr = flag.String("metrics", "0.0.0.0:9090", "Prometheus metrics endpoint address")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.L().Fatal("failed to load configuration", zap.Error(err))
	}
	logging.SetLevel(cfg.LogLevel)
	logger := logging.L()

	m := metrics.NewMetrics()
	go startMetricsServer(*metricsAddr, logger)

	dict := iso.NewDictionary()
	codec := iso.NewWireCodec(dict, false)

	chargeEngine := charge.NewEngine(chargeParams(cfg), chargeAccounts(cfg))

	esbClient := esb.NewClient(esb.Config{
		BaseURL:        cfg.Esb.BaseURL,
		Username:       cfg.Esb.Username,
		Password:       cfg.Esb.Password,
		Withdrawal:     cfg.Esb.Withdrawal,
		Deposit:        cfg.Esb.Deposit,
		Purchase:       cfg.Esb.Purchase,
		BalanceInquiry: cfg.Esb.BalanceInquiry,
		MiniStatement:  cfg.Esb.MiniStatement,
	}, logger)

	proc := processor.New(dict, esbClient, chargeEngine, logger, m)

	srv := server.New(server.Config{
		Addr:        ":" + strconv.Itoa(cfg.Server.Port),
		Workers:     cfg.Server.Threads,
		IdleTimeout: cfg.Server.SocketTimeout(),
	}, codec, proc, logger, m)

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Fatal("tcp server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown did not complete cleanly", zap.Error(err))
	}
}

func chargeParams(cfg config.Config) charge.Params {
	p := charge.DefaultParams()
	b := cfg.Esb.Charges
	if b.Base.Initial > 0 {
		p.BaseInitial = b.Base.Initial
	}
	if b.Base.BandSize > 0 {
		p.BandSize = b.Base.BandSize
	}
	if b.Base.Increment > 0 {
		p.BandIncrement = b.Base.Increment
	}
	if b.Excise.Rate > 0 {
		p.ExciseDutyRate = b.Excise.Rate
	}
	if b.Pride.SharePercent > 0 {
		p.PrideSharePercent = b.Pride.SharePercent
	}
	p.InterSwitchCommission = b.InterSwitch.Commission
	return p
}

func chargeAccounts(cfg config.Config) charge.Accounts {
	return charge.Accounts{
		InterSwitchSettlement:      cfg.Esb.InterSwitchSettlementAccount,
		TaxAccount:                 cfg.Esb.TaxAccount,
		PrideChargeAccount:         cfg.Esb.PrideChargeAccount,
		InterSwitchChargeAccount:   cfg.Esb.InterSwitchChargeAccount,
		InterSwitchCommissionsAcct: cfg.Esb.InterSwitchCommissionsAcct,
		PrideCommissionsSettlement: cfg.Esb.PrideCommissionsSettlement,
	}
}

func startMetricsServer(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("starting prometheus metrics server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server error", zap.Error(err))
	}
}
