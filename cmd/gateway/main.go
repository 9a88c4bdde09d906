// Command gateway runs the ECU data gateway: TCP ingestion of ECU
// frames on one port, a REST API over the collected data on another.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tkivisto/ecugate/internal/gateway"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		tcpAddr    = flag.String("tcp", "", "override ingest listen address")
		httpAddr   = flag.String("http", "", "override REST listen address")
		workers    = flag.Int("workers", -1, "override worker count")
		auditDB    = flag.String("audit-db", "", "override SQLite audit database path")
	)
	flag.Parse()

	cfg := gateway.DefaultConfig()
	if *configPath != "" {
		loaded, err := gateway.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *tcpAddr != "" {
		cfg.TCPAddr = *tcpAddr
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *workers >= 0 {
		cfg.Workers = *workers
	}
	if *auditDB != "" {
		cfg.AuditDB = *auditDB
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	gw, err := gateway.New(cfg, log)
	if err != nil {
		log.Fatal("gateway init failed", zap.Error(err))
	}
	if err := gw.Start(); err != nil {
		gw.Stop()
		log.Fatal("gateway start failed", zap.Error(err))
	}

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()
	go func() {
		for range heartbeat.C {
			gw.Machine().TriggerEvent("heartbeat", nil)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	gw.Stop()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	switch level {
	case "", "info":
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
