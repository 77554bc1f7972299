package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"checkin/internal/badge"
	"checkin/internal/config"
	"checkin/internal/ledger"
	"checkin/internal/logging"
	"checkin/internal/queue"
	"checkin/internal/resolver"
	"checkin/internal/store"
)

// stationFlags are shared by the station subcommands.
type stationFlags struct {
	category string
	ledger   string
	station  string
}

func (f *stationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.category, "category", "", "Attendance category to mark (overrides CATEGORY)")
	cmd.Flags().StringVar(&f.ledger, "ledger", "", "Ledger base URL (overrides LEDGER_URL)")
	cmd.Flags().StringVar(&f.station, "station-id", "", "Station identifier (overrides STATION_ID)")
}

func (f *stationFlags) apply(cfg *config.App) {
	if f.category != "" {
		cfg.Category = f.category
	}
	if f.ledger != "" {
		cfg.LedgerURL = f.ledger
	}
	if f.station != "" {
		cfg.StationID = f.station
	}
}

func newResolver(cfg config.App) (*ledger.Client, *resolver.Resolver) {
	client := ledger.New(cfg.LedgerURL, cfg.StationID, cfg.RequestTimeout)
	res := resolver.New(client, cfg.Category,
		resolver.WithTimeout(cfg.RequestTimeout),
		resolver.WithLogger(logging.NewLogger("resolver")),
	)
	return client, res
}

// newPrinter builds the badge printer. With the memory backend the spooler runs in
// this process and is returned for the caller to start.
func newPrinter(cfg config.App, log *logrus.Entry) (badge.Printer, *badge.Spooler, func()) {
	if cfg.QueueBackend == "memory" {
		q := queue.NewInMemory(64)
		spooler := badge.NewSpooler(q, cfg.BadgeSpoolDir, logging.NewLogger("spooler"))
		return badge.NewQueuePrinter(q), spooler, func() {}
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	q := queue.NewRedisQueue(redisClient.Client, cfg.PrintQueueKey, logging.NewLogger("queue"))
	return badge.NewQueuePrinter(q), nil, func() {
		if err := redisClient.Close(); err != nil {
			log.WithError(err).Warn("close redis")
		}
	}
}

const shutdownTimeout = 5 * time.Second
