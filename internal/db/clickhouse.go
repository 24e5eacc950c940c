package db

import (
	"strings"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
)

const DriverClickHouse = "clickhouse"

// NewClickHouseConnection opens the analytics store used for the webhook delivery log.
// An empty DSN means the log is disabled and (nil, nil) is returned.
// DSN e.g. clickhouse://default:@localhost:9000/promptvault?dial_timeout=5s&compress=true
func NewClickHouseConnection(dsn string, opts SQLOpts) (*sqlx.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, nil
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 3 * time.Second
	}
	db, err := sqlx.Open(DriverClickHouse, dsn)
	if err != nil {
		return nil, err
	}

	applyPool(db, opts)

	if err := ping(db, opts.PingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
