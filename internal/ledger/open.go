package ledger

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Open returns the store for driver ("sqlite", "sqlite3", "postgres" or
// "pgx"). An empty driver returns (nil, nil): the ledger is disabled.
func Open(ctx context.Context, driver, dsn string, logger logrus.FieldLogger) (Store, error) {
	logger = logger.WithField("component", "ledger")
	switch driver {
	case "":
		return nil, nil
	case "sqlite", "sqlite3":
		s, err := NewSQLiteStore(dsn, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres", "pgx":
		s, err := NewPostgresStore(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", driver)
	}
}
