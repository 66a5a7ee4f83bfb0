package migrate

import (
	"context"
	"database/sql"

	"asset-tracker/internal/logger"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS _revgeo_addresses (
            geohash TEXT PRIMARY KEY,
            lat DOUBLE PRECISION NOT NULL,
            lon DOUBLE PRECISION NOT NULL,
            address TEXT NOT NULL,
            source TEXT NOT NULL DEFAULT '',
            hits BIGINT NOT NULL DEFAULT 0,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
	`CREATE INDEX IF NOT EXISTS idx_revgeo_updated ON _revgeo_addresses(updated_at)`,
}

// 背景：首次运行自动创建地址持久表
// 约束：只用 IF NOT EXISTS，重复执行无副作用
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range statements {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
