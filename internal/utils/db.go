// 包 utils：外部连接与证书等启动期工具
package utils

import (
	"context"
	"database/sql"
	"time"

	"asset-tracker/internal/config"
	"asset-tracker/internal/logger"

	_ "github.com/lib/pq"
)

// OpenPostgres：按配置打开连接池并探活；未启用时返回 (nil, nil)
// 约束：探活失败返回错误，调用方决定是否降级为无持久层运行
func OpenPostgres(ctx context.Context, c config.PostgresConfig) (*sql.DB, error) {
	if !c.Enable {
		return nil, nil
	}
	db, err := sql.Open("postgres", c.DSN())
	if err != nil {
		return nil, err
	}
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.L().Debug("pg_open_ok", "host", c.Host, "db", c.DB)
	return db, nil
}
