// 包 store：反地理结果的 PostgreSQL 持久层
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"asset-tracker/internal/geo"
	"asset-tracker/internal/logger"

	_ "github.com/lib/pq"
)

// Store：持有连接池，按 geohash 读写地址
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// Address：一条已解析地址
type Address struct {
	Geohash   string
	Latitude  float64
	Longitude float64
	Address   string
	Source    string
	UpdatedAt time.Time
}

// 文档注释：按 geohash 查询地址
// 背景：Redis 失效或冷启动后，数据库作为第三层缓存，避免对同一位置重复调用付费接口。
// 约束：未命中返回 (nil, nil)；过期判定由 maxAge 决定，<=0 表示不过期。
func (s *Store) LookupAddress(ctx context.Context, hash string, maxAge time.Duration) (*Address, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT geohash, lat, lon, address, source, updated_at FROM _revgeo_addresses WHERE geohash=$1 LIMIT 1", hash)
	var a Address
	if err := row.Scan(&a.Geohash, &a.Latitude, &a.Longitude, &a.Address, &a.Source, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.L().Debug("db_address_miss", "geohash", hash)
			return nil, nil
		}
		return nil, err
	}
	if maxAge > 0 && time.Since(a.UpdatedAt) > maxAge {
		logger.L().Debug("db_address_stale", "geohash", hash, "updated_at", a.UpdatedAt)
		return nil, nil
	}
	logger.L().Debug("db_address_hit", "geohash", hash, "source", a.Source)
	return &a, nil
}

// 文档注释：写入或更新地址
// 约束：空地址不写；同一 geohash 以最后一次写入为准，hits 在冲突时累加。
func (s *Store) UpsertAddress(ctx context.Context, c geo.Coordinate, address, source string) error {
	if address == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO _revgeo_addresses(geohash, lat, lon, address, source)
        VALUES($1,$2,$3,$4,$5)
        ON CONFLICT (geohash) DO UPDATE SET address=EXCLUDED.address, source=EXCLUDED.source, lat=EXCLUDED.lat, lon=EXCLUDED.lon, hits=_revgeo_addresses.hits+1, updated_at=now()`,
		geo.Geohash(c, 7), c.Latitude, c.Longitude, address, source,
	)
	return err
}

// Totals：持久层统计
type Totals struct {
	Addresses int64 `json:"addresses"`
	Hits      int64 `json:"hits"`
}

func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(hits),0) FROM _revgeo_addresses")
	if err := row.Scan(&t.Addresses, &t.Hits); err != nil {
		return nil, err
	}
	return &t, nil
}
