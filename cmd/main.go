// 程序入口：读取配置、初始化依赖、挂载追踪视图并启动 HTTP 服务；路由注册在 internal/api
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"asset-tracker/internal/api"
	"asset-tracker/internal/auth"
	"asset-tracker/internal/backend"
	"asset-tracker/internal/config"
	"asset-tracker/internal/geo"
	"asset-tracker/internal/geocode"
	"asset-tracker/internal/locate"
	"asset-tracker/internal/logger"
	"asset-tracker/internal/metrics"
	"asset-tracker/internal/middleware"
	"asset-tracker/internal/migrate"
	"asset-tracker/internal/registry"
	"asset-tracker/internal/revgeo"
	"asset-tracker/internal/store"
	"asset-tracker/internal/tracking"
	"asset-tracker/internal/utils"
	"asset-tracker/internal/viewport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Setup().Error("config_error", "err", err)
		os.Exit(1)
	}
	l := logger.SetupWith(cfg.Log.Level, cfg.Log.Format)
	l.Debug("log_init_ok")
	l.Debug("config_api_base", "base", cfg.APIBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gs, st := buildGeocoder(ctx, cfg)
	if st != nil {
		defer st.Close()
	}

	rec := viewport.NewRecorder(cfg.Viewport.History)
	var tokens auth.TokenProvider
	if cfg.AssetAPI.Token != "" {
		tokens = auth.NewStaticToken(cfg.AssetAPI.Token)
	} else {
		l.Warn("asset_api_token_missing")
	}
	if cfg.AssetAPI.Base == "" {
		l.Warn("asset_api_base_missing")
	}
	view := tracking.New(tracking.Deps{
		Device: &locate.StaticDevice{
			Permission: cfg.Device.Permission,
			Service:    cfg.Device.Service,
			Position:   geo.Coordinate{Latitude: cfg.Device.Lat, Longitude: cfg.Device.Lon},
			FixDelay:   cfg.Device.FixDelay(),
			FailCode:   cfg.Device.FailCode,
		},
		Prompter: locate.NewPolicyPrompter(map[locate.Stage]locate.Choice{
			locate.StagePermission: locate.ParseChoice(cfg.Recovery.Permission),
			locate.StageService:    locate.ParseChoice(cfg.Recovery.Service),
			locate.StageFix:        locate.ParseChoice(cfg.Recovery.Fix),
		}, cfg.Recovery.MaxRetries, cfg.Recovery.Delay()),
		Fetcher:  backend.NewClient(cfg.AssetAPI.Base, cfg.AssetAPI.Path, &http.Client{Timeout: cfg.AssetAPI.Timeout()}),
		Tokens:   tokens,
		Geocoder: gs,
		Surface:  rec,
		Options: tracking.Options{
			Default:       geo.Coordinate{Latitude: cfg.Default.Lat, Longitude: cfg.Default.Lon},
			LocateTimeout: cfg.Locate.Timeout(),
			Animate:       cfg.Viewport.Animate(),
			LatDelta:      cfg.Viewport.LatDelta,
			LonDelta:      cfg.Viewport.LonDelta,
		},
	})

	// 启动深链：FOCUS_QUERY=markId=9&markLat=17.45&markLon=78.38
	var focus *registry.FocusRequest
	if q := strings.TrimSpace(cfg.Focus.Query); q != "" {
		if vals, err := url.ParseQuery(q); err != nil {
			l.Warn("focus_query_invalid", "err", err)
		} else if f, ok := registry.ParseFocus(vals); ok {
			focus = &f
			l.Info("focus_from_config", "id", f.ID)
		}
	}
	if err := view.Mount(ctx, focus); err != nil {
		l.Error("view_mount_error", "err", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, api.BuildRoutes(view, rec, gs)))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler, cfg.RateLimit, cfg.Origin)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		view.Unmount()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	if cfg.TLS.Enable {
		if err := utils.EnsureSelfSignedCert(cfg.TLS.CertPath, cfg.TLS.KeyPath, cfg.TLS.Host); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		if cfg.TLS.RedirectEnable {
			go redirectToHTTPS(l, cfg.TLS.RedirectAddr, cfg.Addr)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLS.CertPath)
		err = s.ListenAndServeTLS(cfg.TLS.CertPath, cfg.TLS.KeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("server_stopped")
}

// 文档注释：组装地址解析链路
// 背景：提供方按注册顺序尝试（高德 → 外部 HTTP → 离线快照）；PostgreSQL 与 Redis 均为可选层，连接失败只降级不退出。
func buildGeocoder(ctx context.Context, cfg *config.Config) (*geocode.Service, *store.Store) {
	l := logger.L()
	pm := geocode.NewManager(cfg.Geocode.Heartbeat())
	if cfg.AMapServerKey != "" {
		pm.Register(geocode.NewAMapProvider(cfg.AMapServerKey, &http.Client{Timeout: 4 * time.Second}))
	}
	if ep := cfg.Geocode.HTTPEndpoint; ep != "" {
		pm.Register(geocode.NewHTTPProvider(cfg.Geocode.HTTPName, ep, 3*time.Second))
	}
	if lp, err := geocode.NewLocalProvider(cfg.ReverseGeo.DataDir, revgeo.Options{
		CacheSize: cfg.ReverseGeo.CacheSize,
		CacheTTL:  cfg.ReverseGeo.CacheTTL(),
		RadiusKm:  cfg.ReverseGeo.KDTreeRadiusKm,
	}); err == nil {
		pm.Register(lp)
	} else {
		l.Info("revgeo_local_disabled", "dir", cfg.ReverseGeo.DataDir, "err", err)
	}
	pm.Start(ctx)

	gs := geocode.NewService(pm, geocode.Options{
		MemorySize:  cfg.ReverseGeo.CacheSize,
		MemoryTTL:   cfg.ReverseGeo.CacheTTL(),
		StoreMaxAge: cfg.ReverseGeo.StoreMaxAge(),
		Timeout:     cfg.Geocode.Timeout(),
	})

	var st *store.Store
	if db, err := utils.OpenPostgres(ctx, cfg.PG); err != nil {
		l.Error("db_open_error", "err", err)
	} else if db != nil {
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			l.Error("schema_error", "err", err)
			db.Close()
		} else {
			st = store.AttachDB(db)
			gs.WithStore(st)
			l.Info("db_open_ok")
		}
	}
	if rc, err := utils.OpenRedis(ctx, cfg.Redis); err != nil {
		l.Error("redis_ping_error", "err", err)
	} else if rc != nil {
		gs.WithCache(geocode.NewRedisCache(rc, cfg.ReverseGeo.CacheTTL()))
		l.Info("redis_ping_ok")
	}
	return gs, st
}

// redirectToHTTPS：HTTP → HTTPS 301 跳转
func redirectToHTTPS(l *slog.Logger, from, httpsAddr string) {
	port := strings.TrimPrefix(httpsAddr, ":")
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if i := strings.LastIndex(host, ":"); i != -1 {
			host = host[:i]
		}
		if port != "" && port != "443" {
			host += ":" + port
		}
		target := "https://" + host + r.URL.RequestURI()
		l.Debug("http_redirect", "from", r.Host, "to", target)
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
	l.Info("http_redirect_listening", "addr", from, "to", "https"+httpsAddr)
	_ = http.ListenAndServe(from, h)
}
