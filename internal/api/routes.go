// 包 api：集中注册 HTTP API 路由，主入口挂载到 API_BASE 前缀
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"asset-tracker/internal/geocode"
	"asset-tracker/internal/logger"
	"asset-tracker/internal/registry"
	"asset-tracker/internal/tracking"
	"asset-tracker/internal/viewport"

	"github.com/gorilla/mux"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorBody{Error: err.Error()})
}

// statusOf：视图错误到 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, tracking.ErrNotMounted):
		return http.StatusConflict
	case errors.Is(err, tracking.ErrUnknownAsset):
		return http.StatusNotFound
	case errors.Is(err, tracking.ErrNothingSelected):
		return http.StatusConflict
	case errors.Is(err, registry.ErrAssetFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, geocode.ErrInvalidCoordinate):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// 文档注释：构建 API 路由
// 背景：服务端没有界面，视图的读取与交互全部通过 JSON 接口暴露；地图表面由 Recorder 承接，客户端轮询 /viewport 同步相机。
// 约束：gs 可为 nil，此时 /reverse-geo 返回 503。
func BuildRoutes(v *tracking.View, rec *viewport.Recorder, gs *geocode.Service) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/self-location", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, v.SelfLocation())
	}).Methods(http.MethodGet)

	r.HandleFunc("/assets", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, v.Assets())
	}).Methods(http.MethodGet)

	r.HandleFunc("/markers", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, v.Markers())
	}).Methods(http.MethodGet)

	r.HandleFunc("/assets/refresh", func(w http.ResponseWriter, req *http.Request) {
		if err := v.Refresh(); err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		writeJSON(w, http.StatusOK, v.Markers())
	}).Methods(http.MethodPost)

	r.HandleFunc("/assets/{id}/select", func(w http.ResponseWriter, req *http.Request) {
		if err := v.Select(mux.Vars(req)["id"]); err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		writeJSON(w, http.StatusAccepted, v.Selection())
	}).Methods(http.MethodPost)

	// ?wait=1：先等在途地址解析结束（受解析超时约束）再返回
	r.HandleFunc("/selection", func(w http.ResponseWriter, req *http.Request) {
		if b, _ := strconv.ParseBool(req.URL.Query().Get("wait")); b {
			v.WaitSelection()
		}
		writeJSON(w, http.StatusOK, v.Selection())
	}).Methods(http.MethodGet)

	r.HandleFunc("/selection", func(w http.ResponseWriter, req *http.Request) {
		if err := v.ClearSelection(); err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	r.HandleFunc("/focus", func(w http.ResponseWriter, req *http.Request) {
		f, ok := registry.ParseFocus(req.URL.Query())
		if !ok {
			writeError(w, http.StatusBadRequest, errors.New("markId, markLat and markLon are required"))
			return
		}
		a, err := v.Focus(f)
		if err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}).Methods(http.MethodPost)

	r.HandleFunc("/viewport/center-selected", func(w http.ResponseWriter, req *http.Request) {
		if err := v.CenterOnSelected(); err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	r.HandleFunc("/viewport", func(w http.ResponseWriter, req *http.Request) {
		if rec == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		cmd, ok := rec.Last()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, cmd)
	}).Methods(http.MethodGet)

	r.HandleFunc("/viewport/history", func(w http.ResponseWriter, req *http.Request) {
		if rec == nil {
			writeJSON(w, http.StatusOK, []viewport.Command{})
			return
		}
		writeJSON(w, http.StatusOK, rec.History())
	}).Methods(http.MethodGet)

	r.HandleFunc("/notice", func(w http.ResponseWriter, req *http.Request) {
		n := v.Notice()
		if n == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, n)
	}).Methods(http.MethodGet)

	r.HandleFunc("/reverse-geo", func(w http.ResponseWriter, req *http.Request) {
		if gs == nil {
			writeError(w, http.StatusServiceUnavailable, errors.New("reverse geocoding disabled"))
			return
		}
		q := req.URL.Query()
		c, err := geocode.ParseCoordinate(q.Get("lat"), q.Get("lon"))
		if err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		res, err := gs.Resolve(req.Context(), c)
		if errors.Is(err, geocode.ErrGeocodeFailed) {
			writeJSON(w, http.StatusNotFound, geocode.Result{})
			return
		}
		if err != nil {
			logger.L().Debug("reverse_geo_error", "err", err)
			writeError(w, http.StatusGatewayTimeout, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}).Methods(http.MethodGet)

	r.HandleFunc("/geocode/providers", func(w http.ResponseWriter, req *http.Request) {
		if gs == nil {
			writeJSON(w, http.StatusOK, []geocode.ProviderStatus{})
			return
		}
		writeJSON(w, http.StatusOK, gs.Providers())
	}).Methods(http.MethodGet)

	r.HandleFunc("/geocode/stats", func(w http.ResponseWriter, req *http.Request) {
		if gs == nil {
			writeJSON(w, http.StatusOK, geocode.Stats{Providers: []geocode.ProviderStatus{}})
			return
		}
		st, err := gs.Stats(req.Context())
		if err != nil {
			logger.L().Error("geocode_stats_error", "err", err)
		}
		writeJSON(w, http.StatusOK, st)
	}).Methods(http.MethodGet)

	return r
}
