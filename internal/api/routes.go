package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/char5742/cursor-accel/internal/config"
	"github.com/char5742/cursor-accel/internal/features"
)

// ステータスページ（ブラウザから現在の状態を確認するための簡易UI）
const statusPageHTML = `<!DOCTYPE html>
<html lang="ja">
<head><meta charset="utf-8"><title>cursor-accel</title></head>
<body>
<h1>cursor-accel</h1>
<p>カーソル加速デーモンの制御API</p>
<ul>
<li><a href="/api/config">現在の設定</a></li>
<li><a href="/api/devices">デバイス一覧</a></li>
<li><a href="/api/service/status">サービス状態</a></li>
<li><a href="/api/health">ヘルスチェック</a></li>
</ul>
</body>
</html>
`

// ルートの設定
func (s *Server) setupRoutes(router *http.ServeMux) {
	// ステータスページ
	router.HandleFunc("GET /{$}", s.handleStatusPage)

	// 設定関連のエンドポイント
	router.HandleFunc("GET /api/config", s.handleGetConfig)
	router.HandleFunc("PUT /api/config", s.handleUpdateConfig)
	router.HandleFunc("POST /api/config/save", s.handleSaveConfig)

	// デバイス関連のエンドポイント
	router.HandleFunc("GET /api/devices", s.handleGetDevices)
	router.HandleFunc("PUT /api/devices/preferred", s.handleSetPreferredDevice)

	// サービス関連のエンドポイント
	router.HandleFunc("POST /api/service/start", s.handleStartService)
	router.HandleFunc("POST /api/service/stop", s.handleStopService)
	router.HandleFunc("GET /api/service/status", s.handleServiceStatus)

	// ヘルスチェック用エンドポイント
	router.HandleFunc("GET /api/health", s.handleHealthCheck)
}

// ステータスページハンドラ
func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(statusPageHTML))
}

// 設定取得ハンドラ
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.GetConfig())
}

// 設定更新ハンドラ
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var newConfig config.Config

	if err := json.NewDecoder(r.Body).Decode(&newConfig); err != nil {
		writeError(w, http.StatusBadRequest, "設定の解析に失敗しました")
		return
	}

	// 不正な設定は受け付けない
	if _, err := BuildShaper(&newConfig); err != nil {
		writeError(w, http.StatusBadRequest, "設定の検証に失敗しました: "+err.Error())
		return
	}

	s.UpdateConfig(&newConfig)
	s.service.UpdateConfig(&newConfig)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// 設定保存ハンドラ
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var saveRequest struct {
		Path string `json:"path"`
	}

	if err := json.NewDecoder(r.Body).Decode(&saveRequest); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました")
		return
	}

	configPath := saveRequest.Path
	if configPath == "" {
		// デフォルトパスを使用
		userConfigDir, err := config.GetDefaultConfigDir()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "デフォルト設定ディレクトリの取得に失敗しました")
			return
		}
		configPath = filepath.Join(userConfigDir, "config.toml")
	}

	if err := config.SaveConfig(configPath, s.GetConfig()); err != nil {
		writeError(w, http.StatusInternalServerError, "設定の保存に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"path":   configPath,
	})
}

// デバイス一覧取得ハンドラ
func (s *Server) handleGetDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := features.ScanDevices()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "デバイス一覧の取得に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, devices)
}

// 優先デバイス設定ハンドラ
func (s *Server) handleSetPreferredDevice(w http.ResponseWriter, r *http.Request) {
	var request struct {
		MouseDevice string `json:"mouse_device"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました")
		return
	}

	cfg := s.GetConfig()
	cfg.DevicePrefs.PreferredMouseDevice = request.MouseDevice
	s.UpdateConfig(cfg)

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// サービス開始ハンドラ
func (s *Server) handleStartService(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Start(); err != nil {
		writeError(w, http.StatusInternalServerError, "サービスの開始に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// サービス停止ハンドラ
func (s *Server) handleStopService(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Stop(); err != nil {
		writeError(w, http.StatusInternalServerError, "サービスの停止に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// サービス状態取得ハンドラ
func (s *Server) handleServiceStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"running": s.service.IsRunning()})
}

// ヘルスチェックハンドラ
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
