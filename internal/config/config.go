package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/char5742/cursor-accel/internal/event"
)

// Config はアプリケーション全体の設定を表す構造体
type Config struct {
	Accel       AccelConfig       `toml:"accel"`
	Pointer     PointerConfig     `toml:"pointer"`
	DevicePrefs DevicePrefsConfig `toml:"device_prefs"`
}

// AccelConfig は加速カーブ処理の設定
type AccelConfig struct {
	EventType       int     `toml:"event_type"`
	Codes           []int   `toml:"codes"`
	CurvePoints     []int32 `toml:"curve_points"`
	TriggerPeriodMs int     `toml:"trigger_period_ms"`
	TrackRemainders bool    `toml:"track_remainders"`
	SharedClock     bool    `toml:"shared_clock"`
}

// PointerConfig は仮想ポインターデバイスの設定
type PointerConfig struct {
	DeviceName string `toml:"device_name"`
}

// DevicePrefsConfig はデバイス選択の設定
type DevicePrefsConfig struct {
	PreferredMouseDevice string `toml:"preferred_mouse_device"`
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		Accel: AccelConfig{
			EventType: event.Rel,
			Codes:     []int{event.RelX, event.RelY},
			// [経過時間ms, 速度px/s, ...] の平坦な列
			CurvePoints:     []int32{0, 600, 250, 1500, 600, 3200},
			TriggerPeriodMs: 16,
			TrackRemainders: false,
			SharedClock:     false,
		},
		Pointer: PointerConfig{
			DeviceName: "CursorAccelPointer",
		},
		DevicePrefs: DevicePrefsConfig{
			PreferredMouseDevice: "",
		},
	}
}

// GetDefaultConfigDir はデフォルトの設定ディレクトリを返す
func GetDefaultConfigDir() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfigDir, "cursor-accel"), nil
}

// LoadConfig は設定ファイルから設定を読み込む
func LoadConfig(configPath string) (*Config, error) {
	// デフォルト設定を用意
	config := DefaultConfig()

	// ファイルが存在しない場合はデフォルト設定を保存して返す
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// 設定ディレクトリの作成
		configDir := filepath.Dir(configPath)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return config, err
		}

		// デフォルト設定の保存
		if err := SaveConfig(configPath, config); err != nil {
			return config, err
		}

		return config, nil
	}

	// 設定ファイルの読み込み
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return config, err
	}

	return config, nil
}

// SaveConfig は設定をTOMLファイルに保存する
func SaveConfig(configPath string, config *Config) error {
	// 設定ディレクトリの作成
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	// ファイルを開く（なければ作成）
	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	// TOML形式でエンコードして書き込み
	encoder := toml.NewEncoder(f)
	return encoder.Encode(config)
}
