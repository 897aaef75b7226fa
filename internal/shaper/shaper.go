package shaper

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/char5742/cursor-accel/internal/curve"
	"github.com/char5742/cursor-accel/internal/event"
)

// ErrInvalidConfig は不正なプロセッサ設定を表すエラー
var ErrInvalidConfig = errors.New("不正なプロセッサ設定です")

// Config はモーションシェイパーの設定（構築後は不変）
type Config struct {
	EventType       uint16       // 処理対象のイベントタイプ（通常は event.Rel）
	Codes           []uint16     // 処理対象のイベントコード（軸ごとに1つ）
	Curve           *curve.Table // 加速カーブ
	TriggerPeriodMs int          // 上流デバイスのイベント周期（ミリ秒）
	TrackRemainders bool         // サブピクセル剰余を軸ごとに持ち越すかどうか
	SharedClock     bool         // 全軸で単一の活動クロックを共有するかどうか
}

// axisState は軸ごとの実行時状態
type axisState struct {
	active        bool      // 移動中かどうか
	startTime     time.Time // 移動開始時刻
	lastDirection int8      // 直前の移動方向（-1, 0, +1）
	remainder     float64   // 持ち越したサブピクセル剰余
}

// Shaper は相対移動イベントを加速カーブに従って変換するモーションシェイパー
// 1インスタンスの状態更新はミューテックスで直列化される
type Shaper struct {
	cfg Config

	mu   sync.Mutex
	axes map[uint16]*axisState
	now  func() time.Time

	// クロック共有モード用の状態
	sharedActive bool
	sharedStart  time.Time
}

// 新しいモーションシェイパーを作成する
// 設定の不備は構築時に検出され、処理中にエラーは発生しない
func New(cfg Config) (*Shaper, error) {
	if len(cfg.Codes) == 0 {
		return nil, fmt.Errorf("%w: 処理対象コードが指定されていません", ErrInvalidConfig)
	}
	if cfg.Curve == nil {
		return nil, fmt.Errorf("%w: 加速カーブが指定されていません", ErrInvalidConfig)
	}
	if cfg.TriggerPeriodMs <= 0 {
		return nil, fmt.Errorf("%w: イベント周期は正の値が必要です [period=%d]", ErrInvalidConfig, cfg.TriggerPeriodMs)
	}

	axes := make(map[uint16]*axisState, len(cfg.Codes))
	for _, code := range cfg.Codes {
		axes[code] = &axisState{}
	}

	return &Shaper{
		cfg:  cfg,
		axes: axes,
		now:  time.Now,
	}, nil
}

// Process はイベントを1つ処理し、変換後のイベントを返す
// 対象外のイベントと停止イベント（値0）はそのまま通過する
func (s *Shaper) Process(ev event.Event) event.Event {
	if ev.Type != s.cfg.EventType {
		return ev
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	axis, ok := s.axes[ev.Code]
	if !ok {
		return ev
	}

	// 値0は移動停止を意味する
	if ev.Value == 0 {
		axis.active = false
		axis.lastDirection = 0
		axis.remainder = 0
		if s.cfg.SharedClock && s.allStopped() {
			s.sharedActive = false
		}
		return ev
	}

	currentDirection := int8(1)
	if ev.Value < 0 {
		currentDirection = -1
	}

	// 方向反転は加速ランプを最初からやり直す
	if axis.lastDirection != 0 && axis.lastDirection != currentDirection {
		axis.active = false
		axis.remainder = 0
		if s.cfg.SharedClock {
			s.sharedActive = false
		}
	}

	axis.lastDirection = currentDirection

	now := s.now()
	var startTime time.Time
	if s.cfg.SharedClock {
		if !s.sharedActive {
			s.sharedActive = true
			s.sharedStart = now
		}
		axis.active = true
		startTime = s.sharedStart
	} else {
		if !axis.active {
			axis.active = true
			axis.startTime = now
		}
		startTime = axis.startTime
	}

	elapsedMs := now.Sub(startTime).Milliseconds()
	speed := s.cfg.Curve.SpeedAt(elapsedMs)
	delta := s.deltaFor(speed, axis)

	out := ev
	out.Value = int32(currentDirection) * delta
	return out
}

// deltaFor は速度（ピクセル/秒）をイベントあたりの移動量に変換する
func (s *Shaper) deltaFor(speed int32, axis *axisState) int32 {
	if s.cfg.TrackRemainders {
		// サブピクセル剰余を持ち越して丸め誤差の蓄積を防ぐ
		raw := float64(speed) * float64(s.cfg.TriggerPeriodMs) / 1000.0
		total := raw + axis.remainder
		delta := math.Trunc(total)
		axis.remainder = total - delta
		return int32(delta)
	}

	delta := speed * int32(s.cfg.TriggerPeriodMs) / 1000
	// 速度が正なら最低1ピクセルは動かす
	if delta == 0 && speed > 0 {
		delta = 1
	}
	return delta
}

// allStopped は全軸の方向が0かどうかを返す
func (s *Shaper) allStopped() bool {
	for _, axis := range s.axes {
		if axis.lastDirection != 0 {
			return false
		}
	}
	return true
}
