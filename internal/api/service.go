package api

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/char5742/cursor-accel/internal/config"
	"github.com/char5742/cursor-accel/internal/curve"
	"github.com/char5742/cursor-accel/internal/event"
	"github.com/char5742/cursor-accel/internal/features"
	"github.com/char5742/cursor-accel/internal/shaper"
)

// AccelService はカーソル加速サービスを管理する構造体
type AccelService struct {
	cfg          *config.Config
	stopChan     chan struct{}
	running      bool
	statusMutex  sync.RWMutex
	pointer      features.Pointer
	mouse        features.Mouse
	monitor      *features.DeviceMonitor
	updateConfig chan *config.Config
}

// NewAccelService は新しいカーソル加速サービスを作成する
func NewAccelService(cfg *config.Config) *AccelService {
	return &AccelService{
		cfg:          cfg,
		stopChan:     make(chan struct{}),
		running:      false,
		updateConfig: make(chan *config.Config, 1),
	}
}

// BuildShaper は設定からモーションシェイパーを構築する
// 設定に不備がある場合はここでエラーとなり、サービスは開始されない
func BuildShaper(cfg *config.Config) (*shaper.Shaper, error) {
	table, err := curve.FromPairs(cfg.Accel.CurvePoints)
	if err != nil {
		return nil, err
	}

	codes := make([]uint16, 0, len(cfg.Accel.Codes))
	for _, code := range cfg.Accel.Codes {
		codes = append(codes, uint16(code))
	}

	return shaper.New(shaper.Config{
		EventType:       uint16(cfg.Accel.EventType),
		Codes:           codes,
		Curve:           table,
		TriggerPeriodMs: cfg.Accel.TriggerPeriodMs,
		TrackRemainders: cfg.Accel.TrackRemainders,
		SharedClock:     cfg.Accel.SharedClock,
	})
}

// Start はカーソル加速サービスを開始する
func (s *AccelService) Start() error {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	if s.running {
		return fmt.Errorf("サービスは既に実行中です")
	}

	// 設定の検証を兼ねてシェイパーを構築する
	motionShaper, err := BuildShaper(s.cfg)
	if err != nil {
		return fmt.Errorf("モーションシェイパーの構築に失敗しました: %w", err)
	}

	// 仮想ポインターデバイスの作成
	pointer, err := features.CreatePointer("/dev/uinput", []byte(s.cfg.Pointer.DeviceName))
	if err != nil {
		return fmt.Errorf("仮想ポインターの作成に失敗しました: %v", err)
	}
	s.pointer = pointer

	// デバイス一覧の取得
	devices, err := features.ScanDevices()
	if err != nil {
		s.pointer.Close()
		return fmt.Errorf("デバイス一覧の取得に失敗しました: %v", err)
	}

	// 設定ファイルで指定された優先デバイスまたは最初のマウスを使用
	preferredMouse := s.cfg.DevicePrefs.PreferredMouseDevice

	var mouseDevice *features.Device
	var firstMouseDevice *features.Device
	for i := range devices {
		device := &devices[i]
		if device.Type != features.DeviceTypeMouse {
			continue
		}
		if firstMouseDevice == nil {
			firstMouseDevice = device
		}
		if preferredMouse != "" && device.Name == preferredMouse {
			mouseDevice = device
		}
	}

	// 優先デバイスが見つからなかった場合は最初のデバイスを使用
	if mouseDevice == nil {
		mouseDevice = firstMouseDevice
	}
	if mouseDevice == nil {
		s.pointer.Close()
		return fmt.Errorf("マウスデバイスが見つかりませんでした")
	}

	log.Printf("使用するマウス: %s", mouseDevice.Name)

	// マウスデバイスを開いて専有する
	mouse, err := features.CreateMouse(mouseDevice.Path)
	if err != nil {
		s.pointer.Close()
		return fmt.Errorf("マウスデバイスのオープンに失敗しました[path=%s]: %v", mouseDevice.Path, err)
	}
	if err := mouse.Grab(); err != nil {
		mouse.Close()
		s.pointer.Close()
		return fmt.Errorf("マウスデバイスの専有に失敗しました: %v", err)
	}
	s.mouse = mouse

	// ホットプラグの監視を開始
	monitor, err := features.NewDeviceMonitor()
	if err != nil {
		log.Printf("デバイスモニターの作成に失敗しました: %v", err)
	} else {
		s.monitor = monitor
		sourcePath := mouseDevice.Path
		monitor.RegisterCallback(func(ev features.DeviceEvent) {
			if ev.Type == features.DeviceRemoved && ev.Path == sourcePath {
				log.Printf("処理対象のマウスが切断されました: %s", ev.Path)
			}
		})
		if err := monitor.Start(); err != nil {
			log.Printf("デバイスモニターの起動に失敗しました: %v", err)
		}
	}

	s.stopChan = make(chan struct{})
	s.running = true

	// イベント変換のメインループを開始
	go s.runAccelLoop(motionShaper)

	return nil
}

// Stop はカーソル加速サービスを停止する
func (s *AccelService) Stop() error {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	if !s.running {
		return fmt.Errorf("サービスは実行されていません")
	}

	close(s.stopChan)
	s.running = false

	// デバイスのクローズは runAccelLoop 内で行われる

	return nil
}

// UpdateConfig は設定を更新する
func (s *AccelService) UpdateConfig(cfg *config.Config) {
	select {
	case s.updateConfig <- cfg:
		// 設定更新チャネルに送信成功
	default:
		// チャネルがブロックされている場合は古い設定を破棄して新しい設定を送信
		select {
		case <-s.updateConfig:
		default:
		}
		s.updateConfig <- cfg
	}
}

// IsRunning はサービスが実行中かどうかを返す
func (s *AccelService) IsRunning() bool {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	return s.running
}

// runAccelLoop はイベント変換のメインループ
func (s *AccelService) runAccelLoop(motionShaper *shaper.Shaper) {
	defer func() {
		// サービス終了時にデバイスをクローズ
		if s.monitor != nil {
			s.monitor.Stop()
		}
		if s.mouse != nil {
			s.mouse.Close()
		}
		if s.pointer != nil {
			s.pointer.Close()
		}
		log.Println("カーソル加速サービスを停止しました")
	}()

	log.Println("カーソル加速を開始しました...")

	for {
		select {
		case <-s.stopChan:
			return
		case newCfg := <-s.updateConfig:
			// プロセッサ自体は不変なので、設定更新時は新しく構築して差し替える
			newShaper, err := BuildShaper(newCfg)
			if err != nil {
				log.Printf("更新された設定が不正です。現在の設定を継続します: %v", err)
				continue
			}
			s.cfg = newCfg
			motionShaper = newShaper
			log.Println("設定を更新しました")
		default:
			ev, err := s.mouse.ReadEvent()
			if err != nil {
				// 非ブロッキング読み取りのためイベントがない間は待つ
				time.Sleep(500 * time.Microsecond)
				continue
			}

			switch ev.Type {
			case event.Syn, event.Key, event.Rel:
				if err := s.pointer.WriteEvent(motionShaper.Process(ev)); err != nil {
					log.Printf("イベントの中継に失敗しました: %v", err)
				}
			default:
				// 仮想ポインターに登録していないイベントは中継しない
			}
		}
	}
}
