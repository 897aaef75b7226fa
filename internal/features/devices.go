package features

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type Device struct {
	Name string
	Path string
	Type DeviceType
}

// デバイスタイプを表す列挙型
type DeviceType int

const (
	DeviceTypeKeyboard DeviceType = iota
	DeviceTypeMouse
)

// DeviceEventType はデバイスイベントの種類を表す
type DeviceEventType int

const (
	DeviceAdded DeviceEventType = iota
	DeviceRemoved
)

// DeviceEvent はデバイスの変更イベントを表す
type DeviceEvent struct {
	Type   DeviceEventType
	Device *Device
	Path   string
}

// DeviceCallback はデバイスイベント発生時に呼び出されるコールバック関数の型
type DeviceCallback func(event DeviceEvent)

// ScanDevices は現在接続されている入力デバイスの一覧を返す
func ScanDevices() ([]Device, error) {
	entries, err := os.ReadDir("/dev/input/by-id")
	if err != nil {
		return nil, err
	}
	var devices []Device
	for _, entry := range entries {
		// eventが含まれない場合はスキップ
		if !strings.Contains(entry.Name(), "event") {
			continue
		}
		fullPath := "/dev/input/by-id/" + entry.Name()
		realPath, err := os.Readlink(fullPath)
		if err != nil {
			continue
		}

		// 絶対パスを構築
		absPath := ""
		if strings.HasPrefix(realPath, "/") {
			absPath = realPath
		} else {
			absPath = "/dev/input/" + filepath.Base(realPath)
		}

		if strings.Contains(entry.Name(), "kbd") {
			devices = append(devices, Device{Name: entry.Name(), Path: absPath, Type: DeviceTypeKeyboard})
		}
		if strings.Contains(entry.Name(), "mouse") {
			devices = append(devices, Device{Name: entry.Name(), Path: absPath, Type: DeviceTypeMouse})
		}
	}

	return devices, nil
}

// DeviceMonitor はデバイスの接続状態を監視する構造体
type DeviceMonitor struct {
	watcher   *fsnotify.Watcher
	callbacks []DeviceCallback
	devices   map[string]*Device // パスをキーにしたデバイスマップ
	mutex     sync.RWMutex
	stopChan  chan struct{}
	isRunning bool
}

// NewDeviceMonitor は新しいDeviceMonitorを作成する
func NewDeviceMonitor() (*DeviceMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &DeviceMonitor{
		watcher:   watcher,
		callbacks: make([]DeviceCallback, 0),
		devices:   make(map[string]*Device),
		stopChan:  make(chan struct{}),
	}, nil
}

// Start はデバイスの監視を開始する
func (dm *DeviceMonitor) Start() error {
	if dm.isRunning {
		return nil // すでに実行中
	}

	log.Println("デバイスモニターを開始します")
	dm.isRunning = true

	// 監視対象のディレクトリを追加
	dirs := []string{
		"/dev/input",
		"/dev/input/by-id",
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			if err := dm.watcher.Add(dir); err != nil {
				log.Printf("ディレクトリの監視に失敗しました: %s - %v", dir, err)
			}
		}
	}

	// 初期デバイス一覧を取得
	devices, err := ScanDevices()
	if err != nil {
		log.Printf("初期デバイス一覧の取得に失敗しました: %v", err)
	} else {
		dm.updateDeviceList(devices)
	}

	// イベント監視ゴルーチンを起動
	go dm.watchEvents()

	return nil
}

// Stop はデバイスの監視を停止する
func (dm *DeviceMonitor) Stop() {
	if !dm.isRunning {
		return
	}

	log.Println("デバイスモニターを停止します")
	close(dm.stopChan)
	dm.watcher.Close()
	dm.isRunning = false
}

// RegisterCallback はデバイスイベントのコールバック関数を登録する
func (dm *DeviceMonitor) RegisterCallback(callback DeviceCallback) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.callbacks = append(dm.callbacks, callback)
}

// Rescan はデバイス一覧を強制的に再スキャンする
func (dm *DeviceMonitor) Rescan() {
	devices, err := ScanDevices()
	if err != nil {
		log.Printf("デバイス再スキャンに失敗しました: %v", err)
		return
	}

	dm.updateDeviceList(devices)
}

// watchEvents はfsnotifyのイベントを監視する
// 短時間に連続するイベントはまとめて1回の再スキャンに変換する
func (dm *DeviceMonitor) watchEvents() {
	eventDebounceTime := 500 * time.Millisecond
	eventTimer := time.NewTimer(eventDebounceTime)
	eventTimer.Stop() // 初期状態では停止
	pendingRescan := false

	for {
		select {
		case <-dm.stopChan:
			return

		case <-eventTimer.C:
			if pendingRescan {
				pendingRescan = false
				dm.Rescan()
			}

		case ev, ok := <-dm.watcher.Events:
			if !ok {
				return
			}

			if !strings.Contains(ev.Name, "/dev/input") {
				continue
			}

			if ev.Op&(fsnotify.Create|fsnotify.Remove) != 0 {
				// タイマーをリセットして複数のイベントをバッチ処理
				if !pendingRescan {
					pendingRescan = true
					eventTimer.Reset(eventDebounceTime)
				}
			}

		case err, ok := <-dm.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ファイルシステム監視エラー: %v", err)
		}
	}
}

// updateDeviceList は現在のデバイス一覧を更新し、変更があれば通知する
func (dm *DeviceMonitor) updateDeviceList(newDevices []Device) {
	dm.mutex.Lock()

	// 消えたデバイスの検出用に現在のパス集合を記録
	removedPaths := make(map[string]bool)
	for path := range dm.devices {
		removedPaths[path] = true
	}

	var notifications []DeviceEvent
	for i := range newDevices {
		device := &newDevices[i]
		delete(removedPaths, device.Path)

		if _, exists := dm.devices[device.Path]; !exists {
			dm.devices[device.Path] = device
			log.Printf("新しいデバイスを追加: %s (%s)", device.Name, device.Path)
			notifications = append(notifications, DeviceEvent{
				Type:   DeviceAdded,
				Device: device,
				Path:   device.Path,
			})
		}
	}

	for path := range removedPaths {
		device := dm.devices[path]
		log.Printf("デバイスを削除: %s (%s)", device.Name, path)
		notifications = append(notifications, DeviceEvent{
			Type:   DeviceRemoved,
			Device: device,
			Path:   path,
		})
		delete(dm.devices, path)
	}

	callbacks := append([]DeviceCallback(nil), dm.callbacks...)
	dm.mutex.Unlock()

	// ロックを解放した状態でコールバックを呼び出す
	for _, callback := range callbacks {
		for _, notification := range notifications {
			callback(notification)
		}
	}
}

// GetConnectedDevices は現在接続されているデバイスのスナップショットを返す
func (dm *DeviceMonitor) GetConnectedDevices() []Device {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	devices := make([]Device, 0, len(dm.devices))
	for _, device := range dm.devices {
		devices = append(devices, *device)
	}

	return devices
}
