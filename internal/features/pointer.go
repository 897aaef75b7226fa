package features

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/char5742/cursor-accel/internal/consts"
	"github.com/char5742/cursor-accel/internal/event"
	"github.com/char5742/cursor-accel/internal/types"
	"github.com/char5742/cursor-accel/internal/utils"
)

// 相対座標入力デバイス（仮想ポインター）を表現するインターフェース
type Pointer interface {
	// イベントを1つ書き込む
	WriteEvent(ev event.Event) error
	// 同期イベントを送出してイベント列を確定する
	Sync() error
	io.Closer
}

type virtualPointer struct {
	name       []byte
	deviceFile *os.File
}

// 新しい仮想ポインターデバイスを作成する
func CreatePointer(path string, name []byte) (Pointer, error) {
	fd, err := createPointer(path, name)
	if err != nil {
		return nil, err
	}

	return &virtualPointer{name: name, deviceFile: fd}, nil
}

func (vp *virtualPointer) WriteEvent(ev event.Event) error {
	return writeEvents(vp.deviceFile, []event.Event{ev})
}

func (vp *virtualPointer) Sync() error {
	events := []event.Event{
		{Type: event.Syn, Code: event.SynReport, Value: 0},
	}
	return writeEvents(vp.deviceFile, events)
}

func (vp *virtualPointer) Close() error {
	_ = releaseDevice(vp.deviceFile)
	return vp.deviceFile.Close()
}

func createPointer(path string, name []byte) (*os.File, error) {
	deviceFile, err := createDeviceFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not create relative axis input device: %v", err)
	}

	// キー入力イベント(EV_KEY)を登録する
	// これによりマウスボタンの中継が可能になる
	err = registerDevice(deviceFile, uintptr(event.Key))
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("キー入力イベント(EV_KEY)の登録に失敗しました: %v", err)
	}

	// 中継するマウスボタンを登録する
	for _, ev := range []int{
		event.MouseBtnLeft,   // マウス左ボタン
		event.MouseBtnRight,  // マウス右ボタン
		event.MouseBtnMiddle, // マウス中ボタン
	} {
		if err = utils.IOCtl(deviceFile, consts.SetKeyBit, uintptr(ev)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("キー入力種別の登録に失敗しました %v: %v", ev, err)
		}
	}

	// 相対座標入力イベント(EV_REL)を登録する
	// これによりカーソル移動の送出が可能になる
	err = registerDevice(deviceFile, uintptr(event.Rel))
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("相対座標入力イベント(EV_REL)の登録に失敗しました: %v", err)
	}

	// ポインターデバイスプロパティを設定する
	if err := utils.IOCtl(deviceFile, consts.SetPropBit, uintptr(consts.PropPointer)); err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("ポインターデバイスプロパティの設定に失敗しました: %v", err)
	}

	// X軸・Y軸・ホイールの相対移動を登録する
	for _, ev := range []int{event.RelX, event.RelY, event.RelWheel} {
		if err = utils.IOCtl(deviceFile, consts.SetRelBit, uintptr(ev)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("座標軸の登録に失敗しました %v: %v", ev, err)
		}
	}

	userDev := types.UserDev{
		Name: toUinputName(name),
		ID: types.InputID{
			Bustype: consts.BusUsb,
			Vendor:  0x4711,
			Product: 0x0818,
			Version: 1,
		},
	}

	fd, err := createUsbDevice(deviceFile, userDev)
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("USBデバイスの作成に失敗しました: %v", err)
	}

	return fd, nil
}

// デバイスファイルを作成する
func createDeviceFile(path string) (fd *os.File, err error) {
	deviceFile, err := os.OpenFile(path, syscall.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, errors.New("デバイスファイルを開くのに失敗しました")
	}
	return deviceFile, err
}

// デバイスを解放する
func releaseDevice(deviceFile *os.File) error {
	return utils.IOCtl(deviceFile, consts.DevDestroy, uintptr(0))
}

// デバイスを登録する
func registerDevice(deviceFile *os.File, evType uintptr) error {
	err := utils.IOCtl(deviceFile, consts.SetEvBit, evType)
	if err != nil {
		defer deviceFile.Close()
		err = releaseDevice(deviceFile)
		if err != nil {
			return fmt.Errorf("デバイスを解放するのに失敗しました: %v", err)
		}
		return fmt.Errorf("無効なファイルハンドルがutils.IOCtlから返されました: %v", err)
	}
	return nil
}

// USBデバイスを作成する
func createUsbDevice(deviceFile *os.File, dev types.UserDev) (fd *os.File, err error) {
	buf := new(bytes.Buffer)
	err = binary.Write(buf, binary.LittleEndian, dev)
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("ユーザーデバイスバッファの書き込みに失敗しました: %v", err)
	}
	_, err = deviceFile.Write(buf.Bytes())
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("デバイス構造体をデバイスファイルに書き込むのに失敗しました: %v", err)
	}

	err = utils.IOCtl(deviceFile, consts.DevCreate, uintptr(0))
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("デバイスの作成に失敗しました: %v", err)
	}

	return deviceFile, err
}

// イベントを書き込む
func writeEvents(deviceFile *os.File, events []event.Event) error {
	for _, ev := range events {
		buf := new(bytes.Buffer)
		if err := binary.Write(buf, binary.LittleEndian, ev); err != nil {
			return fmt.Errorf("イベントをバッファに書き込むのに失敗しました: %v", err)
		}
		if _, err := deviceFile.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("イベントの書き込みに失敗しました: %v", err)
		}
	}
	return nil
}

// 名前をuinput用の固定長配列に変換する
func toUinputName(name []byte) (uinputName [consts.MaxNameSize]byte) {
	var fixedSizeName [consts.MaxNameSize]byte
	copy(fixedSizeName[:], name)
	return fixedSizeName
}
