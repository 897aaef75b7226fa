package features

import (
	"encoding/binary"
	"fmt"
	"os"
	"syscall"

	"github.com/char5742/cursor-accel/internal/consts"
	"github.com/char5742/cursor-accel/internal/event"
	"github.com/char5742/cursor-accel/internal/utils"
)

// 物理マウス入力を扱うインターフェース
type Mouse interface {
	// 次の入力イベントを1つ読み取る
	ReadEvent() (event.Event, error)
	// マウス操作を専有する
	Grab() error
	// マウス操作の専有を解除する
	Release() error
	Close() error
}

type physicalMouse struct {
	file    *os.File
	grabbed bool
}

// 指定されたパスでマウスを開く
func CreateMouse(path string) (Mouse, error) {
	f, err := os.OpenFile(path, syscall.O_RDWR|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, fmt.Errorf("デバイスファイルを開くのに失敗しました: %w", err)
	}
	return &physicalMouse{file: f}, nil
}

func (m *physicalMouse) ReadEvent() (event.Event, error) {
	var e event.Event
	size := binary.Size(e)
	buf := make([]byte, size)

	n, err := m.file.Read(buf)
	if err != nil {
		return e, err
	}
	if n < size {
		return e, fmt.Errorf("不完全なイベントを読み取りました [bytes=%d]", n)
	}

	e.Time.Sec = int64(binary.LittleEndian.Uint64(buf[0:8]))
	e.Time.Usec = int64(binary.LittleEndian.Uint64(buf[8:16]))
	e.Type = binary.LittleEndian.Uint16(buf[16:18])
	e.Code = binary.LittleEndian.Uint16(buf[18:20])
	e.Value = int32(binary.LittleEndian.Uint32(buf[20:24]))

	return e, nil
}

func (m *physicalMouse) Grab() error {
	if m.grabbed {
		return nil
	}
	if err := utils.IOCtl(m.file, consts.EVIOCGRAB, 1); err != nil {
		return fmt.Errorf("failed to grab device: %w", err)
	}
	m.grabbed = true
	return nil
}

func (m *physicalMouse) Release() error {
	if !m.grabbed {
		return nil
	}
	if err := utils.IOCtl(m.file, consts.EVIOCGRAB, 0); err != nil {
		return fmt.Errorf("failed to release device: %w", err)
	}
	m.grabbed = false
	return nil
}

func (m *physicalMouse) Close() error {
	_ = m.Release()
	return m.file.Close()
}
