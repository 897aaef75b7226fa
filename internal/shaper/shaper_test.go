package shaper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/cursor-accel/internal/curve"
	"github.com/char5742/cursor-accel/internal/event"
)

// fakeClock はテスト用の手動クロック
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func testCurve(t *testing.T, flat ...int32) *curve.Table {
	t.Helper()
	table, err := curve.FromPairs(flat)
	require.NoError(t, err)
	return table
}

func newTestShaper(t *testing.T, cfg Config) (*Shaper, *fakeClock) {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	clock := &fakeClock{current: time.Unix(1000, 0)}
	s.now = clock.Now
	return s, clock
}

func relEvent(code uint16, value int32) event.Event {
	return event.Event{Type: event.Rel, Code: code, Value: value}
}

func defaultConfig(t *testing.T) Config {
	return Config{
		EventType:       event.Rel,
		Codes:           []uint16{event.RelX, event.RelY},
		Curve:           testCurve(t, 0, 50, 300, 200, 1000, 800),
		TriggerPeriodMs: 16,
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	table := testCurve(t, 0, 50, 300, 200)

	cases := []struct {
		name string
		cfg  Config
	}{
		{"コードなし", Config{EventType: event.Rel, Curve: table, TriggerPeriodMs: 16}},
		{"カーブなし", Config{EventType: event.Rel, Codes: []uint16{event.RelX}, TriggerPeriodMs: 16}},
		{"周期ゼロ", Config{EventType: event.Rel, Codes: []uint16{event.RelX}, Curve: table}},
		{"周期が負", Config{EventType: event.Rel, Codes: []uint16{event.RelX}, Curve: table, TriggerPeriodMs: -5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestProcessPassesThroughUnmatchedEvents(t *testing.T) {
	s, _ := newTestShaper(t, defaultConfig(t))

	// タイプが異なるイベントはそのまま通過
	keyEvent := event.Event{Type: event.Key, Code: event.MouseBtnLeft, Value: 1}
	assert.Equal(t, keyEvent, s.Process(keyEvent))

	// コードが対象外のイベントもそのまま通過
	wheelEvent := relEvent(event.RelWheel, 3)
	assert.Equal(t, wheelEvent, s.Process(wheelEvent))
}

func TestProcessStopEventPassesThrough(t *testing.T) {
	s, _ := newTestShaper(t, defaultConfig(t))

	stopEvent := relEvent(event.RelX, 0)
	assert.Equal(t, stopEvent, s.Process(stopEvent))
}

func TestFirstEventUsesCurveInitialSpeed(t *testing.T) {
	s, _ := newTestShaper(t, defaultConfig(t))

	// 速度50px/s・周期16msでは0.8pxだが、最低1pxは保証される
	out := s.Process(relEvent(event.RelX, 5))
	assert.Equal(t, int32(1), out.Value)

	// 負方向でも大きさは同じ
	out = s.Process(relEvent(event.RelY, -5))
	assert.Equal(t, int32(-1), out.Value)
}

func TestSpeedRampsWithElapsedTime(t *testing.T) {
	s, clock := newTestShaper(t, defaultConfig(t))

	s.Process(relEvent(event.RelX, 5))
	clock.Advance(400 * time.Millisecond)

	// 経過400ms: 速度 = 200 + 600*100/700 = 285 → 285*16/1000 = 4px
	out := s.Process(relEvent(event.RelX, 5))
	assert.Equal(t, int32(4), out.Value)
}

func TestStopResetsTiming(t *testing.T) {
	s, clock := newTestShaper(t, defaultConfig(t))

	s.Process(relEvent(event.RelX, 5))
	clock.Advance(400 * time.Millisecond)
	s.Process(relEvent(event.RelX, 5))

	// 値0で停止し、次の移動はカーブの先頭から始まる
	s.Process(relEvent(event.RelX, 0))
	clock.Advance(100 * time.Millisecond)
	out := s.Process(relEvent(event.RelX, 5))
	assert.Equal(t, int32(1), out.Value)
}

func TestDirectionReversalResetsTiming(t *testing.T) {
	s, clock := newTestShaper(t, defaultConfig(t))

	s.Process(relEvent(event.RelX, 5))
	clock.Advance(400 * time.Millisecond)
	s.Process(relEvent(event.RelX, 5))
	clock.Advance(16 * time.Millisecond)

	// 反転イベント自体が停止と再開を兼ね、カーブの先頭速度で処理される
	out := s.Process(relEvent(event.RelX, -5))
	assert.Equal(t, int32(-1), out.Value)
}

func TestAxesHaveIndependentClocks(t *testing.T) {
	s, clock := newTestShaper(t, defaultConfig(t))

	s.Process(relEvent(event.RelX, 5))
	clock.Advance(400 * time.Millisecond)

	// X軸は400ms分加速済み、Y軸はここから新規に加速を始める
	outX := s.Process(relEvent(event.RelX, 5))
	outY := s.Process(relEvent(event.RelY, 5))
	assert.Equal(t, int32(4), outX.Value)
	assert.Equal(t, int32(1), outY.Value)
}

func TestMinimumMotionGuarantee(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Curve = testCurve(t, 0, 10) // 常に10px/s → 周期あたり0.16px
	s, clock := newTestShaper(t, cfg)

	for i := 0; i < 20; i++ {
		out := s.Process(relEvent(event.RelX, 3))
		require.Equal(t, int32(1), out.Value)
		clock.Advance(16 * time.Millisecond)
	}
}

func TestRemainderAccumulation(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Curve = testCurve(t, 0, 150) // 一定150px/s → 周期あたり2.4px
	cfg.TrackRemainders = true
	s, clock := newTestShaper(t, cfg)

	const n = 10
	var sum int32
	for i := 0; i < n; i++ {
		out := s.Process(relEvent(event.RelX, 5))
		require.Contains(t, []int32{2, 3}, out.Value)
		sum += out.Value
		clock.Advance(16 * time.Millisecond)
	}

	// 10イベントの合計は 2.4*10 = 24px に±1px以内で一致する（ドリフトしない）
	assert.InDelta(t, 24.0, float64(sum), 1.0)
}

func TestRemainderClearedOnStopAndReversal(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Curve = testCurve(t, 0, 150)
	cfg.TrackRemainders = true
	s, clock := newTestShaper(t, cfg)

	// 1イベント目で剰余0.4pxが残る
	out := s.Process(relEvent(event.RelX, 5))
	require.Equal(t, int32(2), out.Value)
	clock.Advance(16 * time.Millisecond)

	// 反転で剰余が捨てられ、再び2.4px→2pxから始まる
	out = s.Process(relEvent(event.RelX, -5))
	assert.Equal(t, int32(-2), out.Value)
	clock.Advance(16 * time.Millisecond)

	// 停止でも剰余が捨てられる
	s.Process(relEvent(event.RelX, 0))
	out = s.Process(relEvent(event.RelX, 5))
	assert.Equal(t, int32(2), out.Value)
}

func TestAccelerationRampEndToEnd(t *testing.T) {
	s, clock := newTestShaper(t, defaultConfig(t))

	// 16ms周期で0msから288msまで一定の正値を入力する
	var deltas []int32
	for i := 0; i < 19; i++ {
		out := s.Process(relEvent(event.RelX, 5))
		deltas = append(deltas, out.Value)
		clock.Advance(16 * time.Millisecond)
	}

	// 先頭は速度50px/s相当（0.8px→1pxに切り上げ）
	assert.Equal(t, int32(1), deltas[0])

	// 単調非減少に加速する
	for i := 1; i < len(deltas); i++ {
		require.GreaterOrEqual(t, deltas[i], deltas[i-1], "i=%d", i)
	}

	// 300ms時点では速度200px/s相当（3.2px→3px）
	clock.Advance(-4 * time.Millisecond)
	assert.Equal(t, int32(3), s.Process(relEvent(event.RelX, 5)).Value)
}

func TestSharedClockMode(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.SharedClock = true
	s, clock := newTestShaper(t, cfg)

	s.Process(relEvent(event.RelX, 5))
	clock.Advance(400 * time.Millisecond)

	// クロック共有モードではY軸もX軸の開始時刻から経過時間を計算する
	outY := s.Process(relEvent(event.RelY, 5))
	assert.Equal(t, int32(4), outY.Value)

	// 片方の軸が止まっただけではクロックはリセットされない
	s.Process(relEvent(event.RelX, 0))
	clock.Advance(16 * time.Millisecond)
	outX := s.Process(relEvent(event.RelX, 5))
	assert.Equal(t, int32(4), outX.Value)

	// 両軸とも停止するとリセットされる
	s.Process(relEvent(event.RelX, 0))
	s.Process(relEvent(event.RelY, 0))
	out := s.Process(relEvent(event.RelX, 5))
	assert.Equal(t, int32(1), out.Value)
}
