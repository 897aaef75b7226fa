package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidTables(t *testing.T) {
	cases := []struct {
		name   string
		points []Point
	}{
		{"制御点なし", nil},
		{"経過時間が負", []Point{{TimeMs: -1, Speed: 50}}},
		{"経過時間が減少", []Point{{TimeMs: 100, Speed: 50}, {TimeMs: 50, Speed: 100}}},
		{"経過時間が重複", []Point{{TimeMs: 100, Speed: 50}, {TimeMs: 100, Speed: 100}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.points)
			require.ErrorIs(t, err, ErrInvalidCurve)
		})
	}
}

func TestFromPairs(t *testing.T) {
	table, err := FromPairs([]int32{0, 50, 300, 200, 1000, 800})
	require.NoError(t, err)
	assert.Equal(t, []Point{
		{TimeMs: 0, Speed: 50},
		{TimeMs: 300, Speed: 200},
		{TimeMs: 1000, Speed: 800},
	}, table.Points())

	// 要素数が奇数の場合は不正
	_, err = FromPairs([]int32{0, 50, 300})
	require.ErrorIs(t, err, ErrInvalidCurve)
}

func TestSpeedAtClampsOutsideCurve(t *testing.T) {
	table, err := FromPairs([]int32{100, 50, 300, 200})
	require.NoError(t, err)

	// 最初の制御点より前は最初の速度に張り付く
	assert.Equal(t, int32(50), table.SpeedAt(0))
	assert.Equal(t, int32(50), table.SpeedAt(99))

	// 最後の制御点より後は最後の速度に張り付く
	assert.Equal(t, int32(200), table.SpeedAt(300))
	assert.Equal(t, int32(200), table.SpeedAt(100000))
}

func TestSpeedAtInterpolatesBetweenPoints(t *testing.T) {
	table, err := FromPairs([]int32{0, 50, 300, 200, 1000, 800})
	require.NoError(t, err)

	// 制御点上では制御点の速度そのもの
	assert.Equal(t, int32(50), table.SpeedAt(0))
	assert.Equal(t, int32(200), table.SpeedAt(300))
	assert.Equal(t, int32(800), table.SpeedAt(1000))

	// 区間内は線形補間: 50 + (200-50)*150/300 = 125
	assert.Equal(t, int32(125), table.SpeedAt(150))

	// 2つ目の区間: 200 + (800-200)*350/700 = 500
	assert.Equal(t, int32(500), table.SpeedAt(650))
}

func TestSpeedAtSinglePoint(t *testing.T) {
	table, err := New([]Point{{TimeMs: 100, Speed: 700}})
	require.NoError(t, err)

	// 単一の制御点は経過時間に関係なくその速度を返す
	assert.Equal(t, int32(700), table.SpeedAt(0))
	assert.Equal(t, int32(700), table.SpeedAt(100))
	assert.Equal(t, int32(700), table.SpeedAt(5000))
}

func TestSpeedAtMonotonicOnMonotonicCurve(t *testing.T) {
	table, err := FromPairs([]int32{0, 50, 300, 200, 1000, 800})
	require.NoError(t, err)

	prev := table.SpeedAt(0)
	for elapsed := int64(1); elapsed <= 1100; elapsed++ {
		speed := table.SpeedAt(elapsed)
		require.GreaterOrEqual(t, speed, prev, "elapsed=%d", elapsed)
		prev = speed
	}
}
