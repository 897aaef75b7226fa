package curve

import (
	"errors"
	"fmt"
)

// ErrInvalidCurve は不正なカーブ定義を表すエラー
var ErrInvalidCurve = errors.New("不正な加速カーブです")

// Point は加速カーブの制御点（経過時間ミリ秒と速度）を表す
type Point struct {
	TimeMs int32 // 移動開始からの経過時間（ミリ秒）
	Speed  int32 // その時点での速度（ピクセル/秒）
}

// Table は加速カーブの制御点列を保持する構造体
// 構築時に検証され、以降は不変として共有できる
type Table struct {
	points []Point
}

// 制御点列から新しいカーブテーブルを作成する
// 制御点は1つ以上で、経過時間が厳密に増加している必要がある
func New(points []Point) (*Table, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: 制御点がありません", ErrInvalidCurve)
	}
	for i, p := range points {
		if p.TimeMs < 0 {
			return nil, fmt.Errorf("%w: 経過時間が負です [index=%d]", ErrInvalidCurve, i)
		}
		if i > 0 && p.TimeMs <= points[i-1].TimeMs {
			return nil, fmt.Errorf("%w: 経過時間が厳密に増加していません [index=%d]", ErrInvalidCurve, i)
		}
	}
	copied := make([]Point, len(points))
	copy(copied, points)
	return &Table{points: copied}, nil
}

// 設定ファイル形式の平坦な [時間, 速度, 時間, 速度, ...] 列からカーブテーブルを作成する
func FromPairs(flat []int32) (*Table, error) {
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("%w: 制御点の要素数が奇数です [len=%d]", ErrInvalidCurve, len(flat))
	}
	points := make([]Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		points = append(points, Point{TimeMs: flat[i], Speed: flat[i+1]})
	}
	return New(points)
}

// SpeedAt は経過時間に対応する速度（ピクセル/秒）を区分線形補間で求める
// 最初の制御点より前、最後の制御点より後はそれぞれの速度に張り付く
func (t *Table) SpeedAt(elapsedMs int64) int32 {
	first := t.points[0]
	if elapsedMs <= int64(first.TimeMs) {
		return first.Speed
	}

	last := t.points[len(t.points)-1]
	if elapsedMs >= int64(last.TimeMs) {
		return last.Speed
	}

	// 補間対象の区間を探す
	for i := 0; i < len(t.points)-1; i++ {
		p0 := t.points[i]
		p1 := t.points[i+1]
		if elapsedMs < int64(p0.TimeMs) || elapsedMs > int64(p1.TimeMs) {
			continue
		}
		// 線形補間: speed = s0 + (s1 - s0) * (t - t0) / (t1 - t0)
		// 整数演算でゼロ方向に切り捨てる
		timeDelta := int64(p1.TimeMs - p0.TimeMs)
		speedDelta := int64(p1.Speed - p0.Speed)
		elapsedInSegment := elapsedMs - int64(p0.TimeMs)
		return p0.Speed + int32(speedDelta*elapsedInSegment/timeDelta)
	}

	// 制御点列の不変条件によりここには到達しない
	return last.Speed
}

// Points は制御点列のコピーを返す
func (t *Table) Points() []Point {
	copied := make([]Point, len(t.points))
	copy(copied, t.points)
	return copied
}
