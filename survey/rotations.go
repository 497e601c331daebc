package survey

// orientation maps local coordinates into one of the 24 axis-aligned frames:
// rotated[i] = signs[i] * coords[axes[i]]. The 24 entries are exactly the
// rotation group of the cube (signed axis permutations with determinant +1).
type orientation struct {
	signs [3]int64
	axes  [3]int
}

// NumOrientations is the size of the fixed orientation table.
const NumOrientations = 24

// orientations is a pure data constant, never recomputed at runtime.
var orientations = [NumOrientations]orientation{
	{signs: [3]int64{1, 1, 1}, axes: [3]int{0, 1, 2}},
	{signs: [3]int64{1, -1, 1}, axes: [3]int{1, 0, 2}},
	{signs: [3]int64{-1, -1, 1}, axes: [3]int{0, 1, 2}},
	{signs: [3]int64{-1, 1, 1}, axes: [3]int{1, 0, 2}},
	{signs: [3]int64{1, 1, -1}, axes: [3]int{2, 1, 0}},
	{signs: [3]int64{1, -1, -1}, axes: [3]int{1, 2, 0}},
	{signs: [3]int64{-1, -1, -1}, axes: [3]int{2, 1, 0}},
	{signs: [3]int64{-1, 1, -1}, axes: [3]int{1, 2, 0}},
	{signs: [3]int64{1, -1, -1}, axes: [3]int{2, 0, 1}},
	{signs: [3]int64{-1, -1, -1}, axes: [3]int{0, 2, 1}},
	{signs: [3]int64{-1, 1, -1}, axes: [3]int{2, 0, 1}},
	{signs: [3]int64{1, 1, -1}, axes: [3]int{0, 2, 1}},
	{signs: [3]int64{1, -1, 1}, axes: [3]int{2, 1, 0}},
	{signs: [3]int64{-1, -1, 1}, axes: [3]int{1, 2, 0}},
	{signs: [3]int64{-1, 1, 1}, axes: [3]int{2, 1, 0}},
	{signs: [3]int64{1, 1, 1}, axes: [3]int{1, 2, 0}},
	{signs: [3]int64{1, 1, 1}, axes: [3]int{2, 0, 1}},
	{signs: [3]int64{1, -1, 1}, axes: [3]int{0, 2, 1}},
	{signs: [3]int64{-1, -1, 1}, axes: [3]int{2, 0, 1}},
	{signs: [3]int64{-1, 1, 1}, axes: [3]int{0, 2, 1}},
	{signs: [3]int64{-1, 1, -1}, axes: [3]int{0, 1, 2}},
	{signs: [3]int64{1, 1, -1}, axes: [3]int{1, 0, 2}},
	{signs: [3]int64{1, -1, -1}, axes: [3]int{0, 1, 2}},
	{signs: [3]int64{-1, -1, -1}, axes: [3]int{1, 0, 2}},
}

// Oriented returns the landmark rotated by the orientation at the given table
// index. The identity orientation is index 0.
func (l Landmark) Oriented(idx int) Landmark {
	o := orientations[idx]
	coords := [3]int64{l.X, l.Y, l.Z}
	return Landmark{
		X: o.signs[0] * coords[o.axes[0]],
		Y: o.signs[1] * coords[o.axes[1]],
		Z: o.signs[2] * coords[o.axes[2]],
	}
}
