package mathx

import (
	"encoding/json"
	"math"
)

// Vec3 is a world-space vector. It encodes to JSON as [x,y,z].
type Vec3 struct {
	X, Y, Z float64
}

func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (a Vec3) Add(b Vec3) Vec3        { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3        { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3   { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Neg() Vec3              { return Vec3{-a.X, -a.Y, -a.Z} }
func (a Vec3) Dot(b Vec3) float64     { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) LenSq() float64         { return a.Dot(a) }
func (a Vec3) Len() float64           { return math.Sqrt(a.LenSq()) }
func (a Vec3) Dist(b Vec3) float64    { return a.Sub(b).Len() }
func (a Vec3) DistSq(b Vec3) float64  { return a.Sub(b).LenSq() }
func (a Vec3) IsZero() bool           { return a.X == 0 && a.Y == 0 && a.Z == 0 }
func (a Vec3) Array() [3]float64      { return [3]float64{a.X, a.Y, a.Z} }
func FromArray(v [3]float64) Vec3     { return Vec3{v[0], v[1], v[2]} }

func (a Vec3) Lerp(b Vec3, t float64) Vec3 {
	return Vec3{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t, a.Z + (b.Z-a.Z)*t}
}

// Normalize returns the unit vector, or the zero vector for zero input.
func (a Vec3) Normalize() Vec3 {
	l := a.Len()
	if l == 0 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

func (a Vec3) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Array())
}

func (a *Vec3) UnmarshalJSON(b []byte) error {
	var arr [3]float64
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	*a = FromArray(arr)
	return nil
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
