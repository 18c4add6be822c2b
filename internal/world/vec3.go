package world

import "fmt"

// Vec3 is an integer block coordinate inside a region. It is used directly
// as a map key; equality is structural.
type Vec3 struct {
	X int
	Y int
	Z int
}

func (v Vec3) Add(x, y, z int) Vec3 {
	return Vec3{X: v.X + x, Y: v.Y + y, Z: v.Z + z}
}

func (v Vec3) Above() Vec3 { return Vec3{X: v.X, Y: v.Y + 1, Z: v.Z} }
func (v Vec3) Below() Vec3 { return Vec3{X: v.X, Y: v.Y - 1, Z: v.Z} }

func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}
