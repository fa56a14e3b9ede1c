package entity

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Coord is the type of entity coordinates (x, y, z)
type Coord float32

// Vector3 is type of entity positions, angles, sizes and directions
type Vector3 struct {
	X Coord
	Y Coord
	Z Coord
}

func (p Vector3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

// KeyValueString formats the vector the way keyvalues store it: "x y z"
func (p Vector3) KeyValueString() string {
	return fmt.Sprintf("%f %f %f", p.X, p.Y, p.Z)
}

// ParseVector3 parses a keyvalue vector such as "0 128 -64"
func ParseVector3(s string) (Vector3, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return Vector3{}, errors.Errorf("invalid vector %q", s)
	}
	var v [3]Coord
	for i, f := range fields {
		c, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return Vector3{}, errors.Wrapf(err, "invalid vector %q", s)
		}
		v[i] = Coord(c)
	}
	return Vector3{v[0], v[1], v[2]}, nil
}

// DistanceTo calculates distance between two positions
func (p Vector3) DistanceTo(o Vector3) Coord {
	return p.Sub(o).Length()
}

// Length returns the length of the vector
func (p Vector3) Length() Coord {
	return Coord(math.Sqrt(float64(p.X*p.X + p.Y*p.Y + p.Z*p.Z)))
}

// IsZero tells whether all components are 0
func (p Vector3) IsZero() bool {
	return p.X == 0 && p.Y == 0 && p.Z == 0
}

// Sub calculates Vector3 p - Vector3 o
func (p Vector3) Sub(o Vector3) Vector3 {
	return Vector3{p.X - o.X, p.Y - o.Y, p.Z - o.Z}
}

// Add calculates Vector3 p + Vector3 o
func (p Vector3) Add(o Vector3) Vector3 {
	return Vector3{p.X + o.X, p.Y + o.Y, p.Z + o.Z}
}

// Mul calculates Vector3 p * m
func (p Vector3) Mul(m Coord) Vector3 {
	return Vector3{p.X * m, p.Y * m, p.Z * m}
}

// Dot calculates the dot product of p and o
func (p Vector3) Dot(o Vector3) Coord {
	return p.X*o.X + p.Y*o.Y + p.Z*o.Z
}

// Normalize scales p to length 1, zero vectors are left unchanged
func (p *Vector3) Normalize() {
	d := p.Length()
	if d == 0 {
		return
	}
	p.X /= d
	p.Y /= d
	p.Z /= d
}

// Normalized returns p scaled to length 1
func (p Vector3) Normalized() Vector3 {
	p.Normalize()
	return p
}

// AnglesToForward converts pitch/yaw/roll angles in degrees to a forward direction
func AnglesToForward(angles Vector3) Vector3 {
	pitch := float64(angles.X) * math.Pi / 180
	yaw := float64(angles.Y) * math.Pi / 180
	sp, cp := math.Sincos(pitch)
	sy, cy := math.Sincos(yaw)
	return Vector3{Coord(cp * cy), Coord(cp * sy), Coord(-sp)}
}

// boxesIntersect tells whether two axis aligned boxes overlap, touching faces count
func boxesIntersect(mins1, maxs1, mins2, maxs2 Vector3) bool {
	return mins1.X <= maxs2.X && maxs1.X >= mins2.X &&
		mins1.Y <= maxs2.Y && maxs1.Y >= mins2.Y &&
		mins1.Z <= maxs2.Z && maxs1.Z >= mins2.Z
}
