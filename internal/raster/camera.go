package raster

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"mocap-fk/internal/mathutil"
)

// Camera orbits the figure. Azimuth turns about +Y, elevation tilts
// toward +Y; both are degrees. Zero looks down -Z.
type Camera struct {
	Azimuth   float64
	Elevation float64
}

// Projection maps world points to pixel coordinates plus a depth where
// larger is nearer.
type Projection struct {
	mvp  mgl64.Mat4
	size float64
}

// Fit builds an orthographic projection framing every point in a square
// image of the given size, leaving margin pixels on each side.
func (c Camera) Fit(points []mathutil.Vec3, size, margin int) Projection {
	az := mgl64.DegToRad(c.Azimuth)
	el := mgl64.DegToRad(c.Elevation)
	dir := mgl64.Vec3{
		math.Cos(el) * math.Sin(az),
		math.Sin(el),
		math.Cos(el) * math.Cos(az),
	}

	center := mgl64.Vec3{}
	for _, p := range points {
		center = center.Add(toMgl(p))
	}
	if len(points) > 0 {
		center = center.Mul(1 / float64(len(points)))
	}

	up := mgl64.Vec3{0, 1, 0}
	if math.Abs(dir.Dot(up)) > 0.999 {
		up = mgl64.Vec3{0, 0, -1}
	}
	view := mgl64.LookAtV(center.Add(dir), center, up)

	minV := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	maxV := mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, p := range points {
		v := view.Mul4x1(toMgl(p).Vec4(1)).Vec3()
		for k := 0; k < 3; k++ {
			minV[k] = math.Min(minV[k], v[k])
			maxV[k] = math.Max(maxV[k], v[k])
		}
	}
	if len(points) == 0 {
		minV, maxV = mgl64.Vec3{}, mgl64.Vec3{}
	}

	span := math.Max(maxV[0]-minV[0], maxV[1]-minV[1])
	if span < 0.001 {
		span = 0.001
	}
	inner := float64(size - 2*margin)
	if inner < 1 {
		inner = 1
	}
	half := span / 2 * float64(size) / inner
	cx := (minV[0] + maxV[0]) / 2
	cy := (minV[1] + maxV[1]) / 2

	proj := mgl64.Ortho(cx-half, cx+half, cy-half, cy+half, -maxV[2]-1, -minV[2]+1)
	return Projection{mvp: proj.Mul4(view), size: float64(size)}
}

// Project returns pixel x, y and depth for a world point.
func (p Projection) Project(v mathutil.Vec3) (float64, float64, float64) {
	clip := p.mvp.Mul4x1(toMgl(v).Vec4(1))
	ndc := clip.Vec3().Mul(1 / clip.W())
	x := (ndc.X() + 1) / 2 * p.size
	y := (1 - ndc.Y()) / 2 * p.size
	return x, y, -ndc.Z()
}

func toMgl(v mathutil.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], v[2]}
}
