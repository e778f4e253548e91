package raster

import (
	"image"
	"image/color"
	"math"

	"mocap-fk/internal/mathutil"
	"mocap-fk/internal/skeleton"
)

var (
	// BoneColor draws the segment from a joint to its parent.
	BoneColor = color.NRGBA{R: 220, G: 40, B: 40, A: 255}
	// JointColor draws the dot at each joint coordinate.
	JointColor = color.NRGBA{R: 40, G: 70, B: 220, A: 255}
)

// Style controls line and dot size at the final output resolution.
type Style struct {
	Background color.NRGBA
	LineWidth  float64
	DotRadius  float64
}

// DefaultStyle is a transparent background with 2 px bones and 3 px dots.
func DefaultStyle() Style {
	return Style{LineWidth: 2, DotRadius: 3}
}

// RenderPose draws the pose as bone segments and joint dots. The image is
// rendered at size*supersample; callers downsample.
func RenderPose(pose *skeleton.Pose, cam Camera, style Style, size, supersample int) *image.NRGBA {
	if supersample < 1 {
		supersample = 1
	}
	renderSize := size * supersample
	fb := NewFrameBuffer(renderSize, renderSize)
	fb.Fill(style.Background)
	if pose == nil || pose.Len() == 0 {
		return fb.ToNRGBA()
	}

	joints := pose.Joints()
	points := make([]mathutil.Vec3, len(joints))
	for i, j := range joints {
		points[i] = j.Coordinate
	}

	margin := 16 * supersample
	proj := cam.Fit(points, renderSize, margin)

	px := make([]float64, len(points))
	py := make([]float64, len(points))
	pz := make([]float64, len(points))
	for i, p := range points {
		px[i], py[i], pz[i] = proj.Project(p)
	}

	ss := float64(supersample)
	for i, j := range joints {
		if j.Parent < 0 {
			continue
		}
		p := j.Parent
		DrawLine(fb, px[p], py[p], pz[p], px[i], py[i], pz[i], style.LineWidth*ss, BoneColor)
	}
	// Dots sit slightly in front so they stay visible over their bones.
	for i := range joints {
		DrawDot(fb, px[i], py[i], pz[i]+1e-6, style.DotRadius*ss, JointColor)
	}

	return fb.ToNRGBA()
}

// DrawLine rasterizes a thick segment with depth interpolated along it.
func DrawLine(fb *FrameBuffer, x0, y0, z0, x1, y1, z1, width float64, c color.NRGBA) {
	dx, dy := x1-x0, y1-y0
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		DrawDot(fb, x0, y0, z0, width/2, c)
		return
	}
	r := width / 2
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		DrawDot(fb, x0+dx*t, y0+dy*t, z0+(z1-z0)*t, r, c)
	}
}

// DrawDot fills a disc of radius r centered on (cx, cy) at constant depth.
func DrawDot(fb *FrameBuffer, cx, cy, z, r float64, c color.NRGBA) {
	if r < 0.5 {
		r = 0.5
	}
	minX := int(math.Floor(cx - r))
	maxX := int(math.Ceil(cx + r))
	minY := int(math.Floor(cy - r))
	maxY := int(math.Ceil(cy + r))
	r2 := r * r
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			ddx := float64(x) + 0.5 - cx
			ddy := float64(y) + 0.5 - cy
			if ddx*ddx+ddy*ddy <= r2 {
				fb.Plot(x, y, z, c)
			}
		}
	}
}
