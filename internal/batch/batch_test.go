package batch

import (
	"bytes"
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/webp"

	"mocap-fk/internal/mathutil"
	"mocap-fk/internal/raster"
	"mocap-fk/internal/skeleton"
)

func legSkeleton(t *testing.T) *skeleton.Skeleton {
	t.Helper()
	s, err := skeleton.Build([]skeleton.BoneSpec{
		{Name: "root"},
		{Name: "lfemur", Parent: "root", Direction: mathutil.Vec3{0, -1, 0}, Length: 5, DOF: []string{"rz"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func testConfig(dir, format string) Config {
	return Config{
		OutputDir:   dir,
		RenderSize:  32,
		Supersample: 2,
		ImageFormat: format,
		Workers:     3,
		Camera:      raster.Camera{Azimuth: 30, Elevation: 15},
		Style:       raster.DefaultStyle(),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func legFrames(s *skeleton.Skeleton, n int) []skeleton.Frame {
	frames := make([]skeleton.Frame, n)
	for i := range frames {
		f := s.ZeroFrame()
		f["lfemur"] = []float64{float64(i * 10)}
		frames[i] = f
	}
	return frames
}

func TestRunWebP(t *testing.T) {
	s := legSkeleton(t)
	dir := t.TempDir()
	frames := legFrames(s, 7)
	jobs := ASFJobs(s, []int{1, 2, 3, 4, 5, 6, 7}, frames, 3, skeleton.Options{})
	if len(jobs) != 3 {
		t.Fatalf("have %d jobs, want 3", len(jobs))
	}

	results := Run(testConfig(dir, "webp"), jobs)
	wantFrames := []int{1, 4, 7}
	for i, r := range results {
		if !r.Success {
			t.Fatalf("frame %d: %s", r.Frame, r.Error)
		}
		if r.Frame != wantFrames[i] {
			t.Fatalf("result %d is frame %d, want %d", i, r.Frame, wantFrames[i])
		}
		if len(r.Joints) != 2 || r.Joints[1].Name != "lfemur" {
			t.Fatalf("joints %+v", r.Joints)
		}

		f, err := os.Open(filepath.Join(dir, r.Image))
		if err != nil {
			t.Fatal(err)
		}
		img, err := webp.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", r.Image, err)
		}
		if b := img.Bounds(); b != image.Rect(0, 0, 32, 32) {
			t.Fatalf("%s bounds %v", r.Image, b)
		}
	}
	if results[0].Image != "frame_00001.webp" {
		t.Fatalf("image name %q", results[0].Image)
	}
}

func TestRunTGAAndFailures(t *testing.T) {
	s := legSkeleton(t)
	dir := t.TempDir()
	frames := legFrames(s, 2)
	delete(frames[1], "lfemur")

	results := Run(testConfig(dir, "tga"), ASFJobs(s, nil, frames, 1, skeleton.Options{}))
	if !results[0].Success || results[0].Frame != 1 {
		t.Fatalf("first result %+v", results[0])
	}
	if results[1].Success || results[1].Error == "" {
		t.Fatalf("missing channel not reported: %+v", results[1])
	}

	data, err := os.ReadFile(filepath.Join(dir, results[0].Image))
	if err != nil {
		t.Fatal(err)
	}
	img, err := tga.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Fatalf("bounds %v", b)
	}

	path := filepath.Join(dir, "manifest.json")
	if err := WriteManifest(path, Manifest{Skeleton: "leg.asf", RootTranslation: "discard"}, results); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if len(m.Frames) != 1 || len(m.Failed) != 1 || m.Failed[0].Frame != 2 {
		t.Fatalf("manifest %+v", m)
	}
	want := [3]float64{0, -5, 0}
	if have := m.Frames[0].Joints[1].Coordinate; !mathutil.Vec3(have).ApproxEqual(mathutil.Vec3(want), 1e-9) {
		t.Fatalf("lfemur coordinate\nhave %v\nwant %v", have, want)
	}
}

func TestSMPLJobs(t *testing.T) {
	s, err := skeleton.BuildSMPL([]skeleton.JointSpec{
		{Index: 0, Parent: -1},
		{Index: 1, Parent: 0, Rest: mathutil.Vec3{0, -5, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	rots := [][]mathutil.Mat3{skeleton.IdentityRotations(2), skeleton.IdentityRotations(2)}
	root := mathutil.Vec3{1, 2, 3}
	jobs := SMPLJobs(s, rots, []*mathutil.Vec3{nil, &root}, 1, skeleton.SMPLOptions{})

	results := Run(testConfig(t.TempDir(), "webp"), jobs)
	if !results[0].Success || !results[1].Success {
		t.Fatalf("results %+v", results)
	}
	if have := results[1].Joints[1].Coordinate; have != [3]float64{1, -3, 3} {
		t.Fatalf("translated joint %v", have)
	}
	if results[0].Frame != 0 || results[1].Frame != 1 {
		t.Fatalf("frame numbers %d %d", results[0].Frame, results[1].Frame)
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	if err := encode(io.Discard, image.NewNRGBA(image.Rect(0, 0, 1, 1)), "bmp"); err == nil {
		t.Fatal("bmp accepted")
	}
}
