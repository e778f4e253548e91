package batch

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"

	"mocap-fk/internal/logging"
	"mocap-fk/internal/mathutil"
	"mocap-fk/internal/postprocess"
	"mocap-fk/internal/raster"
	"mocap-fk/internal/skeleton"
)

// Config holds all shared settings for a batch run.
type Config struct {
	OutputDir   string
	RenderSize  int
	Supersample int
	ImageFormat string // webp or tga
	Workers     int
	Camera      raster.Camera
	Style       raster.Style
	Logger      *slog.Logger
}

// Job solves one frame. Solve runs on a worker goroutine and must only
// read shared skeleton state.
type Job struct {
	Frame int
	Solve func() (*skeleton.Pose, error)
}

// Result holds the outcome of processing one frame.
type Result struct {
	Frame   int
	Image   string
	Joints  []JointCoord
	Success bool
	Error   string
}

// JointCoord is one solved joint as written to the manifest.
type JointCoord struct {
	Name       string     `json:"name"`
	Parent     int        `json:"parent"`
	Coordinate [3]float64 `json:"coordinate"`
}

// Run processes all jobs using a worker pool. Results keep job order.
func Run(cfg Config, jobs []Job) []Result {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Logger()
	}

	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					logger.Info("progress", "done", p, "total", total, "frames_per_sec", float64(p)/elapsed)
				}
			}
		}
	}()

	// Worker pool
	jobChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				t0 := time.Now()
				results[idx] = processFrame(cfg, jobs[idx])
				processed.Add(1)
				if r := results[idx]; r.Success {
					logging.FrameDone(logger, r.Frame, len(r.Joints), time.Since(t0), "image", r.Image)
				} else {
					logger.Warn("frame_failed", "frame", r.Frame, "error", r.Error)
				}
			}
		}()
	}

	// Send work
	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	close(done)

	return results
}

func processFrame(cfg Config, job Job) Result {
	pose, err := job.Solve()
	if err != nil {
		return Result{Frame: job.Frame, Error: err.Error()}
	}

	joints := make([]JointCoord, pose.Len())
	for i := range joints {
		j := pose.At(i)
		joints[i] = JointCoord{Name: j.Name, Parent: j.Parent, Coordinate: j.Coordinate}
	}

	img := raster.RenderPose(pose, cfg.Camera, cfg.Style, cfg.RenderSize, cfg.Supersample)

	// Post-processing: supersample downsample
	if cfg.Supersample > 1 {
		img = postprocess.Downsample(img, cfg.Supersample)
	}

	name := fmt.Sprintf("frame_%05d.%s", job.Frame, cfg.ImageFormat)
	outPath := filepath.Join(cfg.OutputDir, name)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return Result{Frame: job.Frame, Error: err.Error()}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return Result{Frame: job.Frame, Error: err.Error()}
	}
	defer f.Close()

	if err := encode(f, img, cfg.ImageFormat); err != nil {
		return Result{Frame: job.Frame, Error: err.Error()}
	}

	return Result{Frame: job.Frame, Image: name, Joints: joints, Success: true}
}

func encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "tga":
		if err := tga.Encode(w, img); err != nil {
			return fmt.Errorf("TGA encode: %w", err)
		}
	case "webp", "":
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("WebP encode: %w", err)
		}
	default:
		return fmt.Errorf("unknown image format %q", format)
	}
	return nil
}

// ASFJobs builds one job per stride-th frame of an AMC motion.
func ASFJobs(s *skeleton.Skeleton, numbers []int, frames []skeleton.Frame, stride int, opts skeleton.Options) []Job {
	if stride < 1 {
		stride = 1
	}
	var jobs []Job
	for i := 0; i < len(frames); i += stride {
		frame := frames[i]
		n := i + 1
		if i < len(numbers) {
			n = numbers[i]
		}
		jobs = append(jobs, Job{Frame: n, Solve: func() (*skeleton.Pose, error) {
			return s.Solve(frame, opts)
		}})
	}
	return jobs
}

// SMPLJobs builds one job per stride-th rotation set. roots may be nil or
// hold a nil entry for frames without a root coordinate.
func SMPLJobs(s *skeleton.SMPLSkeleton, rotations [][]mathutil.Mat3, roots []*mathutil.Vec3, stride int, opts skeleton.SMPLOptions) []Job {
	if stride < 1 {
		stride = 1
	}
	var jobs []Job
	for i := 0; i < len(rotations); i += stride {
		r := rotations[i]
		o := opts
		if i < len(roots) && roots[i] != nil {
			o.RootCoordinate = roots[i]
		}
		jobs = append(jobs, Job{Frame: i, Solve: func() (*skeleton.Pose, error) {
			return s.Solve(r, o)
		}})
	}
	return jobs
}
