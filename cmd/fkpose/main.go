// Command fkpose solves forward kinematics for ASF/AMC and SMPL motion,
// renders pose snapshots and retargets motion between the two skeletons.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"mocap-fk/internal/acclaim"
	"mocap-fk/internal/batch"
	"mocap-fk/internal/config"
	"mocap-fk/internal/jointmap"
	"mocap-fk/internal/logging"
	"mocap-fk/internal/mathutil"
	"mocap-fk/internal/raster"
	"mocap-fk/internal/retarget"
	"mocap-fk/internal/skeleton"
	"mocap-fk/internal/smplio"
)

// Globals are flags shared by every command.
type Globals struct {
	Config    string `help:"JSON or YAML config file" type:"existingfile"`
	LogLevel  string `name:"log-level" help:"debug, info, warn or error"`
	LogFormat string `name:"log-format" help:"text or json"`
}

// CLI defines the command-line interface for fkpose.
var CLI struct {
	Globals

	Render   RenderCmd   `cmd:"" help:"Render every stride-th frame as an image plus a joint manifest"`
	Pose     PoseCmd     `cmd:"" help:"Print solved joint coordinates of one frame as JSON"`
	Retarget RetargetCmd `cmd:"" help:"Convert ASF motion to SMPL rotations, or back with --reverse"`
	Joints   JointsCmd   `cmd:"" help:"Print the ASF/SMPL joint correspondence table"`
	Describe DescribeCmd `cmd:"" help:"Print the bones of an ASF skeleton"`
}

// Inputs selects the skeleton and motion files.
type Inputs struct {
	ASF       string `name:"asf" help:"ASF skeleton file"`
	AMC       string `name:"amc" help:"AMC motion file"`
	SMPLRest  string `name:"smpl-rest" help:"SMPL rest joints (JSON or YAML)"`
	SMPLPoses string `name:"smpl-poses" help:"SMPL pose frames (JSON or YAML)"`
}

// load merges the config file, global flags and command flags, then
// initializes logging.
func (g *Globals) load(flags config.Flags) (config.Config, error) {
	var cfg config.Config
	if g.Config != "" {
		var err error
		cfg, err = config.Load(g.Config)
		if err != nil {
			return cfg, err
		}
	}
	if flags.LogLevel == "" {
		flags.LogLevel = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.LogFormat = g.LogFormat
	}
	cfg.Resolve(flags)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, err
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return cfg, err
	}
	logging.InitLogger(level, format)
	return cfg, nil
}

// motion is whatever the inputs resolved to: an ASF skeleton with AMC
// frames, or an SMPL skeleton with rotation frames.
type motion struct {
	asf     *skeleton.Skeleton
	numbers []int
	frames  []skeleton.Frame

	smpl      *skeleton.SMPLSkeleton
	rotations [][]mathutil.Mat3
	roots     []*mathutil.Vec3

	skeletonPath string
	motionPath   string
}

// loadMotion reads the configured inputs. Without a motion file the rest
// pose becomes the single frame.
func loadMotion(cfg config.Config) (*motion, error) {
	m := &motion{}
	switch {
	case cfg.ASFFile != "":
		doc, err := acclaim.LoadASF(cfg.ASFFile)
		if err != nil {
			return nil, err
		}
		if m.asf, err = doc.Build(); err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.ASFFile, err)
		}
		m.skeletonPath = cfg.ASFFile
		if cfg.AMCFile == "" {
			m.numbers = []int{0}
			m.frames = []skeleton.Frame{m.asf.ZeroFrame()}
			return m, nil
		}
		amc, err := acclaim.LoadAMC(cfg.AMCFile)
		if err != nil {
			return nil, err
		}
		m.numbers, m.frames = amc.Numbers, amc.Frames
		m.motionPath = cfg.AMCFile

	case cfg.SMPLRest != "":
		s, err := smplio.LoadSkeleton(cfg.SMPLRest)
		if err != nil {
			return nil, err
		}
		m.smpl = s
		m.skeletonPath = cfg.SMPLRest
		if cfg.SMPLPoses == "" {
			m.rotations = [][]mathutil.Mat3{skeleton.IdentityRotations(s.Len())}
			m.roots = []*mathutil.Vec3{nil}
			return m, nil
		}
		rots, roots, err := loadSMPLFrames(cfg.SMPLPoses)
		if err != nil {
			return nil, err
		}
		m.rotations, m.roots = rots, roots
		m.motionPath = cfg.SMPLPoses

	default:
		return nil, errors.New("no skeleton: set --asf or --smpl-rest")
	}
	return m, nil
}

func loadSMPLFrames(path string) ([][]mathutil.Mat3, []*mathutil.Vec3, error) {
	pf, err := smplio.LoadPoses(path)
	if err != nil {
		return nil, nil, err
	}
	rots := make([][]mathutil.Mat3, len(pf.Frames))
	roots := make([]*mathutil.Vec3, len(pf.Frames))
	for i, f := range pf.Frames {
		if rots[i], err = f.Rotations(); err != nil {
			return nil, nil, fmt.Errorf("%s: frame %d: %w", path, i, err)
		}
		if f.Root != nil {
			v := mathutil.Vec3(*f.Root)
			roots[i] = &v
		}
	}
	return rots, roots, nil
}

// RenderCmd renders pose snapshots.
type RenderCmd struct {
	Inputs
	Output          string `short:"o" help:"Output directory"`
	Stride          int    `help:"Render every n-th frame"`
	Format          string `help:"Image format: webp or tga"`
	Workers         int    `help:"Number of worker goroutines (default: NumCPU)"`
	RootTranslation string `name:"root-translation" help:"discard or apply"`
	Trace           bool   `help:"Log every evaluated joint at debug level"`
}

func (c *RenderCmd) Run(g *Globals) error {
	flags := c.flags()
	if c.Trace {
		flags.LogLevel = "debug"
	}
	cfg, err := g.load(flags)
	if err != nil {
		return err
	}
	m, err := loadMotion(cfg)
	if err != nil {
		return err
	}
	mode, err := cfg.RootMode()
	if err != nil {
		return err
	}

	var trace skeleton.TraceFunc
	if c.Trace {
		trace = logging.JointTrace(nil)
	}

	var jobs []batch.Job
	if m.asf != nil {
		jobs = batch.ASFJobs(m.asf, m.numbers, m.frames, cfg.FrameStride, skeleton.Options{RootTranslation: mode, Trace: trace})
	} else {
		opts := skeleton.SMPLOptions{Trace: trace}
		roots := m.roots
		if mode == skeleton.RootDiscard {
			roots = nil
		}
		jobs = batch.SMPLJobs(m.smpl, m.rotations, roots, cfg.FrameStride, opts)
	}

	logger := logging.Logger()
	logger.Info("render",
		"skeleton", m.skeletonPath,
		"motion", m.motionPath,
		"frames", len(jobs),
		"workers", cfg.Workers,
		"output", cfg.OutputDir,
	)

	start := time.Now()
	results := batch.Run(batch.Config{
		OutputDir:   cfg.OutputDir,
		RenderSize:  cfg.RenderSize,
		Supersample: cfg.Supersample,
		ImageFormat: cfg.ImageFormat,
		Workers:     cfg.Workers,
		Camera:      raster.Camera{Azimuth: cfg.Azimuth, Elevation: cfg.Elevation},
		Style:       raster.DefaultStyle(),
		Logger:      logger,
	}, jobs)

	manifest := batch.Manifest{
		Skeleton:        m.skeletonPath,
		Motion:          m.motionPath,
		RootTranslation: mode.String(),
	}
	if err := batch.WriteManifest(filepath.Join(cfg.OutputDir, "manifest.json"), manifest, results); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	logger.Info("done",
		"rendered", len(results)-failed,
		"failed", failed,
		"seconds", time.Since(start).Seconds(),
	)
	if failed > 0 {
		return fmt.Errorf("%d of %d frames failed, see manifest.json", failed, len(results))
	}
	return nil
}

func (c *RenderCmd) flags() config.Flags {
	return config.Flags{
		ASFFile:         c.ASF,
		AMCFile:         c.AMC,
		SMPLRest:        c.SMPLRest,
		SMPLPoses:       c.SMPLPoses,
		OutputDir:       c.Output,
		RootTranslation: c.RootTranslation,
		FrameStride:     c.Stride,
		ImageFormat:     c.Format,
		Workers:         c.Workers,
	}
}

// PoseCmd prints one solved frame.
type PoseCmd struct {
	Inputs
	Frame           int    `help:"1-based frame position in the motion file; 0 is the rest pose"`
	RootTranslation string `name:"root-translation" help:"discard or apply"`

	out io.Writer `kong:"-"`
}

func (c *PoseCmd) Run(g *Globals) error {
	cfg, err := g.load(config.Flags{
		ASFFile:         c.ASF,
		AMCFile:         c.AMC,
		SMPLRest:        c.SMPLRest,
		SMPLPoses:       c.SMPLPoses,
		RootTranslation: c.RootTranslation,
	})
	if err != nil {
		return err
	}
	m, err := loadMotion(cfg)
	if err != nil {
		return err
	}
	mode, err := cfg.RootMode()
	if err != nil {
		return err
	}

	var pose *skeleton.Pose
	switch {
	case m.asf != nil && c.Frame == 0:
		pose = m.asf.RestPose()
	case m.asf != nil:
		if c.Frame > len(m.frames) {
			return fmt.Errorf("frame %d out of range 1..%d", c.Frame, len(m.frames))
		}
		pose, err = m.asf.Solve(m.frames[c.Frame-1], skeleton.Options{RootTranslation: mode})
	case c.Frame == 0:
		pose = m.smpl.RestPose()
	default:
		if c.Frame > len(m.rotations) {
			return fmt.Errorf("frame %d out of range 1..%d", c.Frame, len(m.rotations))
		}
		opts := skeleton.SMPLOptions{}
		if mode == skeleton.RootApply {
			opts.RootCoordinate = m.roots[c.Frame-1]
		}
		pose, err = m.smpl.Solve(m.rotations[c.Frame-1], opts)
	}
	if err != nil {
		return err
	}

	joints := make([]batch.JointCoord, pose.Len())
	for i := range joints {
		j := pose.At(i)
		joints[i] = batch.JointCoord{Name: j.Name, Parent: j.Parent, Coordinate: j.Coordinate}
	}
	enc := json.NewEncoder(c.writer())
	enc.SetIndent("", "  ")
	return enc.Encode(joints)
}

func (c *PoseCmd) writer() io.Writer {
	if c.out != nil {
		return c.out
	}
	return os.Stdout
}

// RetargetCmd converts motion between the two skeletons.
type RetargetCmd struct {
	Inputs
	Out            string `short:"o" required:"" help:"Output file: SMPL poses (.json/.yaml), or AMC with --reverse"`
	Reverse        bool   `help:"Convert SMPL poses (--smpl-poses) into AMC for --asf"`
	RequireFullDOF bool   `name:"require-full-dof" help:"Reject ASF bones with fewer than 3 rotation axes"`
	Stride         int    `help:"Convert every n-th frame"`
}

func (c *RetargetCmd) Run(g *Globals) error {
	cfg, err := g.load(config.Flags{
		ASFFile:     c.ASF,
		AMCFile:     c.AMC,
		SMPLRest:    c.SMPLRest,
		SMPLPoses:   c.SMPLPoses,
		FrameStride: c.Stride,
	})
	if err != nil {
		return err
	}
	if cfg.ASFFile == "" {
		return errors.New("retarget needs --asf")
	}

	doc, err := acclaim.LoadASF(cfg.ASFFile)
	if err != nil {
		return err
	}
	asf, err := doc.Build()
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.ASFFile, err)
	}

	var smpl *skeleton.SMPLSkeleton
	if cfg.SMPLRest != "" {
		smpl, err = smplio.LoadSkeleton(cfg.SMPLRest)
	} else {
		smpl, err = retarget.SMPLFromASF(asf)
	}
	if err != nil {
		return err
	}

	rt, err := retarget.New(asf, smpl, retarget.Options{RequireFullDOF: c.RequireFullDOF})
	if err != nil {
		return err
	}

	logger := logging.Logger()
	if c.Reverse {
		if cfg.SMPLPoses == "" {
			return errors.New("--reverse needs --smpl-poses")
		}
		rots, roots, err := loadSMPLFrames(cfg.SMPLPoses)
		if err != nil {
			return err
		}
		var frames []skeleton.Frame
		for i := 0; i < len(rots); i += cfg.FrameStride {
			var root mathutil.Vec3
			if roots[i] != nil {
				root = *roots[i]
			}
			f, err := rt.ToFrame(rots[i], root)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			frames = append(frames, f)
		}

		order := make([]string, 0, asf.Len())
		for _, i := range asf.Order() {
			order = append(order, asf.Bone(i).Name)
		}
		out, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		defer out.Close()
		if err := acclaim.WriteAMC(out, frames, order); err != nil {
			return err
		}
		logger.Info("retarget", "direction", "smpl->asf", "frames", len(frames), "out", c.Out)
		return out.Close()
	}

	if cfg.AMCFile == "" {
		return errors.New("retarget needs --amc")
	}
	amc, err := acclaim.LoadAMC(cfg.AMCFile)
	if err != nil {
		return err
	}
	var frames [][]mathutil.Mat3
	for i := 0; i < len(amc.Frames); i += cfg.FrameStride {
		pose, err := asf.Solve(amc.Frames[i], skeleton.Options{})
		if err != nil {
			return fmt.Errorf("frame %d: %w", amc.Numbers[i], err)
		}
		rots, err := rt.ToSMPL(pose)
		if err != nil {
			return fmt.Errorf("frame %d: %w", amc.Numbers[i], err)
		}
		frames = append(frames, rots)
	}
	if err := smplio.WritePoses(c.Out, frames); err != nil {
		return err
	}
	logger.Info("retarget", "direction", "asf->smpl", "frames", len(frames), "out", c.Out)
	return nil
}

// JointsCmd prints the correspondence table.
type JointsCmd struct {
	out io.Writer `kong:"-"`
}

func (c *JointsCmd) Run() error {
	w := c.out
	if w == nil {
		w = os.Stdout
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tSMPL\tASF\tPARENT")
	for idx := 0; idx < jointmap.Count; idx++ {
		name, _ := jointmap.SMPLName(idx)
		asf, _ := jointmap.ToASFName(idx)
		parent, _ := jointmap.SMPLParent(idx)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", idx, name, asf, parent)
	}
	return tw.Flush()
}

// DescribeCmd prints an ASF skeleton.
type DescribeCmd struct {
	Path string `arg:"" help:"ASF skeleton file" type:"existingfile"`

	out io.Writer `kong:"-"`
}

func (c *DescribeCmd) Run() error {
	doc, err := acclaim.LoadASF(c.Path)
	if err != nil {
		return err
	}
	s, err := doc.Build()
	if err != nil {
		return err
	}
	w := c.out
	if w == nil {
		w = os.Stdout
	}
	return s.Describe(w)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("fkpose"),
		kong.Description("Forward kinematics for ASF/AMC and SMPL skeletons"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Bind(&CLI.Globals),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
