package conditioning

import (
	"errors"
	"log/slog"
)

const (
	DefaultIntervalProbe   = 100
	DefaultTargetPerPeriod = 200
)

type Options struct {
	IgnoreBegin     int
	IgnoreEnd       int
	IntervalProbe   int
	TargetPerPeriod int
	Logger          *slog.Logger
}

// Report describes what each conditioning step did.
type Report struct {
	RawLength        int     `json:"raw_length"`
	TrimmedLength    int     `json:"trimmed_length"`
	SamplesPerPeriod float64 `json:"samples_per_period"`
	Discarded        int     `json:"discarded"`
	Window           int     `json:"window"`
	Length           int     `json:"length"`
}

// Conditioner turns a raw recording into a nondimensional series on the
// grid the simulator produces: trim, align to whole drive periods,
// decimate to about TargetPerPeriod samples per period, rescale.
type Conditioner struct {
	opts Options
	log  *slog.Logger
}

func New(opts Options) *Conditioner {
	if opts.IntervalProbe <= 0 {
		opts.IntervalProbe = DefaultIntervalProbe
	}
	if opts.TargetPerPeriod <= 0 {
		opts.TargetPerPeriod = DefaultTargetPerPeriod
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Conditioner{opts: opts, log: log}
}

func (c *Conditioner) Options() Options { return c.opts }

// Condition runs the full pipeline. raw is not modified.
func (c *Conditioner) Condition(raw Series, src ScaleSource) (Series, Report, error) {
	if src == nil {
		return Series{}, Report{}, errors.New("conditioning: nil scale source")
	}
	if err := raw.Validate(); err != nil {
		return Series{}, Report{}, err
	}
	report := Report{RawLength: raw.Len()}

	s, err := Trim(raw.Clone(), c.opts.IgnoreBegin, c.opts.IgnoreEnd)
	if err != nil {
		return Series{}, report, err
	}
	report.TrimmedLength = s.Len()
	c.log.Info("trimmed recording", "from", c.opts.IgnoreBegin, "to", raw.Len()-c.opts.IgnoreEnd, "samples", s.Len())

	spp, err := SamplesPerPeriod(s, src.DriveFrequency(), c.opts.IntervalProbe)
	if err != nil {
		return Series{}, report, err
	}
	report.SamplesPerPeriod = spp
	s, report.Discarded, err = AlignToPeriods(s, spp)
	if err != nil {
		return Series{}, report, err
	}
	c.log.Info("aligned to whole periods", "samples_per_period", spp, "discarded", report.Discarded)

	report.Window = WindowSize(spp, c.opts.TargetPerPeriod)
	s = Downsample(s, report.Window)
	c.log.Info("downsampled", "window", report.Window, "samples", s.Len())

	s, err = Rescale(s, src.Scales())
	if err != nil {
		return Series{}, report, err
	}
	report.Length = s.Len()
	return s, report, nil
}
