// Command nbls runs narrow-band least-squares array processing over an
// infrasound or seismic array and writes the result figures.
//
// Usage:
//
//	nbls process [flags]
//	nbls plan [flags]
//
// process fetches waveforms (IRIS web services or a local directory), runs
// the broadband pass and the per-band loop, and saves four figures into
// the output directory. plan prints the band schedule and the designed
// filter responses without touching any data.
//
// Examples:
//
//	nbls process
//	nbls process --station I53H? --fmin 0.07 --fmax 5 --bands 10
//	nbls process --source local --dir ./data --calib -0.05 \
//	    --lat 64.87,64.86 --lon -147.86,-147.85
//	nbls plan --bands 10 --spacing log --rate 20
package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/liamtoney/narrow-band-least-squares/band"
	"github.com/liamtoney/narrow-band-least-squares/filter"
	"github.com/liamtoney/narrow-band-least-squares/narrowband"
	"github.com/liamtoney/narrow-band-least-squares/render"
)

const startLayout = "2006-01-02T15:04:05"

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:          "nbls",
	Short:        "Narrow-band least-squares array processing",
	SilenceUsage: true,
}

var (
	verbose bool

	sourceFlag     string
	network        string
	station        string
	location       string
	channel        string
	startFlag      string
	duration       time.Duration
	removeResponse bool

	dataDir    string
	calib      float64
	latitudes  []float64
	longitudes []float64

	fmin    float64
	fmax    float64
	nbands  int
	spacing string

	family string
	order  int
	ripple float64

	windowMode string
	winLen     float64
	winLenLow  float64
	winLenHigh float64
	overlap    float64
	alpha      float64

	mdccmThresh float64
	outDir      string
	format      string
	dpi         int

	planRate float64
)

func init() {
	def := narrowband.DefaultConfig()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log host diagnostics and debug detail")

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Fetch waveforms, run the analysis, write figures",
		RunE:  func(cmd *cobra.Command, args []string) error { return runProcess(cmd.Context()) },
	}

	f := processCmd.Flags()
	f.StringVar(&sourceFlag, "source", def.Source.String(), "waveform source: iris or local")
	f.StringVar(&network, "network", def.Network, "FDSN network code")
	f.StringVar(&station, "station", def.Station, "station code, ? and * wildcards allowed")
	f.StringVar(&location, "location", def.Location, "location code")
	f.StringVar(&channel, "channel", def.Channel, "channel code")
	f.StringVar(&startFlag, "start", def.Start.Format(startLayout), "record start, UTC")
	f.DurationVar(&duration, "duration", def.End.Sub(def.Start), "record length")
	f.BoolVar(&removeResponse, "remove-response", def.RemoveResponse, "correct for the instrument response server-side")

	f.StringVar(&dataDir, "dir", "", "local source: directory of TIMESERIES files")
	f.Float64Var(&calib, "calib", def.Calib, "local source: counts to physical units factor")
	f.Float64SliceVar(&latitudes, "lat", nil, "local source: element latitudes in file-name order")
	f.Float64SliceVar(&longitudes, "lon", nil, "local source: element longitudes in file-name order")

	addPlanFlags(f, def)

	f.Float64Var(&overlap, "overlap", def.Overlap, "window overlap fraction [0, 1)")
	f.Float64Var(&alpha, "alpha", def.Alpha, "least-squares trim: 1 keeps all pairs")
	f.Float64Var(&mdccmThresh, "mdccm-thresh", def.MdCCMThresh, "coherence threshold for figure coloring")
	f.StringVar(&outDir, "out-dir", def.OutDir, "figure output directory")
	f.StringVar(&format, "format", def.Format.String(), "figure format: png or jpg")
	f.IntVar(&dpi, "dpi", def.DPI, "figure resolution")

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the band schedule and filter response summary",
		RunE:  func(cmd *cobra.Command, args []string) error { return runPlan() },
	}

	addPlanFlags(planCmd.Flags(), def)
	planCmd.Flags().Float64Var(&planRate, "rate", 20, "sample rate the filters are designed for, Hz")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nbls %s (%s)\n", version, runtime.Version())
		},
	}

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(versionCmd)
}

// addPlanFlags registers the flags shared by process and plan: the band
// schedule and the filter design.
func addPlanFlags(f *pflag.FlagSet, def narrowband.Config) {
	f.Float64Var(&fmin, "fmin", def.FMin, "lowest analysis frequency, Hz")
	f.Float64Var(&fmax, "fmax", def.FMax, "highest analysis frequency, Hz")
	f.IntVar(&nbands, "bands", def.NumBands, "number of narrow bands")
	f.StringVar(&spacing, "spacing", def.Spacing.String(), "band spacing: linear or log")

	f.StringVar(&family, "family", def.Family.String(), "filter family: butter or cheby1")
	f.IntVar(&order, "order", def.Order, "filter order per band edge")
	f.Float64Var(&ripple, "ripple", def.RippleDB, "Chebyshev passband ripple, dB")

	f.StringVar(&windowMode, "window-mode", def.WindowMode.String(), "window schedule: constant or adaptive")
	f.Float64Var(&winLen, "win-len", def.WinLen, "window length for constant mode and the broadband pass, s")
	f.Float64Var(&winLenLow, "win-len-low", def.WinLen1, "adaptive mode: window at the lowest band, s")
	f.Float64Var(&winLenHigh, "win-len-high", def.WinLenX, "adaptive mode: window at the highest band, s")
}

func parseConfig() (narrowband.Config, error) {
	cfg := narrowband.DefaultConfig()

	var err error
	if cfg.Source, err = narrowband.ParseSource(sourceFlag); err != nil {
		return cfg, err
	}

	cfg.Network = network
	cfg.Station = station
	cfg.Location = location
	cfg.Channel = channel
	cfg.RemoveResponse = removeResponse

	start, err := time.Parse(startLayout, startFlag)
	if err != nil {
		if start, err = time.Parse(time.RFC3339, startFlag); err != nil {
			return cfg, fmt.Errorf("bad --start %q: want %s", startFlag, startLayout)
		}
	}

	cfg.Start = start.UTC()
	cfg.End = cfg.Start.Add(duration)

	cfg.LocalDir = dataDir
	cfg.Calib = calib
	cfg.Latitudes = latitudes
	cfg.Longitudes = longitudes

	cfg.FMin = fmin
	cfg.FMax = fmax
	cfg.NumBands = nbands
	if cfg.Spacing, err = band.ParseSpacing(spacing); err != nil {
		return cfg, err
	}

	if cfg.Family, err = filter.ParseFamily(family); err != nil {
		return cfg, err
	}

	cfg.Order = order
	cfg.RippleDB = ripple

	if cfg.WindowMode, err = band.ParseWindowMode(windowMode); err != nil {
		return cfg, err
	}

	cfg.WinLen = winLen
	cfg.WinLen1 = winLenLow
	cfg.WinLenX = winLenHigh
	cfg.Overlap = overlap
	cfg.Alpha = alpha

	cfg.MdCCMThresh = mdccmThresh
	cfg.OutDir = outDir
	if cfg.Format, err = render.ParseFormat(format); err != nil {
		return cfg, err
	}

	cfg.DPI = dpi

	return cfg, nil
}

func buildLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopmentConfig().Build()
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func runProcess(ctx context.Context) error {
	cfg, err := parseConfig()
	if err != nil {
		return err
	}

	log, err := buildLogger()
	if err != nil {
		return err
	}

	defer func() { _ = log.Sync() }()

	logHost(log)

	p, err := narrowband.New(cfg, narrowband.WithLogger(log))
	if err != nil {
		return err
	}

	began := time.Now()

	out, err := p.Run(ctx)
	if err != nil {
		return err
	}

	log.Info("run complete",
		zap.Duration("elapsed", time.Since(began).Round(time.Millisecond)),
		zap.Int("bands", out.Plan.Count()))

	for _, path := range out.FigurePaths {
		fmt.Println(path)
	}

	return nil
}

// logHost emits a one-time host diagnostics line. The core count is
// informational; processing stays single-threaded regardless.
func logHost(log *zap.Logger) {
	fields := make([]zap.Field, 0, 2)

	if cores, err := cpu.Counts(true); err == nil {
		fields = append(fields, zap.Int("logical_cores", cores))
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		fields = append(fields, zap.String("mem_used", fmt.Sprintf("%.0f%%", vm.UsedPercent)))
	}

	log.Info("host", fields...)
}

func runPlan() error {
	sp, err := band.ParseSpacing(spacing)
	if err != nil {
		return err
	}

	mode, err := band.ParseWindowMode(windowMode)
	if err != nil {
		return err
	}

	fam, err := filter.ParseFamily(family)
	if err != nil {
		return err
	}

	plan, err := band.NewPlan(band.Def{
		FMin:     fmin,
		FMax:     fmax,
		Spacing:  sp,
		NumBands: nbands,
		Mode:     mode,
		WinLen:   winLen,
		WinLen1:  winLenLow,
		WinLenX:  winLenHigh,
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Band\tFMin [Hz]\tFMax [Hz]\tWindow [s]\tSections\t|H| lo [dB]\t|H| mid [dB]\t|H| hi [dB]\n")
	fmt.Fprintf(tw, "----\t---------\t---------\t----------\t--------\t-----------\t------------\t-----------\n")

	if err := planRow(tw, "BB", fmin, fmax, plan.BroadbandSec, fam); err != nil {
		return err
	}

	for i := 0; i < plan.Count(); i++ {
		lo, hi := plan.Band(i)
		if err := planRow(tw, fmt.Sprintf("%d", i+1), lo, hi, plan.WindowSec[i], fam); err != nil {
			return err
		}
	}

	return tw.Flush()
}

// planRow designs one band's filter at the plan sample rate and prints its
// measured response at the edges and the geometric center.
func planRow(tw *tabwriter.Writer, label string, lo, hi, winSec float64, fam filter.Family) error {
	sos, err := filter.BandPass(fam, lo, hi, order, ripple, planRate)
	if err != nil {
		return fmt.Errorf("band %s: %w", label, err)
	}

	mid := math.Sqrt(lo * hi)

	_, err = fmt.Fprintf(tw, "%s\t%.4g\t%.4g\t%.1f\t%d\t%.2f\t%.2f\t%.2f\n",
		label, lo, hi, winSec, sos.NumSections(),
		sos.MagnitudeDB(lo), sos.MagnitudeDB(mid), sos.MagnitudeDB(hi))

	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}

		os.Exit(1)
	}
}
