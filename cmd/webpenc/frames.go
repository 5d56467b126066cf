package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/deepteams/webpenc"
	"github.com/deepteams/webpenc/internal/config"
)

// frameMetrics are written to a Prometheus text file after a frames run.
type frameMetrics struct {
	registry *prometheus.Registry
	encoded  prometheus.Counter
	failed   prometheus.Counter
	inBytes  prometheus.Counter
	outBytes prometheus.Counter
	duration prometheus.Histogram
}

func newFrameMetrics() *frameMetrics {
	m := &frameMetrics{
		registry: prometheus.NewRegistry(),
		encoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webpenc_frames_encoded_total",
			Help: "Frames encoded successfully",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webpenc_frames_failed_total",
			Help: "Frames that failed to load, encode or write",
		}),
		inBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webpenc_input_pixel_bytes_total",
			Help: "RGBA bytes fed to the encoder",
		}),
		outBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webpenc_output_bytes_total",
			Help: "WebP bytes written",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "webpenc_frame_encode_seconds",
			Help:    "Time spent encoding one frame",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	m.registry.MustRegister(m.encoded, m.failed, m.inBytes, m.outBytes, m.duration)
	return m
}

func (m *frameMetrics) write(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

type framesFlags struct {
	encoderFlags
	outDir      string
	jobs        int
	pattern     string
	metricsFile string
}

func newFramesCmd(a *app) *cobra.Command {
	var flags framesFlags
	cmd := &cobra.Command{
		Use:   "frames <dir>",
		Short: "Encode every frame in a directory",
		Long: "Encodes each image or raw RGBA frame in <dir>, in name order, to " +
			"frame-00000.webp, frame-00001.webp, ... in the output directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			flags.applyConfig(fs, a)
			if !fs.Changed("jobs") {
				flags.jobs = a.cfg.Frames.Jobs
			}
			if !fs.Changed("pattern") {
				flags.pattern = a.cfg.Frames.Pattern
			}
			if !fs.Changed("metrics-file") {
				flags.metricsFile = a.cfg.Frames.MetricsFile
			}
			if flags.outDir == "" {
				flags.outDir = args[0]
			}
			return runFrames(a, &flags, args[0])
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVarP(&flags.outDir, "output", "o", "", "output directory (default: the input directory)")
	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", runtime.NumCPU(), "number of frames encoded in parallel")
	cmd.Flags().StringVar(&flags.pattern, "pattern", "frame-%05d.webp", "output file name pattern")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	return cmd
}

// listFrames returns the encodable files of dir in name order.
func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var frames []string
	for _, e := range entries {
		if e.IsDir() || !isInput(e.Name()) {
			continue
		}
		frames = append(frames, filepath.Join(dir, e.Name()))
	}
	sort.Strings(frames)
	return frames, nil
}

type frameResult struct {
	idx int
	err error
}

func runFrames(a *app, flags *framesFlags, dir string) error {
	if flags.jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1")
	}
	if err := config.ValidatePattern(flags.pattern); err != nil {
		return fmt.Errorf("--pattern: %w", err)
	}
	frames, err := listFrames(dir)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no frames found in %s", dir)
	}
	if err := os.MkdirAll(flags.outDir, 0o755); err != nil {
		return err
	}

	l, err := newLoader(flags.width, flags.height, flags.maxW, flags.maxH)
	if err != nil {
		return err
	}
	defer l.Close()

	metrics := newFrameMetrics()
	opts := flags.options(a)
	start := time.Now()

	numWorkers := flags.jobs
	if numWorkers > len(frames) {
		numWorkers = len(frames)
	}
	work := make(chan int, len(frames))
	for i := range frames {
		work <- i
	}
	close(work)

	results := make(chan frameResult, len(frames))
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				out := filepath.Join(flags.outDir, fmt.Sprintf(flags.pattern, idx))
				results <- frameResult{idx: idx, err: encodeFrame(l, opts, metrics, frames[idx], out)}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	failed := 0
	for r := range results {
		if r.err == nil {
			continue
		}
		failed++
		metrics.failed.Inc()
		a.log.Warn().Err(r.err).Str("frame", frames[r.idx]).Msg("Failed to encode frame")
		if firstErr == nil {
			firstErr = r.err
		}
	}

	a.log.Info().
		Int("frames", len(frames)).
		Int("failed", failed).
		Int("workers", numWorkers).
		Dur("elapsed", time.Since(start)).
		Msg("Finished encoding frames")

	if flags.metricsFile != "" {
		if err := metrics.write(flags.metricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	if firstErr != nil {
		return fmt.Errorf("%d of %d frames failed, first error: %w", failed, len(frames), firstErr)
	}
	return nil
}

func encodeFrame(l *loader, opts *webpenc.Options, m *frameMetrics, input, output string) error {
	buf, release, err := l.load(input)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	data, err := webpenc.EncodeWithOptions(buf.Pix, uint32(buf.Width), uint32(buf.Height), opts)
	if err != nil {
		return err
	}
	m.duration.Observe(time.Since(start).Seconds())

	if err := writeFile(output, data); err != nil {
		return err
	}
	m.encoded.Inc()
	m.inBytes.Add(float64(len(buf.Pix)))
	m.outBytes.Add(float64(len(data)))
	return nil
}

// writeFile stages data under a temporary name and renames it into place,
// so a reader never sees a partial frame.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
