package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sparques/ircapture/internal/config"
	"github.com/sparques/ircapture/internal/replay"
)

func newReplayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [FILE]",
		Short: "Replay a timing log and print the captured frames",
		Long: `Replay reads a timing log, one edge per line as "[level] duration",
from FILE or standard input, and prints one line per frame with its
segment durations in microseconds.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("irframe: could not open timing log: %w", err)
				}
				defer f.Close()
				in = f
			}
			return a.replay(cmd, in)
		},
	}

	def := config.Default().Capture
	flags := cmd.Flags()
	flags.String("mode", def.Mode, "frame store (latch, buffer)")
	flags.String("source", def.Source, "capture source (pin, timer)")
	flags.Duration("dead-time", def.DeadTime, "idle gap ending a frame (pin source)")
	flags.Duration("tick", def.Tick, "timer count duration (timer source)")
	flags.Uint("counter-bits", def.CounterBits, "timer counter width (timer source)")
	flags.Int("buffer-size", def.BufferSize, "edges or segments per frame")
	flags.Bool("in-progress-count", def.InProgressCount, "poll segment counts of incomplete frames, reported as filling_peak (buffer mode)")
	flags.Bool("realtime", def.Realtime, "pace edges by their duration")

	return cmd
}

func (a *app) replay(cmd *cobra.Command, in io.Reader) error {
	edges, err := replay.Parse(in)
	if err != nil {
		return err
	}

	capture := a.cfg.Capture
	opts := replay.Options{
		Mode:            replay.Mode(capture.Mode),
		Source:          replay.Source(capture.Source),
		DeadTime:        capture.DeadTime,
		Tick:            capture.Tick,
		CounterBits:     capture.CounterBits,
		BufferSize:      capture.BufferSize,
		InProgressCount: capture.InProgressCount,
		Realtime:        capture.Realtime,
		Logger:          a.logger,
	}
	if capture.Source == "timer" {
		a.logger.Info("timer source", "idle_timeout", capture.IdleTimeout())
	}

	out := cmd.OutOrStdout()
	stats, err := replay.Run(cmd.Context(), opts, edges, func(f replay.Frame) error {
		var sb strings.Builder
		fmt.Fprintf(&sb, "frame %d (%d):", f.Seq, len(f.Segments))
		for _, d := range f.Segments {
			fmt.Fprintf(&sb, " %d", d.Microseconds())
		}
		_, err := fmt.Fprintln(out, sb.String())
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "edges=%d frames=%d sample_overflows=%d frame_overruns=%d segment_overflows=%d filling_peak=%d\n",
		stats.Edges, stats.Frames, stats.SampleOverflows, stats.FrameOverruns, stats.SegmentOverflows, stats.FillingPeak,
	)
	return nil
}
