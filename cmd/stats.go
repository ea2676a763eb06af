package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/kilianp07/emsdispatch/core/coordinator"
)

func printStats(w io.Writer, s coordinator.Stats) {
	_, _ = fmt.Fprintf(w, "submitted  %s\n", humanize.Comma(int64(s.Submitted)))
	_, _ = fmt.Fprintf(w, "open       %s\n", humanize.Comma(int64(s.Open)))
	_, _ = fmt.Fprintf(w, "completed  %s\n", humanize.Comma(int64(s.Completed)))
	_, _ = fmt.Fprintf(w, "cancelled  %s\n", humanize.Comma(int64(s.Cancelled)))
	_, _ = fmt.Fprintf(w, "stalled    %s\n", humanize.Comma(int64(s.Stalled)))
	if s.Completed > 0 {
		_, _ = fmt.Fprintf(w, "response   mean %ss  p50 %ss  p90 %ss\n",
			humanize.FtoaWithDigits(s.MeanResponseSeconds, 1),
			humanize.FtoaWithDigits(s.P50ResponseSeconds, 1),
			humanize.FtoaWithDigits(s.P90ResponseSeconds, 1))
	}
}
