// Package progress defines the callback type used to report transfer
// progress, plus ready-made sinks. Producers call the function after each
// chunk with a monotonically non-decreasing fraction in [0,1]; consumers
// must tolerate repeated calls with the same value.
package progress

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Func receives a completion fraction in [0,1].
type Func func(fraction float64)

// Discard ignores all progress updates.
func Discard(float64) {}

// Printer returns a sink that rewrites a single console line, printing only
// when the integer percentage increases.
func Printer(w io.Writer, label string) Func {
	last := -1
	return func(fraction float64) {
		pct := int(fraction * 100)
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		if pct > last {
			last = pct
			fmt.Fprintf(w, "\r%s progress: %d%%", label, pct)
			if pct == 100 {
				fmt.Fprintln(w)
			}
		}
	}
}

// Logger returns a sink that logs each whole-percent step at debug level.
func Logger(log logrus.FieldLogger, label string) Func {
	last := -1
	return func(fraction float64) {
		pct := int(fraction * 100)
		if pct > last {
			last = pct
			log.WithField("percent", pct).Debugf("%s progress", label)
		}
	}
}

// Tee fans a progress update out to multiple sinks.
func Tee(sinks ...Func) Func {
	return func(fraction float64) {
		for _, sink := range sinks {
			if sink != nil {
				sink(fraction)
			}
		}
	}
}
