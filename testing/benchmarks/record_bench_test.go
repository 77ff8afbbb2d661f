package benchmarks

import (
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zoobzio/chrometrace"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// enabledRecorder returns a recorder writing to a temp file.
func enabledRecorder(b *testing.B, opts ...chrometrace.Option) *chrometrace.Recorder {
	b.Helper()
	s := chrometrace.New(append([]chrometrace.Option{chrometrace.WithLogger(quietLogger())}, opts...)...)
	if err := s.Enable(chrometrace.PathDestination(filepath.Join(b.TempDir(), "bench.json"))); err != nil {
		b.Fatalf("enable: %v", err)
	}
	b.Cleanup(func() {
		_ = s.Disable() //nolint:errcheck // best effort
	})
	return chrometrace.NewRecorder(s)
}

func work(n int) int {
	return n + 1
}

// BenchmarkRecordDisabled measures the cost of instrumentation that is off.
func BenchmarkRecordDisabled(b *testing.B) {
	rec := chrometrace.NewRecorder(chrometrace.New(chrometrace.WithLogger(quietLogger())))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec.Begin("disabled")
		rec.End("disabled")
	}
}

// BenchmarkRecordEnabled measures buffering a Begin/End pair.
func BenchmarkRecordEnabled(b *testing.B) {
	rec := enabledRecorder(b)

	b.ReportAllocs()
	b.ResetTimer()
	start := time.Now()
	for i := 0; i < b.N; i++ {
		rec.Begin("enabled")
		rec.End("enabled")
	}
	b.ReportMetric(float64(b.N)/time.Since(start).Seconds(), "spans/sec")
}

// BenchmarkRecordParallel measures contention on the shared buffer.
func BenchmarkRecordParallel(b *testing.B) {
	rec := enabledRecorder(b)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			rec.Scope("parallel").End()
		}
	})
}

// BenchmarkRecordWithArgs measures events carrying args.
func BenchmarkRecordWithArgs(b *testing.B) {
	rec := enabledRecorder(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec.Begin("args", chrometrace.NewArg("i", i), chrometrace.NewArg("kind", "bench"))
		rec.End("args")
	}
}

// BenchmarkWrapOverhead compares a direct call with a wrapped one.
func BenchmarkWrapOverhead(b *testing.B) {
	b.Run("direct", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = work(i)
		}
	})

	b.Run("wrapped_disabled", func(b *testing.B) {
		rec := chrometrace.NewRecorder(chrometrace.New(chrometrace.WithLogger(quietLogger())))
		wrapped := chrometrace.MustWrap(rec, work)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = wrapped(i)
		}
	})

	b.Run("wrapped_enabled", func(b *testing.B) {
		wrapped := chrometrace.MustWrap(enabledRecorder(b), work)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = wrapped(i)
		}
	})

	b.Run("do_enabled", func(b *testing.B) {
		rec := enabledRecorder(b)
		fn := func() { _ = work(1) }
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			rec.Do(fn)
		}
	})
}

// BenchmarkFlush measures writing batches of buffered events.
func BenchmarkFlush(b *testing.B) {
	for _, batch := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("events_%d", batch), func(b *testing.B) {
			rec := enabledRecorder(b)
			s := rec.Session()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				for j := 0; j < batch/2; j++ {
					rec.Begin("flush")
					rec.End("flush")
				}
				b.StartTimer()
				if err := s.Flush(); err != nil {
					b.Fatalf("flush: %v", err)
				}
			}
		})
	}
}
