// Package metrics keeps lightweight local time-series counters under the
// application workdir using tstorage.
package metrics

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
)

var (
	storage tstorage.Storage
	mu      sync.Mutex
)

// InitMetrics opens the tstorage partition under workdir/metrics.
func InitMetrics(workdir string) error {
	mu.Lock()
	defer mu.Unlock()
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithPartitionDuration(24*time.Hour),
	)
	if err != nil {
		return err
	}
	storage = s
	return nil
}

// Close flushes and closes the metrics storage.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}

// SetGauge records an instantaneous value for name. No-op when metrics are
// not initialized, so library code can record unconditionally.
func SetGauge(name string, value int64) {
	insert(name, float64(value))
}

// IncrCounter records a single occurrence of name.
func IncrCounter(name string) {
	insert(name, 1)
}

func insert(name string, value float64) {
	mu.Lock()
	s := storage
	mu.Unlock()
	if s == nil {
		return
	}
	_ = s.InsertRows([]tstorage.Row{
		{
			Metric:    name,
			DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: value},
		},
	})
}

// Select returns data points for name in the [start, end] unix-seconds range.
func Select(name string, start, end int64) ([]*tstorage.DataPoint, error) {
	mu.Lock()
	s := storage
	mu.Unlock()
	if s == nil {
		return nil, nil
	}
	return s.Select(name, nil, start, end)
}
