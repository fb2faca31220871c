package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"skimmer/capture"
)

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir         string
	captureFile *os.File
	perfFile    *os.File

	captureHeaderWritten bool
	perfHeaderWritten    bool
}

// NewOutputManager creates a new output manager and initializes the
// output directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "captures.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating captures.csv: %w", err)
	}
	om.captureFile = f

	f, err = os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		om.captureFile.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	return om, nil
}

// WriteWindow writes a capture window record to captures.csv.
func (om *OutputManager) WriteWindow(stats WindowStats) error {
	if om == nil {
		return nil
	}
	records := []WindowStats{stats}
	if !om.captureHeaderWritten {
		if err := gocsv.Marshal(records, om.captureFile); err != nil {
			return fmt.Errorf("writing captures: %w", err)
		}
		om.captureHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.captureFile); err != nil {
		return fmt.Errorf("writing captures: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int) error {
	if om == nil {
		return nil
	}
	records := []PerfStatsCSV{stats.ToCSV(windowEnd)}
	if !om.perfHeaderWritten {
		if err := gocsv.Marshal(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		om.perfHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.perfFile); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// DumpRecords writes every captured particle to records.csv. Intended
// for the end of a run; each call overwrites the file.
func (om *OutputManager) DumpRecords(b *capture.Buffer) error {
	if om == nil {
		return nil
	}
	f, err := os.Create(filepath.Join(om.dir, "records.csv"))
	if err != nil {
		return fmt.Errorf("creating records.csv: %w", err)
	}
	defer f.Close()

	records := RecordsFromBuffer(b)
	if err := gocsv.Marshal(&records, f); err != nil {
		return fmt.Errorf("writing records: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	if om.captureFile != nil {
		if err := om.captureFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if om.perfFile != nil {
		if err := om.perfFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
