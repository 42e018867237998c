// Package report writes the regression's diagnostic point set to CSV or
// Parquet for offline inspection of which points were used versus trimmed.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/wattshift/tirepressure-core/model"
)

// DiagnosticRow is one regression input point, tagged with whether it
// survived outlier trim.
type DiagnosticRow struct {
	PressurePSI float64
	EfficiencyY float64
	Trimmed     bool
}

// Rows builds the diagnostic row set from a fitted RegressionResult: every
// used point first, then every trimmed point.
func Rows(result model.RegressionResult) []DiagnosticRow {
	rows := make([]DiagnosticRow, 0, len(result.PointsUsed)+len(result.PointsTrimmed))
	for _, p := range result.PointsUsed {
		rows = append(rows, DiagnosticRow{PressurePSI: p.X, EfficiencyY: p.Y, Trimmed: false})
	}
	for _, p := range result.PointsTrimmed {
		rows = append(rows, DiagnosticRow{PressurePSI: p.X, EfficiencyY: p.Y, Trimmed: true})
	}
	return rows
}

// WriteFile writes rows to path in the format implied by path's extension
// (.csv or .parquet). An unrecognized extension is an error rather than a
// silent default, since a diagnostics export is only useful if it lands in
// the format the caller asked for.
func WriteFile(path string, rows []DiagnosticRow) error {
	switch {
	case strings.HasSuffix(path, ".csv"):
		return writeCSV(path, rows)
	case strings.HasSuffix(path, ".parquet"):
		return writeParquet(path, rows)
	default:
		return fmt.Errorf("report: unsupported output extension for %q (expected .csv or .parquet)", path)
	}
}

func writeCSV(path string, rows []DiagnosticRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"pressure_psi", "efficiency", "trimmed"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatFloat(r.PressurePSI, 'f', -1, 64),
			strconv.FormatFloat(r.EfficiencyY, 'f', -1, 64),
			strconv.FormatBool(r.Trimmed),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type diagnosticParquetRow struct {
	PressurePSI float64 `parquet:"name=pressure_psi, type=DOUBLE"`
	Efficiency  float64 `parquet:"name=efficiency, type=DOUBLE"`
	Trimmed     bool    `parquet:"name=trimmed, type=BOOLEAN"`
}

func writeParquet(path string, rows []DiagnosticRow) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(diagnosticParquetRow), 4)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range rows {
		row := diagnosticParquetRow{
			PressurePSI: r.PressurePSI,
			Efficiency:  r.EfficiencyY,
			Trimmed:     r.Trimmed,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}
