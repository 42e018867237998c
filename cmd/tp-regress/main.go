// Command tp-regress fits the quadratic regression directly over a CSV file
// of (pressure, efficiency) points, without running ingest or any detector.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wattshift/tirepressure-core/model"
	"github.com/wattshift/tirepressure-core/regression"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tp-regress: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		pointsPath string
		allowTwo   bool
		powerCV    float64
		hasPowerCV bool
	)

	cmd := &cobra.Command{
		Use:   "tp-regress",
		Short: "Fit a quadratic pressure-optimum regression over a point file",
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := readPoints(pointsPath)
			if err != nil {
				return err
			}

			opts := regression.Options{AllowTwoPoint: allowTwo, Config: model.DefaultConfig()}
			if hasPowerCV {
				opts.PowerCV = &powerCV
			}

			result := regression.Fit(points, opts)
			printResult(result)
			if result.Err != "" {
				return fmt.Errorf("%s", result.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pointsPath, "points", "", "CSV file with pressure,efficiency columns (no header) (required)")
	cmd.Flags().BoolVar(&allowTwo, "allow-two-point", false, "allow the two-point regression fallback")
	cmd.Flags().Float64Var(&powerCV, "power-cv", 0, "optional cross-lap power-CV statistic to apply the confidence demotion")
	cmd.Flags().BoolVar(&hasPowerCV, "power-cv-set", false, "set when --power-cv was explicitly supplied")
	cmd.MarkFlagRequired("points")

	return cmd
}

func readPoints(path string) ([]model.RegressionPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2

	var points []model.RegressionPoint
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		x, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing pressure column: %w", err)
		}
		y, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing efficiency column: %w", err)
		}
		points = append(points, model.RegressionPoint{X: x, Y: y})
	}
	return points, nil
}

func printResult(result model.RegressionResult) {
	if result.Err != "" {
		fmt.Printf("error:               %s\n", result.Err)
		return
	}
	fmt.Printf("optimum pressure:    %.2f\n", result.OptimalX)
	fmt.Printf("r-squared:           %.3f\n", result.R2)
	fmt.Printf("vibration reduction: %.1f%%\n", result.VibrationReductionPct)
	fmt.Printf("confidence:          %s\n", result.Confidence)
	if result.Warning != "" {
		fmt.Printf("warning:             %s\n", result.Warning)
	}
	fmt.Printf("points used:         %d\n", len(result.PointsUsed))
	fmt.Printf("points trimmed:      %d\n", len(result.PointsTrimmed))
}
