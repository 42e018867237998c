// Command tp-analyze runs a full pressure-optimization analysis over an
// ingested session file and prints the recommendation.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	tirepressure "github.com/wattshift/tirepressure-core"
	"github.com/wattshift/tirepressure-core/config"
	"github.com/wattshift/tirepressure-core/model"
	"github.com/wattshift/tirepressure-core/report"
	"github.com/wattshift/tirepressure-core/signature"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tp-analyze: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tp-analyze",
		Short: "Analyze a tire-pressure test session and recommend an optimum",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newSignatureCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		sessionPath  string
		configPath   string
		protocol     string
		bikeType     string
		allowTwo     bool
		verbose      bool
		sigStorePath string
		outPath      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ingest -> detect -> align -> regress pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			logLevel := zerolog.Disabled
			if verbose {
				logLevel = zerolog.InfoLevel
			}
			logger := zerolog.New(os.Stderr).Level(logLevel).With().Timestamp().Logger()

			cfg := model.DefaultConfig()
			if configPath != "" {
				loaded, err := config.LoadFile(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			session, err := tirepressure.IngestFile(sessionPath, logger)
			if err != nil {
				return err
			}

			opts := tirepressure.AnalyzeOptions{
				BikeType:      model.BikeType(bikeType),
				AllowTwoPoint: allowTwo,
				Logger:        logger,
			}
			if sigStorePath != "" {
				store, err := signature.Open(sigStorePath)
				if err != nil {
					return err
				}
				defer store.Close()
				opts.SignatureStore = store
			}

			rec, err := tirepressure.Analyze(session, tirepressure.Protocol(protocol), cfg, opts)
			if err != nil {
				return err
			}

			printRecommendation(rec)

			if outPath != "" {
				if err := report.WriteFile(outPath, report.Rows(rec.Regression)); err != nil {
					return fmt.Errorf("writing diagnostics: %w", err)
				}
				fmt.Printf("diagnostics written: %s\n", outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionPath, "session", "", "path to the line-delimited JSON session file (required)")
	cmd.Flags().StringVar(&configPath, "config", "", "optional TOML config overrides")
	cmd.Flags().StringVar(&protocol, "protocol", string(tirepressure.ProtocolConstantPower), "constant_power|circle|coast_down")
	cmd.Flags().StringVar(&bikeType, "bike", string(model.BikeRoad), "road|tt|gravel|mountain")
	cmd.Flags().BoolVar(&allowTwo, "allow-two-point", false, "allow the two-point regression fallback")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log progress to stderr")
	cmd.Flags().StringVar(&sigStorePath, "signature-store", "", "optional SQLite route-signature database path")
	cmd.Flags().StringVar(&outPath, "out", "", "optional diagnostics export path (.csv or .parquet)")
	cmd.MarkFlagRequired("session")

	return cmd
}

func newSignatureCmd() *cobra.Command {
	var (
		storePath string
		lat, lon  float64
		radiusM   float64
	)

	cmd := &cobra.Command{
		Use:   "signature",
		Short: "Inspect the route-signature store",
	}

	lookup := &cobra.Command{
		Use:   "lookup",
		Short: "Look up the nearest stored signature to a GPS point",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := signature.Open(storePath)
			if err != nil {
				return err
			}
			defer store.Close()

			sig, found, err := store.LoadNearby(lat, lon, radiusM)
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("no signature within range")
				return nil
			}
			fmt.Printf("signature %s: mean altitude drop %.1fm, mean duration %.1fs, mean speed %.2fm/s (n=%d)\n",
				sig.ID, sig.MeanAltitudeDropM, sig.MeanDurationS, sig.MeanSpeedMPS, sig.SampleCount)
			return nil
		},
	}
	lookup.Flags().StringVar(&storePath, "store", "", "path to the SQLite signature database (required)")
	lookup.Flags().Float64Var(&lat, "lat", 0, "latitude")
	lookup.Flags().Float64Var(&lon, "lon", 0, "longitude")
	lookup.Flags().Float64Var(&radiusM, "radius-m", 1000, "match radius in meters")
	lookup.MarkFlagRequired("store")

	cmd.AddCommand(lookup)
	return cmd
}

func printRecommendation(rec tirepressure.Recommendation) {
	fmt.Printf("run:                 %s\n", rec.RunID)
	fmt.Printf("protocol:            %s\n", rec.Protocol)
	fmt.Printf("confidence:          %s\n", rec.Regression.Confidence)
	if rec.Regression.Err != "" {
		fmt.Printf("error:               %s\n", rec.Regression.Err)
		return
	}
	fmt.Printf("rear pressure:       %.1f\n", rec.RearPressure)
	fmt.Printf("front pressure:      %.1f\n", rec.FrontPressure)
	fmt.Printf("r-squared:           %.3f\n", rec.Regression.R2)
	fmt.Printf("vibration reduction: %.1f%%\n", rec.Regression.VibrationReductionPct)
	if rec.Regression.Warning != "" {
		fmt.Printf("warning:             %s\n", rec.Regression.Warning)
	}
	for _, w := range rec.Diagnostics.CrossLapWarnings {
		fmt.Printf("cross-lap warning:   %s\n", w)
	}
	if rec.Diagnostics.SignatureWarning != "" {
		fmt.Printf("signature warning:   %s\n", rec.Diagnostics.SignatureWarning)
	}
}
