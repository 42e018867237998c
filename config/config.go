// Package config loads an analysis Config from a TOML file, applying any
// value present in the file over model.DefaultConfig and leaving everything
// else at its default.
package config

import (
	"github.com/BurntSushi/toml"

	"github.com/wattshift/tirepressure-core/model"
)

// coastDownFile mirrors model.CoastDownConfig with every field optional, so
// a partial [coast_down] table only overrides what it names.
type coastDownFile struct {
	StartSpeedThresholdMPS *float64 `toml:"start_speed_threshold_mps"`
	PushOffIgnoreSeconds   *int     `toml:"push_off_ignore_seconds"`
	PowerSpikeLookaheadS   *int     `toml:"power_spike_lookahead_s"`
	PowerSpikeThresholdW   *float64 `toml:"power_spike_threshold_w"`
	BrakingDecelMPS2       *float64 `toml:"braking_decel_mps2"`
	BrakingFracOf2s        *float64 `toml:"braking_frac_of_2s"`
	FlatCounterThreshold   *int     `toml:"flat_counter_threshold"`
	FlatSpeedThresholdMPS  *float64 `toml:"flat_speed_threshold_mps"`
	TurnaroundMinSamples   *int     `toml:"turnaround_min_samples"`
	TurnaroundDistanceM    *float64 `toml:"turnaround_distance_m"`
	TurnaroundFraction     *float64 `toml:"turnaround_fraction"`
}

// file is the on-disk shape: every field is a pointer so an absent key
// leaves the corresponding default untouched.
type file struct {
	CdAByBikeType        map[string]float64 `toml:"cda_by_bike_type"`
	Rho                  *float64           `toml:"rho"`
	SilcaRatioByBikeType map[string]float64 `toml:"silca_ratio_by_bike_type"`

	PowerCVWarnThreshold *float64 `toml:"power_cv_warn_threshold"`
	MinQuadraticPoints   *int     `toml:"min_quadratic_points"`

	StartGPSRadiusM      *float64 `toml:"start_gps_radius_m"`
	GPSZoneRadiusM       *float64 `toml:"gps_zone_radius_m"`
	ZonePowerTolPct      *float64 `toml:"zone_power_tol_pct"`
	MinSegmentDistanceM  *float64 `toml:"min_segment_distance_m"`

	MinAltitudeDropM     *float64 `toml:"min_altitude_drop_m"`
	MaxAltitudeErrorRate *float64 `toml:"max_altitude_error_rate"`

	SegmentCVThreshold *float64 `toml:"segment_cv_threshold"`
	MinWindow          *int     `toml:"min_window"`

	SignatureMatchRadiusM *float64 `toml:"signature_match_radius_m"`
	KSigma                *float64 `toml:"k_sigma"`

	HighR2   *float64 `toml:"high_r2"`
	MediumR2 *float64 `toml:"medium_r2"`

	CoastDown *coastDownFile `toml:"coast_down"`
}

// LoadFile reads a TOML config at path and overlays it onto
// model.DefaultConfig. A missing or empty file section simply leaves the
// default in place; LoadFile never returns a partially-zeroed Config.
func LoadFile(path string) (model.Config, error) {
	cfg := model.DefaultConfig()

	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return model.Config{}, model.Wrap(model.StageConfig, "decode", err)
	}

	applyBikeTypeMap(f.CdAByBikeType, cfg.CdAByBikeType)
	applyBikeTypeMap(f.SilcaRatioByBikeType, cfg.SilcaRatioByBikeType)

	applyFloat(&cfg.Rho, f.Rho)
	applyFloat(&cfg.PowerCVWarnThreshold, f.PowerCVWarnThreshold)
	applyInt(&cfg.MinQuadraticPoints, f.MinQuadraticPoints)
	applyFloat(&cfg.StartGPSRadiusM, f.StartGPSRadiusM)
	applyFloat(&cfg.GPSZoneRadiusM, f.GPSZoneRadiusM)
	applyFloat(&cfg.ZonePowerTolPct, f.ZonePowerTolPct)
	applyFloat(&cfg.MinSegmentDistanceM, f.MinSegmentDistanceM)
	applyFloat(&cfg.MinAltitudeDropM, f.MinAltitudeDropM)
	applyFloat(&cfg.MaxAltitudeErrorRate, f.MaxAltitudeErrorRate)
	applyFloat(&cfg.SegmentCVThreshold, f.SegmentCVThreshold)
	applyInt(&cfg.MinWindow, f.MinWindow)
	applyFloat(&cfg.SignatureMatchRadiusM, f.SignatureMatchRadiusM)
	applyFloat(&cfg.KSigma, f.KSigma)
	applyFloat(&cfg.HighR2, f.HighR2)
	applyFloat(&cfg.MediumR2, f.MediumR2)

	if f.CoastDown != nil {
		cd := f.CoastDown
		applyFloat(&cfg.CoastDown.StartSpeedThresholdMPS, cd.StartSpeedThresholdMPS)
		applyInt(&cfg.CoastDown.PushOffIgnoreSeconds, cd.PushOffIgnoreSeconds)
		applyInt(&cfg.CoastDown.PowerSpikeLookaheadS, cd.PowerSpikeLookaheadS)
		applyFloat(&cfg.CoastDown.PowerSpikeThresholdW, cd.PowerSpikeThresholdW)
		applyFloat(&cfg.CoastDown.BrakingDecelMPS2, cd.BrakingDecelMPS2)
		applyFloat(&cfg.CoastDown.BrakingFracOf2s, cd.BrakingFracOf2s)
		applyInt(&cfg.CoastDown.FlatCounterThreshold, cd.FlatCounterThreshold)
		applyFloat(&cfg.CoastDown.FlatSpeedThresholdMPS, cd.FlatSpeedThresholdMPS)
		applyInt(&cfg.CoastDown.TurnaroundMinSamples, cd.TurnaroundMinSamples)
		applyFloat(&cfg.CoastDown.TurnaroundDistanceM, cd.TurnaroundDistanceM)
		applyFloat(&cfg.CoastDown.TurnaroundFraction, cd.TurnaroundFraction)
	}

	return cfg, nil
}

func applyFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func applyInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func applyBikeTypeMap(src map[string]float64, dst map[model.BikeType]float64) {
	for k, v := range src {
		dst[model.BikeType(k)] = v
	}
}
