package tirepressure

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wattshift/tirepressure-core/model"
)

// buildCircleSession constructs a session with 5 laps, each a constant
// (power, speed) run, so CircleLap.RollingResidual lands exactly on the
// parabola residual = 3.924 - 0.0006*(pressure-70)^2 at v = 10 m/s,
// CdA = 0.320 (road default), rho = 1.204: aero power at that speed is
// 192.64 W, so lap power = residual*10 + 192.64.
func buildCircleSession() model.IngestedSession {
	lapPower := map[int]float64{
		0: 231.28, // pressure 60
		1: 231.73, // pressure 65
		2: 231.88, // pressure 70 (vertex)
		3: 231.73, // pressure 75
		4: 231.28, // pressure 80
	}
	lapPressure := map[int]float64{0: 60, 1: 65, 2: 70, 3: 75, 4: 80}

	records := make(map[int][]model.Record, len(lapPower))
	metadata := make(map[int]model.LapMetadata, len(lapPower))
	for lapIdx, power := range lapPower {
		recs := make([]model.Record, 40)
		for i := range recs {
			recs[i] = model.Record{WheelSpeedKMH: 36.0, PowerW: power}
		}
		records[lapIdx] = recs
		metadata[lapIdx] = model.LapMetadata{LapIndex: lapIdx, RearPressure: lapPressure[lapIdx]}
	}

	return model.IngestedSession{Records: records, Metadata: metadata}
}

func TestAnalyzeCircleEndToEnd(t *testing.T) {
	session := buildCircleSession()
	cfg := model.DefaultConfig()

	rec, err := Analyze(session, ProtocolCircle, cfg, AnalyzeOptions{BikeType: model.BikeRoad})
	require.NoError(t, err)

	require.Empty(t, rec.Regression.Err)
	require.Equal(t, model.ConfidenceHigh, rec.Regression.Confidence)
	require.InDelta(t, 70.0, rec.RearPressure, 0.05)
	require.InDelta(t, 0.923*70.0, rec.FrontPressure, 0.05)

	require.Equal(t, 5, rec.Diagnostics.LapsIngested)
	require.Equal(t, 5, rec.Diagnostics.CandidatesFound)
	require.Equal(t, 5, rec.Diagnostics.CandidatesUsable)
	require.NotEmpty(t, rec.RunID)
}

func TestAnalyzeCircleInsufficientValidLaps(t *testing.T) {
	session := model.IngestedSession{
		Records: map[int][]model.Record{
			0: {{WheelSpeedKMH: 36, PowerW: 200}}, // single sample: fails n >= 30
		},
		Metadata: map[int]model.LapMetadata{0: {LapIndex: 0, RearPressure: 65}},
	}

	_, err := Analyze(session, ProtocolCircle, model.DefaultConfig(), AnalyzeOptions{BikeType: model.BikeRoad})
	require.Error(t, err)
}

func TestAnalyzeUnknownProtocolErrors(t *testing.T) {
	_, err := Analyze(model.IngestedSession{}, Protocol("bogus"), model.DefaultConfig(), AnalyzeOptions{})
	require.Error(t, err)
}

func TestAnalyzeConstantPowerNoSegmentsIsInsufficientData(t *testing.T) {
	session := model.IngestedSession{
		Records: map[int][]model.Record{
			0: {{WheelSpeedKMH: 36, PowerW: 0}, {WheelSpeedKMH: 36, PowerW: 0}},
		},
		Metadata: map[int]model.LapMetadata{0: {LapIndex: 0, RearPressure: 65}},
	}

	_, err := Analyze(session, ProtocolConstantPower, model.DefaultConfig(), AnalyzeOptions{BikeType: model.BikeRoad})
	require.Error(t, err)
}
