package models

// SignalKind identifies a structural signal consumed by the blender.
type SignalKind string

const (
	// SignalLeagueDrawRate is the league's empirical draw rate.
	SignalLeagueDrawRate SignalKind = "league_draw_rate"
	// SignalH2HDrawRate is the draw frequency of past meetings between the
	// two teams; its confidence carries the head-to-head sample size.
	SignalH2HDrawRate SignalKind = "h2h_draw_rate"
	// SignalEloGap is the absolute rating-point gap between the teams.
	SignalEloGap SignalKind = "elo_gap"
	// SignalRestDiff is home rest days minus away rest days.
	SignalRestDiff SignalKind = "rest_diff"
	// SignalWeatherSeverity is a 0..1 severity score for match-day weather.
	SignalWeatherSeverity SignalKind = "weather_severity"
	// SignalInjurySeverity is the net injury burden, positive when the home
	// side is more affected.
	SignalInjurySeverity SignalKind = "injury_severity"
)

// AllSignalKinds lists every kind the blender understands, in the order they
// are gathered.
var AllSignalKinds = []SignalKind{
	SignalLeagueDrawRate,
	SignalH2HDrawRate,
	SignalEloGap,
	SignalRestDiff,
	SignalWeatherSeverity,
	SignalInjurySeverity,
}

// StructuralSignal is an externally computed contextual value for a fixture.
// Absent signals are represented by not appearing at all, never by a neutral
// numeric stand-in.
type StructuralSignal struct {
	Kind  SignalKind `json:"kind"`
	Value float64    `json:"value"`
	// Confidence is a sample size or confidence weight, depending on the
	// kind. Zero means the provider gave no confidence information.
	Confidence float64 `json:"confidence"`
}
