package domain

import (
	"fmt"
	"math"
)

// SafetyAlgorithmVersion identifies the scoring rules below. Cached analyses
// carrying another version are recomputed.
const SafetyAlgorithmVersion = "safety-v2"

const maxScore = 100

type bucket int

const (
	bucketWeather bucket = iota
	bucketSea
	bucketActivity
	bucketResponse
)

// scorer collects deductions. Each rule appends at most one entry.
type scorer struct {
	breakdown       ScoreBreakdown
	factors         []RiskFactor
	recommendations []string
}

func (s *scorer) deduct(b bucket, points float64) {
	switch b {
	case bucketWeather:
		s.breakdown.Weather += points
	case bucketSea:
		s.breakdown.Sea += points
	case bucketActivity:
		s.breakdown.Activity += points
	case bucketResponse:
		s.breakdown.Response += points
	}
}

func (s *scorer) factor(t RiskFactorType, sev Severity, msg string) {
	s.factors = append(s.factors, RiskFactor{Type: t, Severity: sev, Message: msg})
}

func (s *scorer) recommend(msg string) {
	s.recommendations = append(s.recommendations, msg)
}

func (s *scorer) total() float64 {
	b := s.breakdown
	return b.Weather + b.Sea + b.Activity + b.Response
}

// AnalyzeSafety scores a normalized report against an environment snapshot.
// It is pure: the same inputs always give the same result.
func AnalyzeSafety(report ReportPayload, env EnvironmentSnapshot) SafetyAnalysisResult {
	s := &scorer{}

	if env.Weather != nil {
		scoreWind(s, *env.Weather)
		scoreSea(s, *env.Weather)
	} else {
		s.recommend("Live marine weather was unavailable. Check the latest forecast before heading out.")
	}
	scoreWarnings(s, env.Warnings)
	scoreResponse(s, env.Stations)
	if report.Activity != nil {
		scoreActivity(s, *report.Activity)
	}

	score := int(math.Round(max(0, min(maxScore, maxScore-s.total()))))

	factors := s.factors
	if factors == nil {
		factors = []RiskFactor{}
	}
	recommendations := s.recommendations
	if recommendations == nil {
		recommendations = []string{}
	}

	return SafetyAnalysisResult{
		Score:           score,
		Level:           LevelForScore(score),
		RiskFactors:     factors,
		Recommendations: recommendations,
		Breakdown:       s.breakdown,
		Version:         SafetyAlgorithmVersion,
	}
}

func scoreWind(s *scorer, w MarineWeather) {
	wind := w.WindSpeed
	if w.WindGusts != nil {
		wind = max(wind, *w.WindGusts)
	}

	switch {
	case wind >= 28:
		s.deduct(bucketWeather, 40)
		s.factor(RiskWeather, SeverityHigh, fmt.Sprintf("Storm-force wind of %.1f m/s", wind))
		s.recommend("Stop the activity. Wind is far beyond safe limits.")
	case wind >= 20:
		s.deduct(bucketWeather, 25)
		s.factor(RiskWeather, SeverityHigh, fmt.Sprintf("Strong wind of %.1f m/s", wind))
		s.recommend("Postpone the activity until the wind eases.")
	case wind >= 15:
		s.deduct(bucketWeather, 15)
		s.factor(RiskWeather, SeverityMedium, fmt.Sprintf("Fresh wind of %.1f m/s", wind))
		s.recommend("Stay close to shore and avoid exposed water.")
	case wind >= 10:
		s.deduct(bucketWeather, 5)
		s.recommend("Expect choppy conditions from moderate wind.")
	}
}

func scoreSea(s *scorer, w MarineWeather) {
	if w.WaveHeight != nil {
		wave := *w.WaveHeight
		switch {
		case wave >= 3:
			s.deduct(bucketSea, 25)
			s.factor(RiskWeather, SeverityHigh, fmt.Sprintf("High waves of %.1f m", wave))
			s.recommend("Do not enter the water in high seas.")
		case wave >= 2:
			s.deduct(bucketSea, 15)
			s.factor(RiskWeather, SeverityMedium, fmt.Sprintf("Rough sea with %.1f m waves", wave))
			s.recommend("Limit the activity to sheltered areas.")
		case wave >= 1:
			s.deduct(bucketSea, 5)
			s.recommend("Watch for waves breaking near rocks and piers.")
		}
	}

	if w.SwellWaveHeight != nil {
		swell := *w.SwellWaveHeight
		switch {
		case swell >= 1.5:
			s.deduct(bucketSea, 10)
			s.factor(RiskWeather, SeverityMedium, fmt.Sprintf("Heavy swell of %.1f m", swell))
			s.recommend("Be prepared for strong surge near the shoreline.")
		case swell >= 0.7:
			s.deduct(bucketSea, 4)
			s.recommend("Account for swell when launching and landing.")
		}
	}
}

func scoreWarnings(s *scorer, warnings []WeatherWarning) {
	if len(warnings) == 0 {
		return
	}
	s.deduct(bucketWeather, 15)
	s.factor(RiskWeather, SeverityHigh, fmt.Sprintf("Active weather advisory: %s", warnings[0].Title))
	s.recommend("Follow the active weather advisory and check official updates.")
}

func scoreResponse(s *scorer, stations []CoastGuardStation) {
	nearest, ok := nearestStationDistance(stations)
	if !ok {
		s.deduct(bucketResponse, 5)
		s.factor(RiskOther, SeverityLow, "No coast guard station information available")
		s.recommend("Save the coast guard emergency number 122 before departure.")
		return
	}

	switch {
	case nearest > 30:
		s.deduct(bucketResponse, 15)
		s.factor(RiskOther, SeverityHigh, fmt.Sprintf("Nearest coast guard station is %.1f km away", nearest))
		s.recommend("Carry a VHF radio or satellite messenger. Rescue response will be slow.")
	case nearest > 15:
		s.deduct(bucketResponse, 10)
		s.recommend(fmt.Sprintf("The nearest coast guard station is %.1f km away. Share your route with someone on shore.", nearest))
	case nearest > 5:
		s.deduct(bucketResponse, 5)
		s.recommend("Note the nearest coast guard station before departure.")
	}
}

// nearestStationDistance is the smallest known station distance. Stations
// without a distance are ignored.
func nearestStationDistance(stations []CoastGuardStation) (float64, bool) {
	best, found := 0.0, false
	for _, st := range stations {
		if st.Distance == nil {
			continue
		}
		if !found || *st.Distance < best {
			best, found = *st.Distance, true
		}
	}
	return best, found
}

func scoreActivity(s *scorer, a Activity) {
	if start, ok := parseTimestamp(a.StartTime); ok {
		hour := start.In(KST).Hour()
		if hour < 6 || hour >= 18 {
			s.deduct(bucketActivity, 20)
			s.factor(RiskOther, SeverityHigh, "Activity starts in darkness")
			s.recommend("Schedule the activity during daylight hours.")
		}
	}

	if a.Participants == 1 {
		s.deduct(bucketActivity, 10)
		s.factor(RiskOther, SeverityLow, "Solo activity")
		s.recommend("Bring a companion or tell someone your plan.")
	}

	if a.Type == ActivityScuba && a.Participants < 2 {
		s.deduct(bucketActivity, 20)
		s.factor(RiskOther, SeverityHigh, "Scuba diving without a buddy")
		s.recommend("Never dive alone. Use the buddy system.")
	}
}
