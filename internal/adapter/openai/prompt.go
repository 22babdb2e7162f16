package openai

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/couchcryptid/marine-report-insights/internal/domain"
)

const maxPromptStations = 3

const systemPrompt = `You are a marine leisure safety officer for the Korean coast.
Assess the planned activity against the conditions provided and answer with a single JSON object:
{
  "summary": "<2-3 sentences>",
  "riskLevel": "LOW | MEDIUM | HIGH",
  "riskFactors": ["<factor>", ...],
  "recommendations": ["<action>", ...],
  "weatherAnalysis": "<1-2 sentences on wind and sea state>"
}
Use only the data given. If a value is missing, say it is unavailable rather than guessing.`

func buildPrompt(report domain.ReportPayload, weather *domain.MarineWeather, warnings []domain.WeatherWarning, stations []domain.CoastGuardStation) string {
	var b strings.Builder

	b.WriteString("Activity\n")
	if loc := report.Location; loc != nil {
		fmt.Fprintf(&b, "- location: %s (%.4f, %.4f)\n", loc.Name, loc.Coordinates.Latitude, loc.Coordinates.Longitude)
	}
	if act := report.Activity; act != nil {
		fmt.Fprintf(&b, "- type: %s\n", act.Type)
		fmt.Fprintf(&b, "- start: %s (KST)\n", act.Start().In(domain.KST).Format("2006-01-02 15:04"))
		fmt.Fprintf(&b, "- end: %s (KST)\n", act.End().In(domain.KST).Format("2006-01-02 15:04"))
		fmt.Fprintf(&b, "- participants: %d\n", act.Participants)
	}

	b.WriteString("\nMarine weather\n")
	if weather == nil {
		b.WriteString("- unavailable\n")
	} else {
		fmt.Fprintf(&b, "- wind: %.1f m/s from %.0f°\n", weather.WindSpeed, weather.WindDirection)
		fmt.Fprintf(&b, "- gusts: %s\n", optional(weather.WindGusts, "m/s"))
		fmt.Fprintf(&b, "- wave height: %s\n", optional(weather.WaveHeight, "m"))
		fmt.Fprintf(&b, "- swell height: %s\n", optional(weather.SwellWaveHeight, "m"))
		fmt.Fprintf(&b, "- source: %s at %s\n", weather.Provider, weather.Time)
	}

	b.WriteString("\nActive weather advisories\n")
	if len(warnings) == 0 {
		b.WriteString("- none\n")
	}
	for _, w := range warnings {
		fmt.Fprintf(&b, "- %s (issued %s)\n", w.Title, w.TmFc)
	}

	b.WriteString("\nNearest coast guard stations\n")
	nearest := nearestStations(stations, maxPromptStations)
	if len(nearest) == 0 {
		b.WriteString("- unknown\n")
	}
	for _, st := range nearest {
		fmt.Fprintf(&b, "- %s, tel %s, %s\n", st.Name, st.Tel, optional(st.Distance, "km"))
	}

	return b.String()
}

// nearestStations returns up to n stations with a known distance, nearest first.
func nearestStations(stations []domain.CoastGuardStation, n int) []domain.CoastGuardStation {
	var known []domain.CoastGuardStation
	for _, st := range stations {
		if st.Distance != nil {
			known = append(known, st)
		}
	}
	slices.SortStableFunc(known, func(a, b domain.CoastGuardStation) int {
		return cmp.Compare(*a.Distance, *b.Distance)
	})
	if len(known) > n {
		known = known[:n]
	}
	return known
}

func optional(v *float64, unit string) string {
	if v == nil {
		return "unavailable"
	}
	return fmt.Sprintf("%.1f %s", *v, unit)
}
