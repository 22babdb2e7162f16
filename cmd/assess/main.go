// Command assess normalizes stored report payloads and scores them offline.
// No upstream is contacted: scoring runs with an optional environment file
// or none at all, which is what a report looks like when every provider is
// down.
//
// Usage:
//
//	go run ./cmd/assess -env conditions.json report1.json report2.json
//	go run ./cmd/assess -json -now 2025-07-01T00:00:00Z report.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/jonboulle/clockwork"
)

// assessment is the printed outcome for one payload file.
type assessment struct {
	File     string                      `json:"file"`
	Changed  bool                        `json:"changed"`
	Issues   []string                    `json:"issues"`
	Payload  domain.ReportPayload        `json:"payload"`
	Analysis domain.SafetyAnalysisResult `json:"safety_analysis"`
}

func main() {
	envPath := flag.String("env", "", "JSON file with an environmental_data snapshot to score against")
	asJSON := flag.Bool("json", false, "print assessments as JSON")
	nowFlag := flag.String("now", "", "RFC3339 time used for normalization defaults")
	failOnRed := flag.Bool("fail-on-red", false, "exit with status 2 when any report scores RED")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, flag.Args(), *envPath, *nowFlag, *asJSON, *failOnRed))
}

func run(out io.Writer, files []string, envPath, now string, asJSON, failOnRed bool) int {
	if now != "" {
		t, err := time.Parse(time.RFC3339, now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -now: %v\n", err)
			return 1
		}
		domain.SetClock(clockwork.NewFakeClockAt(t))
		defer domain.SetClock(nil)
	}

	env, err := loadEnvironment(envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load environment: %v\n", err)
		return 1
	}

	results := make([]assessment, 0, len(files))
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
			return 1
		}
		results = append(results, assess(path, raw, env))
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			return 1
		}
	} else {
		for _, a := range results {
			printAssessment(out, a)
		}
	}

	if failOnRed {
		for _, a := range results {
			if a.Analysis.Level == domain.LevelRed {
				return 2
			}
		}
	}
	return 0
}

func assess(path string, raw []byte, env domain.EnvironmentSnapshot) assessment {
	norm := domain.Normalize(raw)
	issues := norm.Issues
	if issues == nil {
		issues = []string{}
	}
	return assessment{
		File:     path,
		Changed:  norm.Changed,
		Issues:   issues,
		Payload:  norm.Payload,
		Analysis: domain.AnalyzeSafety(norm.Payload, env),
	}
}

// loadEnvironment reads an EnvironmentalInsights document. An empty path
// yields an empty snapshot.
func loadEnvironment(path string) (domain.EnvironmentSnapshot, error) {
	if path == "" {
		return domain.EnvironmentSnapshot{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.EnvironmentSnapshot{}, err
	}
	var env domain.EnvironmentalInsights
	if err := json.Unmarshal(data, &env); err != nil {
		return domain.EnvironmentSnapshot{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return env.Snapshot(), nil
}

func printAssessment(out io.Writer, a assessment) {
	fmt.Fprintf(out, "=== %s ===\n", a.File)
	if p := a.Payload; p.Location != nil && p.Activity != nil {
		fmt.Fprintf(out, "  %s at %s (%.4f, %.4f), %d participant(s)\n",
			p.Activity.Type, p.Location.Name, p.Location.Coordinates.Latitude, p.Location.Coordinates.Longitude, p.Activity.Participants)
		fmt.Fprintf(out, "  %s -> %s\n", p.Activity.StartTime, p.Activity.EndTime)
	}
	if len(a.Issues) > 0 {
		fmt.Fprintf(out, "  repaired: %s\n", strings.Join(a.Issues, ", "))
	} else if a.Changed {
		fmt.Fprintln(out, "  repaired: field types only")
	}

	r := a.Analysis
	fmt.Fprintf(out, "  score %d (%s)  weather -%.0f  sea -%.0f  activity -%.0f  response -%.0f\n",
		r.Score, r.Level, r.Breakdown.Weather, r.Breakdown.Sea, r.Breakdown.Activity, r.Breakdown.Response)
	for _, f := range r.RiskFactors {
		fmt.Fprintf(out, "  [%s] %s\n", f.Severity, f.Message)
	}
	for _, rec := range r.Recommendations {
		fmt.Fprintf(out, "  - %s\n", rec)
	}
	fmt.Fprintln(out)
}
