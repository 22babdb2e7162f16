package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	report := writeFile(t, dir, "report.json", `{
		"location": {"name": "Jeju Hamdeok", "coordinates": {"latitude": 33.543, "longitude": 126.669}},
		"activity": {"type": "scuba", "startTime": "2025-07-01T01:00:00.000Z", "endTime": "2025-07-01T02:00:00.000Z", "participants": 1},
		"contact": {"name": "Kim Minsu", "phone": "010-1234-5678", "emergencyContact": "010-9876-5432"}
	}`)
	env := writeFile(t, dir, "env.json", `{
		"weather": {"wind_speed": 3, "wind_direction": 90, "wind_gusts": null, "wave_height": 0.3, "swell_wave_height": null, "provider": "windy"},
		"warnings": [],
		"stations": [{"name": "Jeju", "tel": "122", "lat": 33.517, "lon": 126.529, "distance": 2.5}],
		"fetchedAt": "2025-07-01T00:00:00.000Z"
	}`)

	var out bytes.Buffer
	code := run(&out, []string{report}, env, "2025-07-01T00:00:00Z", true, false)
	require.Equal(t, 0, code)

	var got []assessment
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 1)
	assert.False(t, got[0].Changed)
	// solo 10 + scuba without buddy 20
	assert.Equal(t, 70, got[0].Analysis.Score)
	assert.Equal(t, domain.LevelYellow, got[0].Analysis.Level)
}

func TestRun_FailOnRed(t *testing.T) {
	dir := t.TempDir()
	report := writeFile(t, dir, "night.json", `{
		"location": {"name": "Busan", "coordinates": {"latitude": 35.1, "longitude": 129.0}},
		"activity": {"type": "scuba", "startTime": "2025-07-01T14:00:00.000Z", "endTime": "2025-07-01T15:00:00.000Z", "participants": 1},
		"contact": {"name": "Lee Jun", "phone": "010-1111-2222", "emergencyContact": "010-3333-4444"}
	}`)

	var out bytes.Buffer
	code := run(&out, []string{report}, "", "", false, true)

	// darkness 20 + solo 10 + no buddy 20 + no station info 5
	assert.Equal(t, 2, code)
	assert.Contains(t, out.String(), "score 45 (RED)")
	assert.Contains(t, out.String(), "[HIGH] Scuba diving without a buddy")
}

func TestRun_RepairsMalformedPayload(t *testing.T) {
	dir := t.TempDir()
	report := writeFile(t, dir, "broken.json", `{"location": {"latitude": "abc"}}`)

	var out bytes.Buffer
	code := run(&out, []string{report}, "", "2025-07-01T00:00:00Z", false, false)

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), domain.IssueMissingCoordinates)
	assert.Contains(t, out.String(), domain.IssueMissingContact)
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 1, run(&out, []string{"does-not-exist.json"}, "", "", false, false))
	assert.Equal(t, 1, run(&out, []string{"x.json"}, "", "yesterday", false, false))
}
