package domain

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Issue codes recorded when normalization substitutes a value.
const (
	IssueMissingCoordinates  = "missing-coordinates"
	IssueMissingStartTime    = "missing-start-time"
	IssueEndTimeBeforeStart  = "end-time-before-start"
	IssueMissingContact      = "missing-contact"
	IssueMissingLocationName = "missing-location-name"
)

// Fallback values substituted for unusable input.
const (
	DefaultLatitude     = 37.5665
	DefaultLongitude    = 126.9780
	ContactPlaceholder  = "Not provided"
	LocationPlaceholder = "Unknown location"
	DefaultActivityHour = time.Hour
	MinParticipants     = 1
	MaxParticipants     = 200
	minContactLength    = 2
	maxWeatherStationID = 999
	maxStartYear        = 9999
)

// NormalizeResult is the canonical payload plus what had to be repaired.
// Issues lists only the codes raised by this run.
type NormalizeResult struct {
	Payload ReportPayload
	Changed bool
	Issues  []string
}

// fixes accumulates what a normalization step changed. Steps return their own
// fixes and the caller merges them; nothing is shared between steps.
type fixes struct {
	changed bool
	issues  []string
}

func (f fixes) merge(o fixes) fixes {
	issues := slices.Clone(f.issues)
	for _, code := range o.issues {
		if !slices.Contains(issues, code) {
			issues = append(issues, code)
		}
	}
	return fixes{changed: f.changed || o.changed, issues: issues}
}

func coerced() fixes { return fixes{changed: true} }

func raised(code string) fixes { return fixes{changed: true, issues: []string{code}} }

func coercedIf(cond bool) fixes { return fixes{changed: cond} }

// Normalize turns a stored location_data document of any shape into a
// canonical ReportPayload. It never fails: undecodable input is treated as an
// empty object and every missing section is defaulted.
func Normalize(raw []byte) NormalizeResult {
	doc := decodeObject(raw)
	prior := readMetadata(doc["metadata"])

	var f fixes
	var flags Metadata

	location, locFixes := normalizeLocation(asObject(doc["location"]), prior, &flags)
	f = f.merge(locFixes)

	activity, actFixes := normalizeActivity(asObject(doc["activity"]), prior, &flags)
	f = f.merge(actFixes)

	contact, contactFixes := normalizeContact(asObject(doc["contact"]))
	f = f.merge(contactFixes)

	companions, compFixes := normalizeCompanions(doc["companions"])
	f = f.merge(compFixes)

	notes, notesFixes := normalizeNotes(doc["notes"])
	f = f.merge(notesFixes)

	safety, safetyFixes := decodeSection[SafetyAnalysisResult](doc["safety_analysis"])
	f = f.merge(safetyFixes)
	env, envFixes := decodeSection[EnvironmentalInsights](doc["environmental_data"])
	f = f.merge(envFixes)
	ai, aiFixes := decodeSection[AISafetyReport](doc["ai_report"])
	f = f.merge(aiFixes)

	payload := ReportPayload{
		Location:          &location,
		Activity:          &activity,
		Contact:           &contact,
		Companions:        companions,
		Notes:             notes,
		SafetyAnalysis:    safety,
		EnvironmentalData: env,
		AIReport:          ai,
		Metadata:          buildMetadata(prior, flags, f, clock.Now()),
	}

	return NormalizeResult{Payload: payload, Changed: f.changed, Issues: f.issues}
}

func buildMetadata(prior, flags Metadata, f fixes, now time.Time) *Metadata {
	meta := Metadata{
		MissingCoordinates: flags.MissingCoordinates,
		MissingSchedule:    flags.MissingSchedule,
		SanitizedAt:        prior.SanitizedAt,
	}
	meta.Issues = slices.Clone(prior.Issues)
	for _, code := range f.issues {
		if !slices.Contains(meta.Issues, code) {
			meta.Issues = append(meta.Issues, code)
		}
	}
	if f.changed {
		meta.SanitizedAt = FormatTimestamp(now)
	}
	if !meta.MissingCoordinates && !meta.MissingSchedule && len(meta.Issues) == 0 && meta.SanitizedAt == "" {
		return nil
	}
	return &meta
}

func normalizeLocation(loc map[string]any, prior Metadata, flags *Metadata) (Location, fixes) {
	var f fixes
	out := Location{}

	name, ok := trimmedString(loc["name"])
	switch {
	case !ok || name == "":
		out.Name = LocationPlaceholder
		f = f.merge(raised(IssueMissingLocationName))
	default:
		out.Name = name
		f = f.merge(coercedIf(name != loc["name"]))
	}

	coords, coordFixes := normalizeCoordinates(loc)
	f = f.merge(coordFixes)
	if coords == nil {
		out.Coordinates = Coordinates{Latitude: DefaultLatitude, Longitude: DefaultLongitude}
		flags.MissingCoordinates = true
		f = f.merge(raised(IssueMissingCoordinates))
	} else {
		out.Coordinates = *coords
		if prior.MissingCoordinates {
			if isFallbackPoint(*coords) {
				flags.MissingCoordinates = true
			} else {
				f = f.merge(coerced())
			}
		}
	}

	if raw, present := loc["weatherStationId"]; present && raw != nil {
		v, kind := toNumber(raw)
		switch {
		case kind == numberInvalid || v != math.Trunc(v) || v <= 0 || v > maxWeatherStationID:
			f = f.merge(coerced())
		default:
			id := int(v)
			out.WeatherStationID = &id
			f = f.merge(coercedIf(kind == numberFromString))
		}
	}

	return out, f
}

// normalizeCoordinates picks latitude and longitude by key precedence:
// coordinates.latitude/longitude, then latitude/longitude, then lat/lon.
// It returns nil when either component is missing or out of range.
func normalizeCoordinates(loc map[string]any) (*Coordinates, fixes) {
	nested := asObject(loc["coordinates"])
	latRaw, latCanonical := firstPresent(
		keyed{nested, "latitude", true}, keyed{loc, "latitude", false}, keyed{loc, "lat", false})
	lonRaw, lonCanonical := firstPresent(
		keyed{nested, "longitude", true}, keyed{loc, "longitude", false}, keyed{loc, "lon", false})

	lat, latKind := toNumber(latRaw)
	lon, lonKind := toNumber(lonRaw)
	if latKind == numberAbsent || latKind == numberInvalid || lonKind == numberAbsent || lonKind == numberInvalid {
		return nil, fixes{}
	}
	if !validLatitude(lat) || !validLongitude(lon) {
		return nil, fixes{}
	}

	f := coercedIf(latKind == numberFromString || lonKind == numberFromString || !latCanonical || !lonCanonical)
	return &Coordinates{Latitude: lat, Longitude: lon}, f
}

func normalizeActivity(act map[string]any, prior Metadata, flags *Metadata) (Activity, fixes) {
	var f fixes
	out := Activity{}

	activityType, typeFixes := normalizeActivityType(act["type"])
	out.Type = activityType
	f = f.merge(typeFixes)

	rawStart, _ := act["startTime"].(string)
	start, ok := parseTimestamp(rawStart)
	// The synthesized end must stay within four-digit years.
	if ok && start.Year() >= maxStartYear {
		ok = false
	}
	if !ok {
		start = clock.Now()
		flags.MissingSchedule = true
		f = f.merge(raised(IssueMissingStartTime))
	}
	out.StartTime = FormatTimestamp(start)
	f = f.merge(coercedIf(out.StartTime != rawStart))

	rawEnd, _ := act["endTime"].(string)
	end, ok := parseTimestamp(rawEnd)
	if !ok || !end.After(start) {
		end = start.Add(DefaultActivityHour)
		flags.MissingSchedule = true
		f = f.merge(raised(IssueEndTimeBeforeStart))
	}
	out.EndTime = FormatTimestamp(end)
	f = f.merge(coercedIf(out.EndTime != rawEnd))

	if prior.MissingSchedule {
		flags.MissingSchedule = true
	}

	participants, partFixes := normalizeParticipants(act["participants"])
	out.Participants = participants
	f = f.merge(partFixes)

	return out, f
}

func normalizeActivityType(raw any) (ActivityType, fixes) {
	s, _ := raw.(string)
	for _, t := range ActivityTypes {
		if string(t) == s {
			return t, fixes{}
		}
	}
	folded := strings.ToLower(strings.TrimSpace(s))
	for _, t := range ActivityTypes {
		if string(t) == folded {
			return t, coerced()
		}
	}
	return ActivityTypes[0], coerced()
}

func normalizeParticipants(raw any) (int, fixes) {
	v, kind := toNumber(raw)
	if kind == numberAbsent || kind == numberInvalid {
		return MinParticipants, coerced()
	}
	// Clamp before converting: huge values would overflow int.
	clamped := max(MinParticipants, min(MaxParticipants, math.Round(v)))
	return int(clamped), coercedIf(kind == numberFromString || clamped != v)
}

func normalizeContact(c map[string]any) (Contact, fixes) {
	var f fixes
	field := func(key string) string {
		s, ok := trimmedString(c[key])
		if !ok || utf8.RuneCountInString(s) < minContactLength {
			f = f.merge(raised(IssueMissingContact))
			return ContactPlaceholder
		}
		f = f.merge(coercedIf(s != c[key]))
		return s
	}
	return Contact{
		Name:             field("name"),
		Phone:            field("phone"),
		EmergencyContact: field("emergencyContact"),
	}, f
}

// normalizeCompanions keeps only complete entries. A companion missing any
// field is dropped, never defaulted.
func normalizeCompanions(raw any) ([]Contact, fixes) {
	if raw == nil {
		return nil, fixes{}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, coerced()
	}

	var f fixes
	var out []Contact
	for _, item := range list {
		entry := asObject(item)
		name, okName := trimmedString(entry["name"])
		phone, okPhone := trimmedString(entry["phone"])
		emergency, okEmergency := trimmedString(entry["emergencyContact"])
		if !okName || !okPhone || !okEmergency || name == "" || phone == "" || emergency == "" {
			f = f.merge(coerced())
			continue
		}
		f = f.merge(coercedIf(name != entry["name"] || phone != entry["phone"] || emergency != entry["emergencyContact"]))
		out = append(out, Contact{Name: name, Phone: phone, EmergencyContact: emergency})
	}
	return out, f
}

func normalizeNotes(raw any) (string, fixes) {
	if raw == nil {
		return "", fixes{}
	}
	s, ok := raw.(string)
	if !ok {
		return "", coerced()
	}
	return s, fixes{}
}

// decodeSection re-reads a cached computation section into its typed form.
// Sections that no longer decode are dropped so they get recomputed.
func decodeSection[T any](raw any) (*T, fixes) {
	if raw == nil {
		return nil, fixes{}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, coerced()
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, coerced()
	}
	return &out, fixes{}
}

func readMetadata(raw any) Metadata {
	m := asObject(raw)
	meta := Metadata{}
	meta.MissingCoordinates, _ = m["missingCoordinates"].(bool)
	meta.MissingSchedule, _ = m["missingSchedule"].(bool)
	meta.SanitizedAt, _ = m["sanitizedAt"].(string)
	if issues, ok := m["issues"].([]any); ok {
		for _, item := range issues {
			if code, ok := item.(string); ok && !slices.Contains(meta.Issues, code) {
				meta.Issues = append(meta.Issues, code)
			}
		}
	}
	return meta
}

// decodeObject reads raw as a JSON object. A JSON string holding an object
// (a double-encoded column) is unwrapped once.
func decodeObject(raw []byte) map[string]any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{}
	}
	if s, ok := v.(string); ok {
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return map[string]any{}
		}
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func trimmedString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

type keyed struct {
	obj       map[string]any
	key       string
	canonical bool
}

func firstPresent(candidates ...keyed) (any, bool) {
	for _, c := range candidates {
		if v, ok := c.obj[c.key]; ok && v != nil {
			return v, c.canonical
		}
	}
	return nil, true
}

type numberKind int

const (
	numberAbsent numberKind = iota
	numberNative
	numberFromString
	numberInvalid
)

func toNumber(v any) (float64, numberKind) {
	switch n := v.(type) {
	case nil:
		return 0, numberAbsent
	case float64:
		return n, numberNative
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, numberInvalid
		}
		return f, numberFromString
	default:
		return 0, numberInvalid
	}
}

func validLatitude(v float64) bool {
	return !math.IsNaN(v) && v >= -90 && v <= 90
}

func validLongitude(v float64) bool {
	return !math.IsNaN(v) && v >= -180 && v <= 180
}

func isFallbackPoint(c Coordinates) bool {
	return c.Latitude == DefaultLatitude && c.Longitude == DefaultLongitude
}
