// Package domain models self-reported marine leisure activities and the
// safety insights computed for them.
//
// # Report Payload
//
// A report row stores its payload as a JSON document (the location_data
// column). Payloads are written by the submission form with only the minimal
// fields and enriched lazily on first read. Older rows carry legacy shapes, so
// every read goes through [Normalize] before anything else touches it.
//
// Coordinates:
//
//	location.coordinates.latitude / longitude   canonical
//	location.latitude / longitude               flattened variant
//	location.lat / lon                          legacy alias
//
//	Values may be numbers or numeric strings. Anything missing or out of range
//	is replaced by the fallback point (37.5665, 126.9780) and flagged with
//	metadata.missingCoordinates.
//
// Times:
//
//	ISO-8601 strings. Zone-less values ("2024-05-01T10:00") are read as UTC by
//	appending "Z". Stored form is millisecond UTC, e.g. 2024-05-01T10:00:00.000Z.
//	Activity hours are judged in Korea Standard Time (+09:00), where every
//	station, advisory and user of the service lives.
//
// Issue codes recorded in metadata.issues:
//
//	missing-coordinates      fallback point substituted
//	missing-start-time       start time fell back to "now"
//	end-time-before-start    end time synthesized as start + 1h
//	missing-contact          a contact field replaced by a placeholder
//	missing-location-name    location name replaced by a placeholder
//
// # Cached Insights
//
// Computed results live inside the payload next to the user's data:
//
//	safety_analysis      SafetyAnalysisResult, pinned by SafetyAlgorithmVersion
//	environmental_data   EnvironmentalInsights, stale after 10 minutes
//	ai_report            AISafetyReport, optional
//
// # Safety Levels
//
//	score < 50  RED
//	score < 80  YELLOW
//	otherwise   GREEN
package domain
