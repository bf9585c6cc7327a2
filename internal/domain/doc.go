// Package domain models research-cruise event logs and the reference data
// used to reconcile them.
//
// # Data Source
//
// Each cruise ships a chronological event log exported from the vessel's
// logging system (one CSV row per operational action), plus optional
// overlay files maintained by the data team: corrections keyed by message
// id, additions for events that were never logged, a TOI discrete-sample
// log, CTD cast headers, the underway GPS feed and a station list.
//
// # Event Log Conventions
//
// Time format:
//
//	ISO 8601 in UTC, e.g. "2018-02-04T14:37:08Z". Rows without an explicit
//	zone are interpreted as UTC.
//
// Cast labels:
//
//	CTD casts are numbered and often zero-padded ("004"). Incubation casts
//	are tagged with a "C" prefix ("C12") referring to the CTD cast they
//	were sampled from. Labels are compared through [CastNumber].
//
// Missing positions:
//
//	Latitude and Longitude are NaN when the log carries no position. They
//	are filled from the underway track by timestamp when one is available.
//
// # Timeline Construction
//
// A [Timeline] is built in a fixed order: base log, corrections, additions,
// TOI discrete samples, CTD deploy events from cast headers, underway
// back-fill, incubation cast normalisation and a final sort. Corrections
// only ever override timestamps. CTD events are replaced wholesale rather
// than patched.
//
// # Station Matching
//
// Positions are labelled with the nearest station by great-circle distance
// ([HaversineKm]) when that station lies within [DefaultMatchRadiusKm].
// Off-station casts get no label rather than the nearest one.
//
// # Underway Positions
//
// [LocationIndex] carries the last fix at or before the requested time
// forward; it does not interpolate between fixes.
package domain
