// Package plan models finished districting maps and their exports.
//
// A [Plan] records the unit-to-district assignment plus the run
// parameters (state, mode, engine, seat counts). Plans serialize to an
// indented JSON file via [WriteJSON] and [ExportJSON] and come back
// through [ReadJSON] and [ImportJSON], which validate structure on the
// way in: a stored plan with duplicate or empty unit ids is rejected
// with an INVALID_PLAN error.
//
// A serialized plan carries only unit ids. [Plan.Resolve] joins it back
// against a unit table to restore geometry and attributes, after which
// [Summarize] computes per-district metrics (population deviation,
// Polsby-Popper compactness, population-weighted partisan share,
// minority share) and the remaining exports apply:
//
//   - [WriteCSV]: GEOID,district assignment rows
//   - [WriteGeoJSON]: one feature per district, dissolved geometry with
//     metrics as properties
//
// All Write* functions have Export* counterparts that write to a file
// path.
package plan
