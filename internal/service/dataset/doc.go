// Package dataset holds processed timesheet datasets and serves the
// aggregated views the dashboard renders.
//
// Datasets live in memory keyed by id; an optional Redis cache keeps the
// aggregated view of each dataset warm across instances. The service never
// rejects an upload: whatever the normalization pipeline produces, including
// its synthetic fallback, is stored and served.
package dataset
