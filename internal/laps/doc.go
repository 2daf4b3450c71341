// Package laps owns the lap record shared by every stage of the correction
// pipeline.
//
// A Lap carries the raw timing fields as retrieved from the lap store plus
// the annotations added by later stages (stint tags and the three
// corrections). Stages never mutate their input: each returns a fresh slice
// with its own annotations filled in.
//
// Dependency rule: laps depends only on the standard library. No SQL and no
// estimation code belongs here.
package laps
