// Package types defines the value types shared by every perfwatch package:
// benchmark measurements, the partition key they are compared under, the
// per-partition baseline and the scored finding.
//
// All types are plain values. Nothing in this package mutates a value after
// construction, and nothing here performs I/O.
package types
