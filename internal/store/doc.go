// Package store keeps the evaluations produced by `perfwatch serve`, keyed
// by evaluated day, with a monotonically increasing version that readers
// use to detect a new result.
package store
