// Package aggregates defines the write boundaries whose invariants must hold atomically.
//
// Contracts here carry no persistence detail; the GORM implementations live in
// internal/data/aggregates.
package aggregates
