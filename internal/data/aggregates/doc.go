// Package aggregates implements the domain aggregate contracts on top of the table
// repos in internal/data/repos. Each aggregate owns the transaction of its writes.
package aggregates
