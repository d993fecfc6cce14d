// Package taskgroup provides scoped task groups for Go: a parent spawns a
// dynamic number of children, consumes their results in completion order,
// and no child outlives the scope that spawned it.
package taskgroup
