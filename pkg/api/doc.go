// Package api contains the public types shared by the ecugate runtime:
// the Message and State interfaces, guard and processor function types,
// and the Observer machinery used for logging and metrics.
//
// Implementations live in pkg/msgqueue, pkg/pool and pkg/fsm; the root
// ecugate package re-exports the common names so most callers never
// import this package directly.
package api
