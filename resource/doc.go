// Package resource bounds the memory, concurrency and I/O bandwidth shared
// by graph loads in one process.
//
// A single Controller is typically shared by every Open call. Loads reserve
// their table's estimated memory up front and release it when the graph is
// closed.
package resource
