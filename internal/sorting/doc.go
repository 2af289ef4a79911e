// Package sorting builds ORDER BY comparators over solutions.
//
// A comparator is built once per query from a list of Conditions and reused
// for every pair of solutions. It holds no mutable state and may be called
// concurrently.
//
// Values are ordered by CompareValues, a total order over every value kind.
// A condition whose expression fails to evaluate ranks that solution lowest
// for the condition; the failure is logged at debug level and never returned.
package sorting
