// Package hlc implements a Hybrid Logical Clock: a timestamp that pairs a
// physical wall-clock reading with a logical counter so that timestamps stay
// close to real time while still totally ordering causally related events.
//
// Clock is a plain value type generic over its physical and logical
// representations. It never reads a clock itself; callers pass in the current
// physical time. Source wraps a Clock with a mutex and a time function for
// use by a whole node.
package hlc
