// Package cache orchestrates compute-or-serve fragment caching.
//
// A Fragment pairs a Backend with a producer: Run either serves the stored
// payload for a set of Conditions or invokes the producer, captures what it
// writes, persists the capture and returns it. Key derivation is
// order-independent (see Keyer), and storage failures degrade to misses rather
// than failing the call.
package cache
