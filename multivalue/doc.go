// Package multivalue compensates for targets whose call mechanism
// cannot natively return more than one scalar.
//
// A return expanding to more than one slot is modeled as a
// struct-of-scalars return. After compilation, an external
// binary-rewriting tool patches multi-return support into the
// compiled module; it is invoked with one argument per
// struct-returning export naming its ordered field kinds. This
// package computes those argument lists and runs the tool; the
// rewrite itself is an external collaborator. An unavailable tool or
// a reported failure aborts generation.
package multivalue
