// Package rbm adapts the roaring bitmap engine to the primitives the handle
// table and dispatcher need: create, add, or, and, equals, is_subset,
// cardinality, serialize, deserialize, statistics and free.
//
// The container algorithms and the serialized byte layout belong to
// github.com/RoaringBitmap/roaring/v2; this package treats both as opaque.
package rbm
