// Package tensor defines the batch containers consumed by the reducers.
//
// A batch is either a Dense array (row-major, dimension 0 is the batch
// dimension) or a Sparse array in coordinate-list form. Both satisfy the
// Array interface, which is the tagged variant every reducer branches on:
//
//	switch v := x.(type) {
//	case *tensor.Dense:
//	    // rectangular path
//	case *tensor.Sparse:
//	    // coordinate-list path
//	}
//
// Shapes carry two views. Shape() is the concrete (dynamic) shape of the
// materialized data. StaticShape() is the declared shape, which may contain
// Unknown dimensions and is what reducers validate against at construction.
//
// # Supported element types
//
//   - Float32, Float64
//   - Int8, Int16, Int32, Int64
//   - Uint8, Uint16, Uint32, Uint64
//   - String (vocabulary and serialization only)
package tensor
