// Package bitmap provides compressed position masks backed by Roaring bitmaps.
//
// A Mask records a set of flat element positions within a batch. The reducers
// use it as the indicator array of the count reduction: the positions of
// missing (NaN) elements are collected once, and per-column counts are derived
// from the mask instead of materializing a same-shaped 0/1 array.
//
// Missing values are rare in practice, so the mask is usually tiny compared
// with the batch; Roaring run and array containers keep it that way even for
// clustered gaps.
//
// # Example Usage
//
//	m, err := bitmap.NaNPositions(values)
//	if err != nil {
//	    return err
//	}
//	missingPerColumn := m.CountByColumn(numColumns)
package bitmap
