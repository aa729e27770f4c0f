// Package conv holds the checked integer conversions used where sizes cross
// a width boundary: element offsets stored as 32-bit bitmap positions, block
// sizes in compressed payloads, and tensor dimensions decoded from the wire.
//
// Values coming from persisted partials are untrusted, so a conversion that
// would wrap returns ErrOutOfRange instead.
package conv
