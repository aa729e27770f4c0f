// Package mmap maps persisted partial-aggregate files read-only into memory.
//
// LocalStore uses a Mapping to serve ReadAt calls without copying the
// file through kernel buffers. Unix builds use mmap(2) and madvise(2).
// Windows builds use MapViewOfFile, and Advise is a no-op there.
//
// A Mapping is safe for concurrent reads. Close is idempotent; slices
// obtained from Bytes or Slice must not be used after Close returns.
package mmap
