// Package partial persists the partial aggregates of each batch so an
// external combiner can merge them later.
//
// Every batch becomes one immutable blob named
//
//	<prefix>/<run>/<batch>-<attempt>.bagg
//
// and is made visible by a blobstore.Ledger commit. Only the first commit of
// a (run, batch) pair wins, so a retried or duplicated batch is counted once;
// the losing attempt deletes its blob.
//
// A blob starts with the magic "BAGG", a format version, the compression
// type and the codec ID, followed by one compressed block holding a protobuf
// wire message: a codec-encoded header record and one entry per
// (feature, reducer) whose fields are tensor wire messages.
package partial
