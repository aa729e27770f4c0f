// Package example serializes named batch values as tf.Example records.
//
// Each row of the batch becomes one Example message:
//
//	Example  { Features features = 1; }
//	Features { map<string, Feature> feature = 1; }
//	Feature  { oneof kind { BytesList bytes_list = 1; FloatList float_list = 2; Int64List int64_list = 3; } }
//
// String values fill a BytesList, Float32 values a FloatList and Int64 values
// an Int64List. Every other element type is rejected.
//
// Dense values contribute all elements of a row, flattened. Sparse values
// (rank 2) are densified with the configured default value and contribute as
// many leading elements of the row as the row has present coordinates, so
// sparse rows are expected to be left-packed.
//
// Records can be framed into a single stream with FrameRecords and split
// again with ReadRecords.
package example
