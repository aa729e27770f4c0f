// Package s3 stores partial aggregates in Amazon S3 and records their
// commits in DynamoDB.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("batchagg/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	ledger := s3.NewDDBLedger(dynamodb.NewFromConfig(cfg), "batchagg-commits")
//
// # Features
//
//   - Range reads through GetObject
//   - Uploads through the transfer manager, multipart above the part size
//   - Optional CRC32C checksums on upload
//   - Conditional DynamoDB puts so each batch is committed once
package s3
