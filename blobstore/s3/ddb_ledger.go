package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/batchagg/blobstore"
)

// DDBClient is the subset of the DynamoDB API used by DDBLedger.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

const (
	attrRun       = "run_id"
	attrBatch     = "batch"
	attrBlob      = "blob"
	attrRows      = "rows"
	attrCreatedAt = "created_at"
)

// DDBLedger implements blobstore.Ledger on a DynamoDB table. A conditional
// put makes the first commit of a batch win; retries and duplicate workers
// receive blobstore.ErrExists.
//
// Table schema:
//   - Partition key: run_id (string)
//   - Sort key: batch (number)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name batchagg-commits \
//	  --attribute-definitions AttributeName=run_id,AttributeType=S AttributeName=batch,AttributeType=N \
//	  --key-schema AttributeName=run_id,KeyType=HASH AttributeName=batch,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBLedger struct {
	client DDBClient
	table  string
}

var _ blobstore.Ledger = (*DDBLedger)(nil)

// NewDDBLedger creates a ledger on the given table.
func NewDDBLedger(client DDBClient, table string) *DDBLedger {
	return &DDBLedger{client: client, table: table}
}

// Commit implements blobstore.Ledger.
func (l *DDBLedger) Commit(ctx context.Context, c blobstore.Commit) error {
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.table),
		Item: map[string]types.AttributeValue{
			attrRun:       &types.AttributeValueMemberS{Value: c.RunID},
			attrBatch:     &types.AttributeValueMemberN{Value: strconv.FormatInt(c.Batch, 10)},
			attrBlob:      &types.AttributeValueMemberS{Value: c.Blob},
			attrRows:      &types.AttributeValueMemberN{Value: strconv.FormatInt(c.Rows, 10)},
			attrCreatedAt: &types.AttributeValueMemberS{Value: created.UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_not_exists(#b)"),
		ExpressionAttributeNames: map[string]string{
			"#b": attrBatch,
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("s3: batch %d of run %s: %w", c.Batch, c.RunID, blobstore.ErrExists)
		}
		return fmt.Errorf("s3: commit batch %d: %w", c.Batch, err)
	}
	return nil
}

// Lookup implements blobstore.Ledger.
func (l *DDBLedger) Lookup(ctx context.Context, runID string, batch int64) (blobstore.Commit, error) {
	resp, err := l.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(l.table),
		Key: map[string]types.AttributeValue{
			attrRun:   &types.AttributeValueMemberS{Value: runID},
			attrBatch: &types.AttributeValueMemberN{Value: strconv.FormatInt(batch, 10)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return blobstore.Commit{}, fmt.Errorf("s3: lookup batch %d: %w", batch, err)
	}
	if len(resp.Item) == 0 {
		return blobstore.Commit{}, blobstore.ErrNotFound
	}
	return decodeCommit(resp.Item)
}

// Commits implements blobstore.Ledger. Results come back in sort-key order.
func (l *DDBLedger) Commits(ctx context.Context, runID string) ([]blobstore.Commit, error) {
	var out []blobstore.Commit

	paginator := dynamodb.NewQueryPaginator(l.client, &dynamodb.QueryInput{
		TableName:              aws.String(l.table),
		KeyConditionExpression: aws.String("#r = :run"),
		ExpressionAttributeNames: map[string]string{
			"#r": attrRun,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":run": &types.AttributeValueMemberS{Value: runID},
		},
		ConsistentRead:   aws.Bool(true),
		ScanIndexForward: aws.Bool(true),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: query run %s: %w", runID, err)
		}
		for _, item := range page.Items {
			c, err := decodeCommit(item)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func decodeCommit(item map[string]types.AttributeValue) (blobstore.Commit, error) {
	var c blobstore.Commit
	var err error

	if c.RunID, err = stringAttr(item, attrRun); err != nil {
		return c, err
	}
	if c.Blob, err = stringAttr(item, attrBlob); err != nil {
		return c, err
	}
	if c.Batch, err = intAttr(item, attrBatch); err != nil {
		return c, err
	}
	if c.Rows, err = intAttr(item, attrRows); err != nil {
		return c, err
	}
	created, err := stringAttr(item, attrCreatedAt)
	if err != nil {
		return c, err
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return c, fmt.Errorf("s3: invalid %s attribute: %w", attrCreatedAt, err)
	}
	return c, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) (string, error) {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("s3: invalid %s attribute in DynamoDB", name)
	}
	return v.Value, nil
}

func intAttr(item map[string]types.AttributeValue, name string) (int64, error) {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("s3: invalid %s attribute in DynamoDB", name)
	}
	n, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("s3: parse %s: %w", name, err)
	}
	return n, nil
}
