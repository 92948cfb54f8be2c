package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/goforj/favorites/favcore"
)

const (
	defaultRegion = "us-east-1"
	defaultTable  = "favorites"

	ensureTableMaxAttempts = 20
	ensureTableRetryDelay  = 150 * time.Millisecond

	// batchDeleteSize is the BatchWriteItem request ceiling.
	batchDeleteSize = 25

	// toggleMaxAttempts bounds the conditional-write loop when a concurrent
	// writer flips the same record between our delete and put.
	toggleMaxAttempts = 2
)

// Config configures a DynamoDB-backed favorites store.
type Config struct {
	favcore.BaseConfig
	Client   DynamoAPI
	Endpoint string
	Region   string
	Table    string
}

// DynamoAPI captures the subset of DynamoDB client methods used by the store.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type store struct {
	client DynamoAPI
	table  string
	prefix string
	closed atomic.Bool
}

// New builds a DynamoDB-backed favcore.Store.
//
// Items carry pk "<prefix>#<id>", the record fields, and an ns attribute (the
// prefix) so Scan-based operations stay inside their namespace.
//
// Defaults:
// - Region: "us-east-1" when empty
// - Table: "favorites" when empty
// - Prefix: "favorites" when empty
// - Client: auto-created when nil (uses Region and optional Endpoint)
// - Endpoint: empty by default (normal AWS endpoint resolution)
//
// Example: dynamodb-local via explicit driver config
//
//	ctx := context.Background()
//	store, err := dynamostore.New(ctx, dynamostore.Config{
//		Region:   "us-east-1",
//		Endpoint: "http://127.0.0.1:8000",
//		Table:    "favorites",
//	})
//	if err != nil {
//		panic(err)
//	}
func New(ctx context.Context, cfg Config) (favcore.Store, error) {
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	if cfg.Table == "" {
		cfg.Table = defaultTable
	}
	if cfg.Prefix == "" {
		cfg.Prefix = favcore.DefaultPrefix
	}
	if cfg.Client == nil {
		client, err := newClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		cfg.Client = client
	}
	if err := ensureTable(ctx, cfg.Client, cfg.Table); err != nil {
		return nil, err
	}
	return &store{
		client: cfg.Client,
		table:  cfg.Table,
		prefix: cfg.Prefix,
	}, nil
}

func newClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")),
	)
	if err != nil {
		return nil, err
	}
	if cfg.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: cfg.Endpoint, HostnameImmutable: true}, nil
		})
		if _, err := resolver.ResolveEndpoint("dynamodb", cfg.Region); err != nil {
			return nil, err
		}
		awsCfg.EndpointResolverWithOptions = resolver
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

func (s *store) Driver() favcore.Driver { return favcore.DriverDynamo }

func (s *store) Ready(ctx context.Context) error {
	if s.closed.Load() {
		return favcore.ErrStoreClosed
	}
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err != nil {
		return s.wrap("ready", err)
	}
	return nil
}

func (s *store) Save(ctx context.Context, rec favcore.Record) (favcore.Record, error) {
	if s.closed.Load() {
		return favcore.Record{}, favcore.ErrStoreClosed
	}
	if err := rec.Validate(); err != nil {
		return favcore.Record{}, err
	}
	rec = favcore.Stamp(rec, time.Now())
	existing, ok, err := s.Get(ctx, rec.ID)
	if err != nil {
		return favcore.Record{}, err
	}
	if ok {
		rec.CreatedAt = existing.CreatedAt
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      s.itemFor(rec),
	}); err != nil {
		return favcore.Record{}, s.wrap("save", err)
	}
	return rec, nil
}

func (s *store) Remove(ctx context.Context, id int64) error {
	if s.closed.Load() {
		return favcore.ErrStoreClosed
	}
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.keyFor(id),
	})
	if err != nil {
		return s.wrap("remove", err)
	}
	return nil
}

func (s *store) Toggle(ctx context.Context, rec favcore.Record) (bool, error) {
	if s.closed.Load() {
		return false, favcore.ErrStoreClosed
	}
	if err := rec.Validate(); err != nil {
		return false, err
	}
	var lastErr error
	for attempt := 0; attempt < toggleMaxAttempts; attempt++ {
		// Remove wins when the item exists; otherwise the conditional put
		// performs the add. Each branch is atomic on the item.
		_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:           aws.String(s.table),
			Key:                 s.keyFor(rec.ID),
			ConditionExpression: aws.String("attribute_exists(pk)"),
		})
		if err == nil {
			return false, nil
		}
		var cce *types.ConditionalCheckFailedException
		if !errors.As(err, &cce) {
			return false, s.wrap("toggle", err)
		}

		stamped := favcore.Stamp(rec, time.Now())
		_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(s.table),
			Item:                s.itemFor(stamped),
			ConditionExpression: aws.String("attribute_not_exists(pk)"),
		})
		if err == nil {
			return true, nil
		}
		if !errors.As(err, &cce) {
			return false, s.wrap("toggle", err)
		}
		// A concurrent writer added the record between our two conditionals;
		// the next pass lands on the delete branch.
		lastErr = err
	}
	return false, s.wrap("toggle", lastErr)
}

func (s *store) IsFavorite(ctx context.Context, id int64) (bool, error) {
	if s.closed.Load() {
		return false, favcore.ErrStoreClosed
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.table),
		Key:                  s.keyFor(id),
		ProjectionExpression: aws.String("pk"),
	})
	if err != nil {
		return false, s.wrap("is_favorite", err)
	}
	return len(out.Item) > 0, nil
}

func (s *store) Get(ctx context.Context, id int64) (favcore.Record, bool, error) {
	if s.closed.Load() {
		return favcore.Record{}, false, favcore.ErrStoreClosed
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       s.keyFor(id),
	})
	if err != nil {
		return favcore.Record{}, false, s.wrap("get", err)
	}
	if len(out.Item) == 0 {
		return favcore.Record{}, false, nil
	}
	rec, err := itemToRecord(out.Item)
	if err != nil {
		return favcore.Record{}, false, s.wrap("get", err)
	}
	return rec, true, nil
}

func (s *store) List(ctx context.Context) ([]favcore.Record, error) {
	if s.closed.Load() {
		return nil, favcore.ErrStoreClosed
	}
	recs := make([]favcore.Record, 0)
	var lastEvaluatedKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(s.table),
			FilterExpression:          aws.String("ns = :ns"),
			ExpressionAttributeValues: s.nsValues(),
			ExclusiveStartKey:         lastEvaluatedKey,
		})
		if err != nil {
			return nil, s.wrap("list", err)
		}
		for _, item := range out.Items {
			rec, err := itemToRecord(item)
			if err != nil {
				return nil, s.wrap("list", err)
			}
			recs = append(recs, rec)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		lastEvaluatedKey = out.LastEvaluatedKey
	}
	favcore.SortNewestFirst(recs)
	return recs, nil
}

func (s *store) Count(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, favcore.ErrStoreClosed
	}
	var total int64
	var lastEvaluatedKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(s.table),
			FilterExpression:          aws.String("ns = :ns"),
			ExpressionAttributeValues: s.nsValues(),
			Select:                    types.SelectCount,
			ExclusiveStartKey:         lastEvaluatedKey,
		})
		if err != nil {
			return 0, s.wrap("count", err)
		}
		total += int64(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		lastEvaluatedKey = out.LastEvaluatedKey
	}
}

func (s *store) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return favcore.ErrStoreClosed
	}
	var lastEvaluatedKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(s.table),
			FilterExpression:          aws.String("ns = :ns"),
			ExpressionAttributeValues: s.nsValues(),
			ProjectionExpression:      aws.String("pk"),
			ExclusiveStartKey:         lastEvaluatedKey,
		})
		if err != nil {
			return s.wrap("clear", err)
		}
		if err := s.batchDelete(ctx, out.Items); err != nil {
			return err
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		lastEvaluatedKey = out.LastEvaluatedKey
	}
}

func (s *store) batchDelete(ctx context.Context, items []map[string]types.AttributeValue) error {
	for start := 0; start < len(items); start += batchDeleteSize {
		end := start + batchDeleteSize
		if end > len(items) {
			end = len(items)
		}
		writes := make([]types.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			pk, ok := item["pk"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			writes = append(writes, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: pk.Value}},
				},
			})
		}
		if len(writes) == 0 {
			continue
		}
		_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.table: writes},
		})
		if err != nil {
			return s.wrap("clear", err)
		}
	}
	return nil
}

func (s *store) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *store) pk(id int64) string {
	return s.prefix + "#" + strconv.FormatInt(id, 10)
}

func (s *store) keyFor(id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: s.pk(id)}}
}

func (s *store) itemFor(rec favcore.Record) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"pk":         &types.AttributeValueMemberS{Value: s.pk(rec.ID)},
		"ns":         &types.AttributeValueMemberS{Value: s.prefix},
		"id":         &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.ID, 10)},
		"name":       &types.AttributeValueMemberS{Value: rec.Name},
		"created_at": &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.CreatedAt.UnixMilli(), 10)},
	}
	if rec.ImageURL != "" {
		item["image_url"] = &types.AttributeValueMemberS{Value: rec.ImageURL}
	}
	return item
}

func (s *store) nsValues() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{":ns": &types.AttributeValueMemberS{Value: s.prefix}}
}

func (s *store) wrap(op string, err error) error {
	return fmt.Errorf("favorites/%s: %s: %w", favcore.DriverDynamo, op, err)
}

func itemToRecord(item map[string]types.AttributeValue) (favcore.Record, error) {
	idAttr, ok := item["id"].(*types.AttributeValueMemberN)
	if !ok {
		return favcore.Record{}, errors.New("dynamodb item missing numeric id")
	}
	id, err := strconv.ParseInt(idAttr.Value, 10, 64)
	if err != nil {
		return favcore.Record{}, fmt.Errorf("dynamodb item id: %w", err)
	}
	nameAttr, ok := item["name"].(*types.AttributeValueMemberS)
	if !ok {
		return favcore.Record{}, errors.New("dynamodb item missing name")
	}
	createdAttr, ok := item["created_at"].(*types.AttributeValueMemberN)
	if !ok {
		return favcore.Record{}, errors.New("dynamodb item missing created_at")
	}
	createdMs, err := strconv.ParseInt(createdAttr.Value, 10, 64)
	if err != nil {
		return favcore.Record{}, fmt.Errorf("dynamodb item created_at: %w", err)
	}
	rec := favcore.Record{
		ID:        id,
		Name:      nameAttr.Value,
		CreatedAt: time.UnixMilli(createdMs).UTC(),
	}
	if imageAttr, ok := item["image_url"].(*types.AttributeValueMemberS); ok {
		rec.ImageURL = imageAttr.Value
	}
	return rec, nil
}

func ensureTable(ctx context.Context, client DynamoAPI, table string) error {
	var lastErr error
	for attempt := 1; attempt <= ensureTableMaxAttempts; attempt++ {
		_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
		if err == nil {
			return nil
		}

		var rnfe *types.ResourceNotFoundException
		if errors.As(err, &rnfe) {
			_, createErr := client.CreateTable(ctx, &dynamodb.CreateTableInput{
				TableName: aws.String(table),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
				},
				AttributeDefinitions: []types.AttributeDefinition{
					{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
				},
				BillingMode: types.BillingModePayPerRequest,
			})
			if createErr == nil {
				return nil
			}
			var inUse *types.ResourceInUseException
			if errors.As(createErr, &inUse) {
				return nil
			}
			if !isStartupRetryable(createErr) {
				return createErr
			}
			lastErr = createErr
		} else {
			if !isStartupRetryable(err) {
				return err
			}
			lastErr = err
		}

		if attempt == ensureTableMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ensureTableRetryDelay):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("dynamo table ensure failed")
	}
	return fmt.Errorf("ensure dynamo table %q: %w", table, lastErr)
}

func isStartupRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "request send failed") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "eof")
}
