package dynamostore

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/goforj/favorites/favcore"
	"github.com/goforj/favorites/favtest"
)

type dynStub struct {
	items map[string]map[string]types.AttributeValue

	exists       bool
	describeErrs []error
	createErrs   []error
	describeHits int
	createHits   int

	getErr    error
	putErr    error
	deleteErr error
	scanErr   error
	batchErr  error

	// putCondErr fails every conditional put, as when a concurrent writer
	// keeps winning the race.
	putCondErr error
	// raceOnPut makes one conditional put lose to a planted concurrent write.
	raceOnPut bool

	pageSize        int
	batchWriteSizes []int
}

func newDynStub() *dynStub { return &dynStub{items: map[string]map[string]types.AttributeValue{}} }

func (d *dynStub) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if d.getErr != nil {
		return nil, d.getErr
	}
	pk := in.Key["pk"].(*types.AttributeValueMemberS).Value
	item, ok := d.items[pk]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (d *dynStub) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if d.putErr != nil {
		return nil, d.putErr
	}
	pk := in.Item["pk"].(*types.AttributeValueMemberS).Value
	if in.ConditionExpression != nil {
		if d.putCondErr != nil {
			return nil, d.putCondErr
		}
		if d.raceOnPut {
			d.raceOnPut = false
			d.items[pk] = in.Item
			return nil, &types.ConditionalCheckFailedException{}
		}
		if _, taken := d.items[pk]; taken {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	d.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (d *dynStub) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if d.deleteErr != nil {
		return nil, d.deleteErr
	}
	pk := in.Key["pk"].(*types.AttributeValueMemberS).Value
	if in.ConditionExpression != nil {
		if _, ok := d.items[pk]; !ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	delete(d.items, pk)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (d *dynStub) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if d.batchErr != nil {
		return nil, d.batchErr
	}
	for _, writes := range in.RequestItems {
		d.batchWriteSizes = append(d.batchWriteSizes, len(writes))
		for _, wr := range writes {
			if dr := wr.DeleteRequest; dr != nil {
				pk := dr.Key["pk"].(*types.AttributeValueMemberS).Value
				delete(d.items, pk)
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (d *dynStub) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if d.scanErr != nil {
		return nil, d.scanErr
	}
	var ns string
	if in.FilterExpression != nil {
		if v, ok := in.ExpressionAttributeValues[":ns"].(*types.AttributeValueMemberS); ok {
			ns = v.Value
		}
	}
	pks := make([]string, 0, len(d.items))
	for pk, item := range d.items {
		if ns != "" {
			attr, ok := item["ns"].(*types.AttributeValueMemberS)
			if !ok || attr.Value != ns {
				continue
			}
		}
		pks = append(pks, pk)
	}
	sort.Strings(pks)

	start := 0
	if after, ok := in.ExclusiveStartKey["pk"].(*types.AttributeValueMemberS); ok {
		for i, pk := range pks {
			if pk == after.Value {
				start = i + 1
				break
			}
		}
	}
	end := len(pks)
	var lastKey map[string]types.AttributeValue
	if d.pageSize > 0 && start+d.pageSize < end {
		end = start + d.pageSize
		lastKey = map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: pks[end-1]}}
	}
	page := pks[start:end]

	out := &dynamodb.ScanOutput{Count: int32(len(page)), LastEvaluatedKey: lastKey}
	if in.Select != types.SelectCount {
		for _, pk := range page {
			out.Items = append(out.Items, d.items[pk])
		}
	}
	return out, nil
}

func (d *dynStub) CreateTable(context.Context, *dynamodb.CreateTableInput, ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	d.createHits++
	if len(d.createErrs) > 0 {
		err := d.createErrs[0]
		d.createErrs = d.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &dynamodb.CreateTableOutput{}, nil
}

func (d *dynStub) DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	d.describeHits++
	if len(d.describeErrs) > 0 {
		err := d.describeErrs[0]
		d.describeErrs = d.describeErrs[1:]
		if err != nil {
			return nil, err
		}
		return &dynamodb.DescribeTableOutput{}, nil
	}
	if d.exists {
		return &dynamodb.DescribeTableOutput{}, nil
	}
	return nil, &types.ResourceNotFoundException{}
}

func newStubStore(t *testing.T, prefix string) (favcore.Store, *dynStub) {
	t.Helper()
	stub := newDynStub()
	store, err := New(context.Background(), Config{
		BaseConfig: favcore.BaseConfig{Prefix: prefix},
		Client:     stub,
		Table:      "tbl",
	})
	if err != nil {
		t.Fatalf("store create failed: %v", err)
	}
	return store, stub
}

func TestDynamoStoreContract(t *testing.T) {
	store, _ := newStubStore(t, "contract")
	favtest.RunStoreContract(t, store, favtest.Options{CaseName: t.Name()})
}

func TestDynamoStoreDriverAndDefaults(t *testing.T) {
	stub := newDynStub()
	s, err := New(context.Background(), Config{Client: stub})
	if err != nil {
		t.Fatalf("store create failed: %v", err)
	}
	if s.Driver() != favcore.DriverDynamo {
		t.Fatalf("expected dynamodb driver, got %s", s.Driver())
	}
	impl, ok := s.(*store)
	if !ok {
		t.Fatalf("expected *store, got %T", s)
	}
	if impl.table != defaultTable {
		t.Fatalf("expected default table, got %q", impl.table)
	}
	if impl.prefix != favcore.DefaultPrefix {
		t.Fatalf("expected default prefix, got %q", impl.prefix)
	}
}

func TestDynamoSaveKeepsCreateTimeOnRename(t *testing.T) {
	store, _ := newStubStore(t, "p")
	ctx := context.Background()

	t0 := time.Date(2026, time.May, 5, 8, 0, 0, 0, time.UTC)
	if _, err := store.Save(ctx, favcore.Record{ID: 4, Name: "Before", CreatedAt: t0}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	second, err := store.Save(ctx, favcore.Record{ID: 4, Name: "After", CreatedAt: t0.Add(time.Hour)})
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if second.Name != "After" || !second.CreatedAt.Equal(t0) {
		t.Fatalf("expected rename with original create time, got %+v", second)
	}
	got, ok, err := store.Get(ctx, 4)
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if got.Name != "After" || !got.CreatedAt.Equal(t0) {
		t.Fatalf("unexpected stored record: %+v", got)
	}
}

func TestDynamoToggleRecoversFromConditionalRace(t *testing.T) {
	store, stub := newStubStore(t, "p")
	stub.raceOnPut = true

	// The conditional put loses once to a planted concurrent add; the second
	// pass lands on the delete branch.
	on, err := store.Toggle(context.Background(), favcore.Record{ID: 1, Name: "n"})
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if on {
		t.Fatalf("expected toggle to settle on removed after losing the add race")
	}
	if len(stub.items) != 0 {
		t.Fatalf("expected no items after settled toggle, got %d", len(stub.items))
	}
}

func TestDynamoToggleGivesUpWhenRaceKeepsWinning(t *testing.T) {
	store, stub := newStubStore(t, "p")
	stub.putCondErr = &types.ConditionalCheckFailedException{}

	if _, err := store.Toggle(context.Background(), favcore.Record{ID: 1, Name: "n"}); err == nil {
		t.Fatalf("expected toggle to give up after bounded attempts")
	}
}

func TestDynamoListAndCountFilterNamespace(t *testing.T) {
	stub := newDynStub()
	ctx := context.Background()
	mine, err := New(ctx, Config{BaseConfig: favcore.BaseConfig{Prefix: "mine"}, Client: stub, Table: "tbl"})
	if err != nil {
		t.Fatalf("store create failed: %v", err)
	}
	other, err := New(ctx, Config{BaseConfig: favcore.BaseConfig{Prefix: "other"}, Client: stub, Table: "tbl"})
	if err != nil {
		t.Fatalf("store create failed: %v", err)
	}

	if _, err := mine.Save(ctx, favcore.Record{ID: 1, Name: "a"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := other.Save(ctx, favcore.Record{ID: 1, Name: "b"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := other.Save(ctx, favcore.Record{ID: 2, Name: "c"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	recs, err := mine.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "a" {
		t.Fatalf("expected own namespace only, got %+v", recs)
	}
	if n, err := other.Count(ctx); err != nil || n != 2 {
		t.Fatalf("expected count 2 in other namespace: n=%d err=%v", n, err)
	}

	if err := mine.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if n, err := other.Count(ctx); err != nil || n != 2 {
		t.Fatalf("expected clear to leave other namespace: n=%d err=%v", n, err)
	}
}

func TestDynamoListFollowsScanPages(t *testing.T) {
	store, stub := newStubStore(t, "p")
	stub.pageSize = 2
	ctx := context.Background()

	t0 := time.Date(2026, time.May, 5, 8, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 5; i++ {
		rec := favcore.Record{ID: i, Name: "n", CreatedAt: t0.Add(time.Duration(i) * time.Second)}
		if _, err := store.Save(ctx, rec); err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
	}

	recs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("expected all pages listed, got %d", len(recs))
	}
	for i, want := range []int64{5, 4, 3, 2, 1} {
		if recs[i].ID != want {
			t.Fatalf("unexpected order at %d: got %d want %d", i, recs[i].ID, want)
		}
	}
	if n, err := store.Count(ctx); err != nil || n != 5 {
		t.Fatalf("expected paged count 5: n=%d err=%v", n, err)
	}
}

func TestDynamoClearBatchesOverLimit(t *testing.T) {
	stub := newDynStub()
	s := &store{client: stub, table: "tbl", prefix: "p"}
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		pk := "p#" + strconv.Itoa(i)
		stub.items[pk] = map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
			"ns": &types.AttributeValueMemberS{Value: "p"},
		}
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if len(stub.batchWriteSizes) != 3 {
		t.Fatalf("expected 3 batch writes for 60 items, got %v", stub.batchWriteSizes)
	}
	for _, size := range stub.batchWriteSizes {
		if size > batchDeleteSize {
			t.Fatalf("expected batches capped at %d, got %v", batchDeleteSize, stub.batchWriteSizes)
		}
	}
	if len(stub.items) != 0 {
		t.Fatalf("expected all items deleted, got %d", len(stub.items))
	}
}

func TestDynamoCorruptItemFailsReads(t *testing.T) {
	store, stub := newStubStore(t, "p")
	ctx := context.Background()

	stub.items["p#3"] = map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: "p#3"},
		"ns": &types.AttributeValueMemberS{Value: "p"},
		"id": &types.AttributeValueMemberS{Value: "3"},
	}
	if _, _, err := store.Get(ctx, 3); err == nil {
		t.Fatalf("expected get to surface malformed item")
	}
	if _, err := store.List(ctx); err == nil {
		t.Fatalf("expected list to surface malformed item")
	}

	stub.items["p#3"] = map[string]types.AttributeValue{
		"pk":         &types.AttributeValueMemberS{Value: "p#3"},
		"ns":         &types.AttributeValueMemberS{Value: "p"},
		"id":         &types.AttributeValueMemberN{Value: "3"},
		"name":       &types.AttributeValueMemberS{Value: "n"},
		"created_at": &types.AttributeValueMemberN{Value: "not-a-number"},
	}
	if _, _, err := store.Get(ctx, 3); err == nil {
		t.Fatalf("expected get to surface bad created_at")
	}
}

func TestDynamoClosedStoreErrors(t *testing.T) {
	store, _ := newStubStore(t, "p")
	ctx := context.Background()

	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := store.Ready(ctx); !errors.Is(err, favcore.ErrStoreClosed) {
		t.Fatalf("expected closed error from ready, got %v", err)
	}
	if _, err := store.List(ctx); !errors.Is(err, favcore.ErrStoreClosed) {
		t.Fatalf("expected closed error from list, got %v", err)
	}
	if _, err := store.Save(ctx, favcore.Record{ID: 1, Name: "n"}); !errors.Is(err, favcore.ErrStoreClosed) {
		t.Fatalf("expected closed error from save, got %v", err)
	}
}

func TestDynamoErrorPropagation(t *testing.T) {
	ctx := context.Background()
	rec := favcore.Record{ID: 1, Name: "n"}

	store, stub := newStubStore(t, "p")
	stub.getErr = errors.New("get boom")
	if _, err := store.Save(ctx, rec); err == nil {
		t.Fatalf("expected save to fail on read-back")
	}
	if _, _, err := store.Get(ctx, 1); err == nil {
		t.Fatalf("expected get error")
	}
	if _, err := store.IsFavorite(ctx, 1); err == nil {
		t.Fatalf("expected is favorite error")
	}

	store, stub = newStubStore(t, "p")
	stub.putErr = errors.New("put boom")
	if _, err := store.Save(ctx, rec); err == nil {
		t.Fatalf("expected save put error")
	}

	store, stub = newStubStore(t, "p")
	stub.deleteErr = errors.New("delete boom")
	if err := store.Remove(ctx, 1); err == nil {
		t.Fatalf("expected remove error")
	}
	if _, err := store.Toggle(ctx, rec); err == nil {
		t.Fatalf("expected toggle error")
	}

	store, stub = newStubStore(t, "p")
	stub.scanErr = errors.New("scan boom")
	if _, err := store.List(ctx); err == nil {
		t.Fatalf("expected list error")
	}
	if _, err := store.Count(ctx); err == nil {
		t.Fatalf("expected count error")
	}
	if err := store.Clear(ctx); err == nil {
		t.Fatalf("expected clear error")
	}

	store, stub = newStubStore(t, "p")
	if _, err := store.Save(ctx, rec); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}
	stub.batchErr = errors.New("batch boom")
	if err := store.Clear(ctx); err == nil {
		t.Fatalf("expected clear batch error")
	}
}
