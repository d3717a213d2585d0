// Package dynamo implements store.Client on Amazon DynamoDB.
//
// Each index is a table keyed by the string attribute "_id". Documents are
// stored as flat items next to the managed attributes "_version" and "_type".
// Versions are bumped in the same write as the change they describe; updates
// are conditional on the expected version and increments use the atomic ADD
// action, so concurrent writers never lose increments.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/persistence/schema"
	"github.com/jacentio/persistence/store"
)

// API is the subset of *dynamodb.Client used by Client.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Client is a store.Client backed by DynamoDB. Safe for concurrent use.
type Client struct {
	api    API
	config Config
}

var _ store.Client = (*Client)(nil)

// New creates a new Client.
func New(api API, config Config) *Client {
	config.validate()
	return &Client{
		api:    api,
		config: config,
	}
}

// Get reads a document with a strongly consistent read.
func (c *Client) Get(ctx context.Context, key store.Key) (*store.Document, error) {
	result, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(key.Index),
		Key:            documentKey(key.ID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if result.Item == nil {
		return nil, store.ErrNotFound
	}
	if key.Type != "" && itemType(result.Item) != key.Type {
		return nil, store.ErrNotFound
	}
	return decodeItem(result.Item)
}

// Index writes a whole document; see store.Client.
func (c *Client) Index(ctx context.Context, key store.Key, source map[string]any) (*store.Document, error) {
	if key.ID == "" {
		return c.create(ctx, key, source)
	}
	return c.upsert(ctx, key, source)
}

// create puts a new document under a fresh id.
func (c *Client) create(ctx context.Context, key store.Key, source map[string]any) (*store.Document, error) {
	id := uuid.NewString()

	item, err := encodeFields(source)
	if err != nil {
		return nil, err
	}
	item[schema.FieldID] = &types.AttributeValueMemberS{Value: id}
	item[schema.FieldType] = &types.AttributeValueMemberS{Value: key.Type}
	item[schema.FieldVersion] = &types.AttributeValueMemberN{Value: "1"}

	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(key.Index),
		Item:                     item,
		ConditionExpression:      aws.String(DocumentAbsentCondition()),
		ExpressionAttributeNames: map[string]string{"#id": schema.FieldID},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, fmt.Errorf("%w: id %s already taken", store.ErrVersionConflict, id)
		}
		return nil, err
	}

	body := make(map[string]any, len(source))
	for k, v := range source {
		body[k] = v
	}
	return &store.Document{ID: id, Version: 1, Source: body}, nil
}

// upsert creates or replaces the document under key.ID, keeping a stored created_at
// and bumping the version in the same write.
func (c *Client) upsert(ctx context.Context, key store.Key, source map[string]any) (*store.Document, error) {
	fields := make(map[string]any, len(source))
	for k, v := range source {
		if k != schema.FieldCreatedAt {
			fields[k] = v
		}
	}
	attrs, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}
	createdAt, err := attributevalue.Marshal(source[schema.FieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("marshal created_at: %w", err)
	}

	exprNames := map[string]string{
		"#version":    schema.FieldVersion,
		"#type":       schema.FieldType,
		"#created_at": schema.FieldCreatedAt,
	}
	exprValues := map[string]types.AttributeValue{
		":type":       &types.AttributeValueMemberS{Value: key.Type},
		":created_at": createdAt,
		":zero":       &types.AttributeValueMemberN{Value: "0"},
		":one":        &types.AttributeValueMemberN{Value: "1"},
	}
	clauses := setClauses(attrs, exprNames, exprValues)
	clauses = append(clauses,
		"#type = :type",
		"#created_at = if_not_exists(#created_at, :created_at)",
		"#version = if_not_exists(#version, :zero) + :one",
	)

	result, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(key.Index),
		Key:                       documentKey(key.ID),
		UpdateExpression:          aws.String("SET " + joinStrings(clauses, ", ")),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, err
	}
	return decodeItem(result.Attributes)
}

// Update merges fields into the document if its version equals expectedVersion.
func (c *Client) Update(ctx context.Context, key store.Key, fields map[string]any, expectedVersion int64) (*store.Document, error) {
	attrs, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}

	exprNames := managedNames()
	exprValues := mergeExprValues(bumpValues(), map[string]types.AttributeValue{
		":expected_version": &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion, 10)},
	})
	clauses := setClauses(attrs, exprNames, exprValues)
	clauses = append(clauses, "#version = #version + :one")

	result, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(key.Index),
		Key:                                 documentKey(key.ID),
		UpdateExpression:                    aws.String("SET " + joinStrings(clauses, ", ")),
		ConditionExpression:                 aws.String(VersionCondition()),
		ExpressionAttributeNames:            exprNames,
		ExpressionAttributeValues:           exprValues,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			// ALL_OLD is empty when the item does not exist at all
			if len(condErr.Item) == 0 {
				return nil, store.ErrNotFound
			}
			return nil, store.ErrVersionConflict
		}
		return nil, err
	}
	return decodeItem(result.Attributes)
}

// Increment adds by to field with the atomic ADD action, setting fields in the same write.
func (c *Client) Increment(ctx context.Context, key store.Key, field string, by int64, fields map[string]any) (*store.Document, error) {
	attrs, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}

	exprNames := mergeExprNames(managedNames(), map[string]string{"#counter": field})
	exprValues := mergeExprValues(bumpValues(), map[string]types.AttributeValue{
		":by": &types.AttributeValueMemberN{Value: strconv.FormatInt(by, 10)},
	})
	updateExpr := "ADD #counter :by, #version :one"
	if clauses := setClauses(attrs, exprNames, exprValues); len(clauses) > 0 {
		updateExpr += " SET " + joinStrings(clauses, ", ")
	}

	result, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(key.Index),
		Key:                       documentKey(key.ID),
		UpdateExpression:          aws.String(updateExpr),
		ConditionExpression:       aws.String(DocumentExistsCondition()),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return decodeItem(result.Attributes)
}

// Delete removes the document, failing with store.ErrNotFound if it is absent.
func (c *Client) Delete(ctx context.Context, key store.Key) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(key.Index),
		Key:                      documentKey(key.ID),
		ConditionExpression:      aws.String(DocumentExistsCondition()),
		ExpressionAttributeNames: map[string]string{"#id": schema.FieldID},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

// IndexExists reports whether the index table exists.
func (c *Client) IndexExists(ctx context.Context, name string) (bool, error) {
	_, err := c.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateIndex creates the index table, waits until it is active and, if a
// SchemaTable is configured, records the settings and mapping it was created from.
// DynamoDB has no server-side mapping, so the mapping is informational.
func (c *Client) CreateIndex(ctx context.Context, name string, settings, mapping map[string]any) error {
	_, err := c.api.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(schema.FieldID), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(schema.FieldID), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: c.config.BillingMode,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("create table %s: %w", name, err)
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(c.api)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	}, c.config.TableWaitTimeout); err != nil {
		return fmt.Errorf("wait for table %s: %w", name, err)
	}

	if c.config.SchemaTable == "" {
		return nil
	}
	return c.putIndexMetadata(ctx, IndexMetadata{
		Name:      name,
		Settings:  settings,
		Mapping:   mapping,
		CreatedAt: schema.FormatTime(time.Now()),
	})
}

// IndexMetadata is the record kept in the SchemaTable for each created index.
type IndexMetadata struct {
	Name      string         `dynamodbav:"name"`
	Settings  map[string]any `dynamodbav:"settings"`
	Mapping   map[string]any `dynamodbav:"mapping"`
	CreatedAt string         `dynamodbav:"created_at"`
}

func (c *Client) putIndexMetadata(ctx context.Context, meta IndexMetadata) error {
	item, err := attributevalue.MarshalMap(meta)
	if err != nil {
		return fmt.Errorf("marshal index metadata: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.config.SchemaTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("record index %s: %w", meta.Name, err)
	}
	return nil
}

// IndexMetadata reads what was recorded for an index by CreateIndex.
func (c *Client) IndexMetadata(ctx context.Context, name string) (*IndexMetadata, error) {
	if c.config.SchemaTable == "" {
		return nil, fmt.Errorf("dynamo: no schema table configured")
	}
	result, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.config.SchemaTable),
		Key:            map[string]types.AttributeValue{"name": &types.AttributeValueMemberS{Value: name}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, store.ErrNotFound
	}
	var meta IndexMetadata
	if err := attributevalue.UnmarshalMap(result.Item, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal index metadata: %w", err)
	}
	return &meta, nil
}
