package dynamo

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/persistence/schema"
	"github.com/jacentio/persistence/store"
)

// PK represents a DynamoDB primary key.
type PK map[string]types.AttributeValue

// documentKey returns the primary key of a document. Every index table is keyed by _id.
func documentKey(id string) PK {
	return PK{schema.FieldID: &types.AttributeValueMemberS{Value: id}}
}

// encodeFields converts store-representation values into DynamoDB attributes.
func encodeFields(fields map[string]any) (map[string]types.AttributeValue, error) {
	if len(fields) == 0 {
		return map[string]types.AttributeValue{}, nil
	}
	item, err := attributevalue.MarshalMap(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return item, nil
}

// decodeItem converts a DynamoDB item into a Document. Numbers decode as
// attributevalue.Number so integers keep full precision.
func decodeItem(raw map[string]types.AttributeValue) (*store.Document, error) {
	doc := &store.Document{}

	if v, ok := raw[schema.FieldID].(*types.AttributeValueMemberS); ok {
		doc.ID = v.Value
	}
	if av, present := raw[schema.FieldVersion]; present {
		v, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return nil, fmt.Errorf("decode document %s: %s is %T, not a number", doc.ID, schema.FieldVersion, av)
		}
		version, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode document %s: %s: %w", doc.ID, schema.FieldVersion, err)
		}
		doc.Version = version
	}

	source := make(map[string]any, len(raw))
	err := attributevalue.UnmarshalMapWithOptions(raw, &source, func(o *attributevalue.DecoderOptions) {
		o.UseNumber = true
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal document %s: %w", doc.ID, err)
	}
	delete(source, schema.FieldID)
	delete(source, schema.FieldVersion)
	delete(source, schema.FieldType)
	doc.Source = source

	return doc, nil
}

// itemType returns the document type recorded on an item.
func itemType(raw map[string]types.AttributeValue) string {
	if v, ok := raw[schema.FieldType].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
