// Package stream turns DynamoDB Streams events from index tables into typed
// record changes.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/jacentio/persistence/schema"
	"github.com/jacentio/persistence/store"
)

// Op is the kind of change a stream record describes.
type Op string

const (
	OpInsert Op = "insert"
	OpModify Op = "modify"
	OpRemove Op = "remove"
)

// Change is one decoded document change.
type Change struct {
	Op      Op
	Index   string
	ID      string
	Version int64

	// Record is the document after the change. Nil for OpRemove.
	Record *store.Record

	// Previous is the document before the change, when the stream view carries it.
	Previous *store.Record

	SequenceNumber string
}

// Sink receives decoded changes, e.g. to feed a search index.
type Sink interface {
	Apply(ctx context.Context, change Change) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, change Change) error

// Apply calls f.
func (f SinkFunc) Apply(ctx context.Context, change Change) error { return f(ctx, change) }

// Handler processes DynamoDB stream events for registered indexes.
type Handler struct {
	registry *store.Registry
	sink     Sink
	logger   *slog.Logger
}

// NewHandler creates a new stream handler. A nil sink logs every change.
func NewHandler(registry *store.Registry, sink Sink, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = store.NewRegistry()
	}
	h := &Handler{
		registry: registry,
		sink:     sink,
		logger:   logger,
	}
	if h.sink == nil {
		h.sink = SinkFunc(h.logChange)
	}
	return h
}

// HandleChanges decodes every record of the event and hands it to the sink.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleChanges(ctx context.Context, event events.DynamoDBEvent) error {
	applied := 0
	for _, record := range event.Records {
		ok, err := h.processRecord(ctx, record)
		if err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
		if ok {
			applied++
		}
	}
	if len(event.Records) > 0 {
		h.logger.Info("processed change batch",
			"records", len(event.Records),
			"applied", applied,
		)
	}
	return nil
}

// processRecord decodes a single stream record. It reports whether a change was applied.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) (bool, error) {
	var op Op
	switch record.EventName {
	case "INSERT":
		op = OpInsert
	case "MODIFY":
		op = OpModify
	case "REMOVE":
		op = OpRemove
	default:
		return false, nil
	}

	index := TableName(record.EventSourceArn)
	s, ok := h.registry.Lookup(index)
	if !ok {
		h.logger.Debug("skipping record of unregistered index", "index", index, "eventID", record.EventID)
		return false, nil
	}

	change := Change{
		Op:             op,
		Index:          index,
		ID:             getStringAttr(record.Change.Keys, schema.FieldID),
		SequenceNumber: record.Change.SequenceNumber,
	}

	current, err := decodeImage(s, record.Change.NewImage)
	if err != nil {
		return false, fmt.Errorf("decode new image of %s/%s: %w", index, change.ID, err)
	}
	previous, err := decodeImage(s, record.Change.OldImage)
	if err != nil {
		return false, fmt.Errorf("decode old image of %s/%s: %w", index, change.ID, err)
	}
	if op != OpRemove {
		change.Record = current
	}
	change.Previous = previous

	switch {
	case change.Record != nil:
		change.Version = change.Record.Version()
	case previous != nil:
		change.Version = previous.Version()
	}
	if change.ID == "" {
		if change.Record != nil {
			change.ID = change.Record.ID()
		} else if previous != nil {
			change.ID = previous.ID()
		}
	}

	if err := h.sink.Apply(ctx, change); err != nil {
		return false, fmt.Errorf("apply %s of %s/%s: %w", op, index, change.ID, err)
	}
	return true, nil
}

func (h *Handler) logChange(_ context.Context, change Change) error {
	h.logger.Info("document changed",
		"op", string(change.Op),
		"index", change.Index,
		"id", change.ID,
		"version", change.Version,
	)
	return nil
}

// TableName extracts the table name from a stream ARN of the form
// arn:aws:dynamodb:region:account:table/NAME/stream/LABEL.
func TableName(arn string) string {
	_, rest, ok := strings.Cut(arn, ":table/")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}

// decodeImage builds a Persisted record from a stream image. An empty image yields nil.
func decodeImage(s *schema.Schema, image map[string]events.DynamoDBAttributeValue) (*store.Record, error) {
	if len(image) == 0 {
		return nil, nil
	}
	source := convertImage(image)
	delete(source, schema.FieldID)
	delete(source, schema.FieldVersion)
	delete(source, schema.FieldType)

	return store.Load(s, &store.Document{
		ID:      getStringAttr(image, schema.FieldID),
		Version: getNumberAttr(image, schema.FieldVersion),
		Source:  source,
	})
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// getNumberAttr extracts a number attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) int64 {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			n, _ := strconv.ParseInt(v.Number(), 10, 64)
			return n
		}
	}
	return 0
}

// convertImage converts a stream image into the store representation used by
// store.Document. Numbers keep their decimal text as attributevalue.Number.
func convertImage(image map[string]events.DynamoDBAttributeValue) map[string]any {
	result := make(map[string]any, len(image))
	for k, v := range image {
		result[k] = convertValue(v)
	}
	return result
}

func convertValue(v events.DynamoDBAttributeValue) any {
	switch v.DataType() {
	case events.DataTypeString:
		return v.String()
	case events.DataTypeNumber:
		return attributevalue.Number(v.Number())
	case events.DataTypeBoolean:
		return v.Boolean()
	case events.DataTypeBinary:
		return v.Binary()
	case events.DataTypeList:
		list := v.List()
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = convertValue(item)
		}
		return out
	case events.DataTypeMap:
		return convertImage(v.Map())
	case events.DataTypeStringSet:
		return v.StringSet()
	case events.DataTypeNumberSet:
		set := v.NumberSet()
		out := make([]any, len(set))
		for i, n := range set {
			out[i] = attributevalue.Number(n)
		}
		return out
	case events.DataTypeBinarySet:
		return v.BinarySet()
	}
	return nil
}
