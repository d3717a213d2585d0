// Command changefeed is an AWS Lambda function that decodes DynamoDB Streams
// events from index tables into typed records and logs every change.
//
// Schemas are read from the YAML files listed in PERSISTENCE_SCHEMAS, separated
// by commas. Each file is registered under its schema name unless prefixed
// with "table=".
//
//	PERSISTENCE_SCHEMAS=schemas/person.yaml,accounts=schemas/account.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/persistence/schema"
	"github.com/jacentio/persistence/store"
	"github.com/jacentio/persistence/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	registry, err := loadRegistry(os.Getenv("PERSISTENCE_SCHEMAS"))
	if err != nil {
		logger.Error("failed to load schemas", "error", err)
		os.Exit(1)
	}
	logger.Info("registered indexes", "indexes", registry.Indexes())

	h := stream.NewHandler(registry, nil, logger)
	lambda.Start(h.HandleChanges)
}

func loadRegistry(list string) (*store.Registry, error) {
	registry := store.NewRegistry()
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		table, path, bound := strings.Cut(entry, "=")
		if !bound {
			path = table
		}
		s, err := schema.LoadYAML(path)
		if err != nil {
			return nil, err
		}
		if !bound {
			table = s.Name()
		}
		registry.Register(table, s)
	}
	if len(registry.Indexes()) == 0 {
		return nil, fmt.Errorf("no schemas configured in PERSISTENCE_SCHEMAS")
	}
	return registry, nil
}
