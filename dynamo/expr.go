package dynamo

import (
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/persistence/schema"
)

// DocumentExistsCondition returns the condition that the addressed document exists.
func DocumentExistsCondition() string {
	return "attribute_exists(#id)"
}

// DocumentAbsentCondition returns the condition that no document has the id yet.
func DocumentAbsentCondition() string {
	return "attribute_not_exists(#id)"
}

// VersionCondition returns the optimistic lock condition used by updates.
func VersionCondition() string {
	return "attribute_exists(#id) AND #version = :expected_version"
}

// managedNames returns expression attribute names for store-managed fields.
func managedNames() map[string]string {
	return map[string]string{
		"#id":      schema.FieldID,
		"#version": schema.FieldVersion,
	}
}

// bumpValues returns the expression values used to bump a document version.
func bumpValues() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}}
}

// setClauses adds one "#attrN = :valN" clause per field, in key order, and
// registers the placeholders in names and values.
func setClauses(fields map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	for i, k := range keys {
		nameKey := fmt.Sprintf("#attr%d", i)
		valueKey := fmt.Sprintf(":val%d", i)
		names[nameKey] = k
		values[valueKey] = fields[k]
		clauses = append(clauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}
	return clauses
}

// mergeExprNames merges multiple expression attribute name maps.
func mergeExprNames(maps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// mergeExprValues merges multiple expression attribute value maps.
func mergeExprValues(maps ...map[string]types.AttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// joinStrings joins strings with a separator (avoiding strings package import).
func joinStrings(strs []string, sep string) string {
	if len(strs) == 0 {
		return ""
	}
	result := strs[0]
	for _, s := range strs[1:] {
		result += sep + s
	}
	return result
}
