package conn

import (
	rotorerrors "github.com/systmms/rotor/internal/errors"
)

// knownPrefixes are the entity-id namespaces the catalog shards: "tt" for
// titles and "nm" for names.
var knownPrefixes = map[string]bool{
	"tt": true,
	"nm": true,
}

// PartitionKey derives the routing key for an entity id of the form
// <two-letter prefix><digits>, total length greater than 5, where the prefix
// is one of the known namespaces. The key is the numeric suffix modulo 10,
// as a string. Pure and deterministic.
func PartitionKey(id string) (string, error) {
	if len(id) <= 5 {
		return "", rotorerrors.ValidationError{
			Field:   "id",
			Value:   id,
			Message: "id must be longer than 5 characters",
		}
	}

	prefix, digits := id[:2], id[2:]
	if !knownPrefixes[prefix] {
		return "", rotorerrors.ValidationError{
			Field:   "id",
			Value:   id,
			Message: "id prefix must be a known namespace",
		}
	}

	for _, c := range digits {
		if c < '0' || c > '9' {
			return "", rotorerrors.ValidationError{
				Field:   "id",
				Value:   id,
				Message: "id suffix must be numeric",
			}
		}
	}

	// Modulo 10 of a decimal number is its last digit, so suffixes of any
	// length stay in range.
	return digits[len(digits)-1:], nil
}
