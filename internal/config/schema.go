package config

// definitionSchema is the JSON schema every rotor.yaml must satisfy before
// the typed parse runs. Provider-specific keys under secret.store are left
// open: each store type validates its own config at construction.
const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["store"],
  "properties": {
    "version": {"type": "integer"},
    "store": {
      "type": "object",
      "required": ["endpoint", "database", "collection"],
      "properties": {
        "endpoint": {"type": "string", "minLength": 1},
        "database": {"type": "string", "minLength": 1},
        "collection": {"type": "string", "minLength": 1},
        "timeout_ms": {"type": "integer", "minimum": 0}
      },
      "additionalProperties": false
    },
    "secret": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "value": {"type": "string"},
        "store": {
          "type": "object",
          "required": ["type"],
          "properties": {
            "type": {"type": "string", "minLength": 1},
            "timeout_ms": {"type": "integer", "minimum": 0}
          }
        }
      },
      "additionalProperties": false
    },
    "rotation": {
      "type": "object",
      "properties": {
        "interval_seconds": {"type": "integer", "minimum": 0},
        "max_attempts": {"type": "integer", "minimum": 0}
      },
      "additionalProperties": false
    }
  },
  "additionalProperties": false
}`
