package realtime

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

var payloadSchemas = map[EventKind]string{
	KindPong: `{
		"type": "object",
		"properties": {
			"timestamp": {"type": ["integer", "null"]}
		}
	}`,
	KindChatMessage: `{
		"type": "object",
		"required": ["message"],
		"properties": {
			"message": {"type": "string"},
			"user_id": {"type": ["string", "null"]}
		}
	}`,
	KindTaskStatusUpdate: `{
		"type": "object",
		"required": ["task_id", "new_status"],
		"properties": {
			"task_id": {"type": "string", "minLength": 1},
			"new_status": {"type": "string", "minLength": 1},
			"assignee_id": {"type": ["string", "null"]}
		}
	}`,
	KindTaskAssignmentUpdate: `{
		"type": "object",
		"required": ["task_id"],
		"properties": {
			"task_id": {"type": "string", "minLength": 1},
			"assignee_id": {"type": ["string", "null"]},
			"assigned_by": {"type": ["string", "null"]}
		}
	}`,
	KindServerError: `{
		"type": "object",
		"properties": {
			"message": {"type": "string"}
		}
	}`,
}

var (
	compileOnce     sync.Once
	compiledSchemas map[EventKind]*gojsonschema.Schema
	compileErr      error
)

func schemas() (map[EventKind]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled := make(map[EventKind]*gojsonschema.Schema, len(payloadSchemas))
		for kind, raw := range payloadSchemas {
			schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
			if err != nil {
				compileErr = fmt.Errorf("failed to compile %s schema: %w", kind, err)
				return
			}
			compiled[kind] = schema
		}
		compiledSchemas = compiled
	})
	return compiledSchemas, compileErr
}

// validatePayload checks body against the schema registered for kind.
// Kinds without a schema are accepted as-is.
func validatePayload(kind EventKind, body []byte) error {
	all, err := schemas()
	if err != nil {
		return err
	}
	schema, ok := all[kind]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
