// Package validation checks job variables against the activity registry's input schemas.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"spark-workers/internal/common/errors"
	"spark-workers/pkg/registry"

	"github.com/xeipuuv/gojsonschema"
)

// Validator holds compiled input schemas keyed by task type.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewValidator compiles every input schema in reg. Activities without a
// schema are accepted unchecked.
func NewValidator(reg *registry.ActivityRegistry) (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema)}
	if reg == nil {
		return v, nil
	}
	for _, a := range reg.Activities {
		if len(a.InputSchema) == 0 {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(a.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("compile input schema for %s: %w", a.TaskType, err)
		}
		v.schemas[a.TaskType] = schema
	}
	return v, nil
}

// Validate returns an INVALID_INPUT StandardError listing every violation.
// A nil Validator accepts everything.
func (v *Validator) Validate(taskType string, vars map[string]interface{}) error {
	if v == nil {
		return nil
	}
	schema, ok := v.schemas[taskType]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(vars))
	if err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("validate %s input: %v", taskType, err))
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	sort.Strings(msgs)
	return errors.NewInvalidInputError(strings.Join(msgs, "; "))
}
