package proposal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. validator.Validate caches
// struct metadata, so a single instance is reused across runs.
var validate = validator.New(validator.WithRequiredStructEnabled())

// SchemaError indicates that extracted JSON parsed but violates a stage
// record's constraints (missing required field, score out of range).
type SchemaError struct {
	Record string
	err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s failed schema validation: %v", e.Record, e.err)
}

func (e *SchemaError) Unwrap() error {
	return e.err
}

// IsSchemaError returns true if the error is a schema validation failure.
func IsSchemaError(err error) bool {
	var schema *SchemaError
	return errors.As(err, &schema)
}

// Decode converts an extracted JSON object into a typed stage record and
// validates its constraints. The map round-trips through encoding/json so
// field coercion follows the record's struct tags.
func Decode[T any](recordName string, data map[string]any) (*T, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, &SchemaError{Record: recordName, err: err}
	}

	var record T
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, &SchemaError{Record: recordName, err: err}
	}

	if err := validate.Struct(&record); err != nil {
		return nil, &SchemaError{Record: recordName, err: err}
	}

	return &record, nil
}

// ValidateProfile checks a user profile before it enters the workflow.
// Profiles come from the external intake boundary and must carry positive
// weekly hours and a positive timeline.
func ValidateProfile(p *UserProfile) error {
	if p == nil {
		return &SchemaError{Record: "user_profile", err: errors.New("profile is nil")}
	}
	if err := validate.Struct(p); err != nil {
		return &SchemaError{Record: "user_profile", err: err}
	}
	return nil
}
