package sdk

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/action_list.schema.json
var schemaFS embed.FS

const actionListSchemaURL = "action_list.schema.json"

var (
	contractOnce   sync.Once
	contractSchema *jsonschema.Schema
	contractErr    error
)

// ValidateListContract checks a list response against the published
// double-nested envelope. The returned error wraps ErrContractViolation.
func ValidateListContract(body []byte) error {
	schema, err := actionListContract()
	if err != nil {
		return err
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrContractViolation, err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrContractViolation, err)
	}
	return nil
}

func actionListContract() (*jsonschema.Schema, error) {
	contractOnce.Do(func() {
		raw, err := schemaFS.ReadFile("schema/" + actionListSchemaURL)
		if err != nil {
			contractErr = fmt.Errorf("read contract schema: %w", err)
			return
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			contractErr = fmt.Errorf("parse contract schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		compiler.DefaultDraft(jsonschema.Draft7)
		if err := compiler.AddResource(actionListSchemaURL, doc); err != nil {
			contractErr = fmt.Errorf("add contract schema: %w", err)
			return
		}

		contractSchema, contractErr = compiler.Compile(actionListSchemaURL)
	})
	return contractSchema, contractErr
}
