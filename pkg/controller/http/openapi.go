package http

import (
	"context"
	_ "embed"
	"encoding/json"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed openapi.yaml
var openapiSpec []byte

// requestValidator checks JSON bodies against component schemas of openapi.yaml
type requestValidator struct {
	doc *openapi3.T
}

func newRequestValidator() (*requestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse openapi.yaml")
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, goerr.Wrap(err, "invalid openapi.yaml")
	}

	return &requestValidator{doc: doc}, nil
}

// Validate decodes body and validates it against the named schema
func (v *requestValidator) Validate(schemaName string, body []byte) error {
	ref, ok := v.doc.Components.Schemas[schemaName]
	if !ok || ref.Value == nil {
		return goerr.New("schema not found", goerr.V("schema", schemaName))
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return goerr.Wrap(err, "request body is not JSON", goerr.T(types.ErrTagInvalidRequest))
	}

	if err := ref.Value.VisitJSON(data, openapi3.MultiErrors()); err != nil {
		return goerr.Wrap(err, "request body does not match schema",
			goerr.T(types.ErrTagInvalidRequest),
			goerr.V("schema", schemaName),
		)
	}

	return nil
}
