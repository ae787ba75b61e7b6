package generator

import (
	_ "embed"
	"encoding/json"
	"fmt"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed output_schema.json
var outputSchemaJSON []byte

var (
	outputSchema     *gojsonschema.Schema
	outputSchemaSpec llmsdk.JSONSchema
)

func init() {
	var err error
	outputSchema, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(outputSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("generator: compile output schema: %v", err))
	}
	if err := json.Unmarshal(outputSchemaJSON, &outputSchemaSpec); err != nil {
		panic(fmt.Sprintf("generator: decode output schema: %v", err))
	}
}

// validateShape checks a decoded response against the output schema and
// returns one message per violation.
func validateShape(payload []byte) ([]string, error) {
	res, err := outputSchema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, err
	}
	if res.Valid() {
		return nil, nil
	}
	problems := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		problems = append(problems, e.String())
	}
	return problems, nil
}
