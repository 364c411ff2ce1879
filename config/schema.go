package config

import (
	"github.com/invopop/jsonschema"

	"go.viam.com/softi2c/lines"
)

// Schema describes the config file. Line adapter attributes are model specific, see
// LineModelSchemas.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}

// LineModelSchemas describes the attributes of every registered line adapter model.
func LineModelSchemas() map[string]*jsonschema.Schema {
	schemas := map[string]*jsonschema.Schema{}
	for _, model := range lines.Models() {
		reg, ok := lines.Lookup(model)
		if !ok {
			continue
		}
		schemas[model] = jsonschema.Reflect(reg.Attributes())
	}
	return schemas
}
