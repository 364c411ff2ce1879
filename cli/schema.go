package cli

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/urfave/cli/v2"

	"go.viam.com/softi2c/config"
)

func (st *state) schemaAction(c *cli.Context) error {
	out := struct {
		Config *jsonschema.Schema            `json:"config"`
		Lines  map[string]*jsonschema.Schema `json:"lines"`
	}{
		Config: config.Schema(),
		Lines:  config.LineModelSchemas(),
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
