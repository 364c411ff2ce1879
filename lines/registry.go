package lines

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/softi2c/logging"
)

// AttributeMap holds the model specific attributes of a line adapter.
type AttributeMap map[string]interface{}

// Validator is implemented by typed attribute structs.
type Validator interface {
	Validate(path string) error
}

// Constructor opens a line adapter from its decoded attributes.
type Constructor func(attrs interface{}, logger logging.Logger) (Lines, error)

// Registration describes a line adapter model.
type Registration struct {
	// Attributes returns a pointer to a zero attribute struct to decode into.
	Attributes  func() Validator
	Constructor Constructor
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Registration{}
)

// Register adds a model. It panics on duplicates, as registrations happen in init.
func Register(model string, reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[model]; ok {
		panic(errors.Errorf("line model %q already registered", model))
	}
	if reg.Attributes == nil || reg.Constructor == nil {
		panic(errors.Errorf("line model %q registered without attributes or constructor", model))
	}
	registry[model] = reg
}

// Lookup returns the registration of a model.
func Lookup(model string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[model]
	return reg, ok
}

// Models lists the registered models, sorted.
func Models() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	models := make([]string, 0, len(registry))
	for model := range registry {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// TransformAttributeMapToStruct decodes attrs into the struct pointed to by to, keyed by json tags.
func TransformAttributeMapToStruct(to interface{}, attrs AttributeMap) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           to,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(attrs)
}

// Config selects and configures a line adapter.
type Config struct {
	Model      string       `json:"model"`
	Attributes AttributeMap `json:"attributes,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	_, err := cfg.decode(path)
	return err
}

func (cfg *Config) decode(path string) (interface{}, error) {
	if cfg.Model == "" {
		return nil, goutils.NewConfigValidationFieldRequiredError(path, "model")
	}
	reg, ok := Lookup(cfg.Model)
	if !ok {
		return nil, goutils.NewConfigValidationError(path,
			errors.Errorf("unknown line model %q, expected one of %v", cfg.Model, Models()))
	}
	attrs := reg.Attributes()
	if err := TransformAttributeMapToStruct(attrs, cfg.Attributes); err != nil {
		return nil, goutils.NewConfigValidationError(fmt.Sprintf("%s.attributes", path), err)
	}
	if err := attrs.Validate(fmt.Sprintf("%s.attributes", path)); err != nil {
		return nil, err
	}
	return attrs, nil
}

// New opens the line adapter described by cfg.
func New(cfg Config, logger logging.Logger) (Lines, error) {
	attrs, err := cfg.decode("lines")
	if err != nil {
		return nil, err
	}
	reg, _ := Lookup(cfg.Model)
	l, err := reg.Constructor(attrs, logger.Sublogger(cfg.Model))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s lines", cfg.Model)
	}
	return l, nil
}
