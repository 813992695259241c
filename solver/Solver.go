// Package solver wraps Gorgonia solvers so that they can be serialized
// into experiment configuration files.
package solver

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
)

// configTypes maps each solver type to the concrete type of its Config
var configTypes = map[Type]reflect.Type{
	Adam:    reflect.TypeOf(AdamConfig{}),
	Vanilla: reflect.TypeOf(VanillaConfig{}),
}

// Solver wraps Gorgonia Solvers so that they can be JSON and YAML
// marshalled and unmarshalled. Configuration keys are matched case
// insensitively.
type Solver struct {
	G.Solver `json:"-" yaml:"-"`
	Type
	Config
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newSolver: %v", err)
	}
	solver := Solver{Type: t, Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// BatchSize returns the batch size that gradients are averaged over
func (s *Solver) BatchSize() int {
	return s.Config.BatchSize()
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (s *Solver) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(data)
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	s.Type = typeName
	s.Config = config
	s.Solver = s.Config.Create()

	return nil
}

// unmarshalConfig uses reflection to unmarshall a Config into its
// concrete type. Both the Config and its Type are returned.
func unmarshalConfig(data []byte) (Config, Type, error) {
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	var typeName string
	if err := json.Unmarshal(lookup(m, "Type"), &typeName); err != nil {
		return nil, "", fmt.Errorf("could not decode type: %v", err)
	}

	var ty reflect.Type
	for t, configType := range configTypes {
		if strings.EqualFold(string(t), typeName) {
			typeName = string(t)
			ty = configType
			break
		}
	}
	if ty == nil {
		return nil, "", fmt.Errorf("no such solver type %q", typeName)
	}

	value := reflect.New(ty).Interface()
	if err := json.Unmarshal(lookup(m, "Config"), value); err != nil {
		return nil, "", fmt.Errorf("could not decode config: %v", err)
	}

	return reflect.ValueOf(value).Elem().Interface().(Config), Type(typeName),
		nil
}

// lookup returns the value of key in m, matching keys case
// insensitively
func lookup(m map[string]json.RawMessage, key string) json.RawMessage {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool

	Validate() error
	BatchSize() int
}
