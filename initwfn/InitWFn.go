// Package initwfn wraps Gorgonia weight initializers so that they can
// be serialized into experiment configuration files.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available
type Type string

// Available InitWFn types
const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	HeU      Type = "HeU"
	HeN      Type = "HeN"
	Gaussian Type = "Gaussian"
	Uniform  Type = "Uniform"
	Zeroes   Type = "Zeroes"
	Ones     Type = "Ones"
	Constant Type = "Constant"
)

// configTypes maps each InitWFn type to the concrete type of its Config
var configTypes = map[Type]reflect.Type{
	GlorotU:  reflect.TypeOf(GlorotUConfig{}),
	GlorotN:  reflect.TypeOf(GlorotNConfig{}),
	HeU:      reflect.TypeOf(HeUConfig{}),
	HeN:      reflect.TypeOf(HeNConfig{}),
	Gaussian: reflect.TypeOf(GaussianConfig{}),
	Uniform:  reflect.TypeOf(UniformConfig{}),
	Zeroes:   reflect.TypeOf(ZeroesConfig{}),
	Ones:     reflect.TypeOf(OnesConfig{}),
	Constant: reflect.TypeOf(ConstantConfig{}),
}

// InitWFn wraps Gorgonia InitWFn so that they can be JSON and YAML
// marshalled and unmarshalled. Configuration keys are matched case
// insensitively, so that configurations read through viper, which
// lower-cases all keys, can be decoded.
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) (*InitWFn, error) {
	init := InitWFn{Type: c.Type(), Config: c}
	init.initWFn = init.Config.Create()

	return &init, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.initWFn
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", i.Type, i.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(data)
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	i.Type = typeName
	i.Config = config
	i.initWFn = i.Config.Create()

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

	// Type names are also matched case insensitively
	var ty reflect.Type
	for t, configType := range configTypes {
		if strings.EqualFold(string(t), typeName) {
			typeName = string(t)
			ty = configType
			break
		}
	}
	if ty == nil {
		return nil, "", fmt.Errorf("no such InitWFn type %q", typeName)
	}

	value := reflect.New(ty).Interface()
	if raw := lookup(m, "Config"); raw != nil {
		if err := json.Unmarshal(raw, value); err != nil {
			return nil, "", err
		}
	}
	concreteValue := reflect.ValueOf(value).Elem().Interface().(Config)

	return concreteValue, Type(typeName), nil
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

// Config implements a Gorgonia InitWFn configuration and can be used to
// create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type
}
