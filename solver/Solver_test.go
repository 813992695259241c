package solver

import (
	"encoding/json"
	"testing"
)

func TestUnmarshalJSON(t *testing.T) {
	s, err := NewDefaultAdam(0.001, 32)
	if err != nil {
		t.Fatalf("newDefaultAdam: %v", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Solver
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != Adam || decoded.Config != s.Config {
		t.Errorf("unmarshal:\n\twant(%v)\n\thave(%v)", s.Config,
			decoded.Config)
	}
	if decoded.Solver == nil {
		t.Error("unmarshal: gorgonia solver should be set")
	}
	if decoded.BatchSize() != 32 {
		t.Errorf("batch size:\n\twant(%v)\n\thave(%v)", 32,
			decoded.BatchSize())
	}
}

func TestUnmarshalLowerCaseKeys(t *testing.T) {
	data := []byte(`{"type": "vanilla", "config": {"stepsize": 0.1, ` +
		`"batchsize": 8, "clip": 1}}`)

	var decoded Solver
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := VanillaConfig{StepSize: 0.1, Batch: 8, Clip: 1}
	if decoded.Type != Vanilla || decoded.Config != want {
		t.Errorf("unmarshal:\n\twant(%v)\n\thave(%v)", want, decoded.Config)
	}
}

func TestUnmarshalAdamLowerCaseKeys(t *testing.T) {
	data := []byte(`{"type": "adam", "config": {"stepsize": 0.01, ` +
		`"epsilon": 0.00000001, "beta1": 0.9, "beta2": 0.999, ` +
		`"batchsize": 64}}`)

	var decoded Solver
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != Adam || decoded.BatchSize() != 64 {
		t.Errorf("unmarshal:\n\twant(%v, %v)\n\thave(%v, %v)", Adam, 64,
			decoded.Type, decoded.BatchSize())
	}
}

func TestValidate(t *testing.T) {
	if _, err := NewAdam(0.001, 1e-8, 0.9, 0.999, 0); err == nil {
		t.Error("newAdam: expected error for zero batch size")
	}
	if _, err := NewVanilla(-1, 8, 0); err == nil {
		t.Error("newVanilla: expected error for negative step size")
	}

	var decoded Solver
	data := []byte(`{"Type": "Adam", "Config": {"StepSize": 0}}`)
	if err := json.Unmarshal(data, &decoded); err == nil {
		t.Error("unmarshal: expected error for invalid config")
	}
}
