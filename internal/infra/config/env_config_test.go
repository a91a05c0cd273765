package config_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/pigeonmsg/pigeond/internal/infra/config"
)

type testConfig struct {
	EnvConfig

	StringValue string `env:"STRING_VALUE" default:"default"`
	IntValue    int    `env:"INT_VALUE" default:"42"`
	BoolValue   bool   `env:"BOOL_VALUE" default:"true"`
	NoEnvTag    string
	Nested      testNestedConfig `envPrefix:"NESTED_"`
}

type testNestedConfig struct {
	NestedString string `env:"STRING" default:"nested-default"`
}

type requiredConfig struct {
	EnvConfig

	Required string `env:"REQUIRED_VALUE"`
}

//nolint:paralleltest
func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		envVars map[string]string
		want    testConfig
		wantErr bool
	}{
		{
			name:    "uses default values when env vars not set",
			prefix:  "",
			envVars: map[string]string{},
			want: testConfig{
				StringValue: "default",
				IntValue:    42,
				BoolValue:   true,
				Nested:      testNestedConfig{NestedString: "nested-default"},
			},
		},
		{
			name:   "reads values from environment",
			prefix: "",
			envVars: map[string]string{
				"STRING_VALUE":  "from-env",
				"INT_VALUE":     "7",
				"BOOL_VALUE":    "false",
				"NESTED_STRING": "nested-env",
			},
			want: testConfig{
				StringValue: "from-env",
				IntValue:    7,
				BoolValue:   false,
				Nested:      testNestedConfig{NestedString: "nested-env"},
			},
		},
		{
			name:   "applies namespace prefix",
			prefix: "PIGEON",
			envVars: map[string]string{
				"PIGEON_STRING_VALUE":  "namespaced",
				"PIGEON_NESTED_STRING": "namespaced-nested",
				"STRING_VALUE":         "ignored",
			},
			want: testConfig{
				StringValue: "namespaced",
				IntValue:    42,
				BoolValue:   true,
				Nested:      testNestedConfig{NestedString: "namespaced-nested"},
			},
		},
		{
			name:   "rejects invalid int",
			prefix: "",
			envVars: map[string]string{
				"INT_VALUE": "not-a-number",
			},
			wantErr: true,
		},
		{
			name:   "rejects invalid bool",
			prefix: "",
			envVars: map[string]string{
				"BOOL_VALUE": "not-a-bool",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			var cfg testConfig

			err := Parse(context.Background(), &cfg, tt.prefix)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				return
			}

			if cfg.StringValue != tt.want.StringValue {
				t.Errorf("StringValue = %q, want %q", cfg.StringValue, tt.want.StringValue)
			}
			if cfg.IntValue != tt.want.IntValue {
				t.Errorf("IntValue = %d, want %d", cfg.IntValue, tt.want.IntValue)
			}
			if cfg.BoolValue != tt.want.BoolValue {
				t.Errorf("BoolValue = %v, want %v", cfg.BoolValue, tt.want.BoolValue)
			}
			if cfg.Nested.NestedString != tt.want.Nested.NestedString {
				t.Errorf("Nested.NestedString = %q, want %q", cfg.Nested.NestedString, tt.want.Nested.NestedString)
			}
		})
	}
}

//nolint:paralleltest
func TestParse_RequiredVariable(t *testing.T) {
	var cfg requiredConfig

	err := Parse(context.Background(), &cfg, "")
	if !errors.Is(err, ErrVarNotSet) {
		t.Fatalf("Parse() error = %v, want ErrVarNotSet", err)
	}

	t.Setenv("REQUIRED_VALUE", "present")

	if err := Parse(context.Background(), &cfg, ""); err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}

	if cfg.Required != "present" {
		t.Errorf("Required = %q, want %q", cfg.Required, "present")
	}
}

func TestParse_RejectsNonStruct(t *testing.T) {
	t.Parallel()

	var notAStruct int

	if err := Parse(context.Background(), &notAStruct, ""); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Parse() error = %v, want ErrInvalidConfig", err)
	}
}
