package remoteconfig

import (
	"errors"
	"testing"
)

func TestValidateAllParams(t *testing.T) {
	if err := ValidateParams(AllParams); err != nil {
		t.Errorf("AllParams failed validation: %v", err)
	}
}

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name    string
		params  []Param
		wantErr bool
	}{
		{
			name: "valid set",
			params: []Param{
				{Key: "a", Kind: KindInt, Default: 1},
				{Key: "b", Kind: KindBool, Default: true},
				{Key: "c", Kind: KindDouble, Default: 0.5},
				{Key: "d", Kind: KindString, Default: "x"},
				{Key: "e", Kind: KindEnum, Default: "on", EnumValues: []string{"on", "off"}},
			},
		},
		{
			name:    "empty key",
			params:  []Param{{Key: "", Kind: KindInt, Default: 1}},
			wantErr: true,
		},
		{
			name: "duplicate key",
			params: []Param{
				{Key: "a", Kind: KindInt, Default: 1},
				{Key: "a", Kind: KindBool, Default: false},
			},
			wantErr: true,
		},
		{
			name:    "int default of wrong type",
			params:  []Param{{Key: "a", Kind: KindInt, Default: "1"}},
			wantErr: true,
		},
		{
			name:    "double default of wrong type",
			params:  []Param{{Key: "a", Kind: KindDouble, Default: 1}},
			wantErr: true,
		},
		{
			name:    "missing default",
			params:  []Param{{Key: "a", Kind: KindBool}},
			wantErr: true,
		},
		{
			name:    "enum default not in permitted set",
			params:  []Param{{Key: "a", Kind: KindEnum, Default: "sideways", EnumValues: []string{"on", "off"}}},
			wantErr: true,
		},
		{
			name:    "enum with no permitted values",
			params:  []Param{{Key: "a", Kind: KindEnum, Default: "on"}},
			wantErr: true,
		},
		{
			name:    "enum default matched case-insensitively",
			params:  []Param{{Key: "a", Kind: KindEnum, Default: "ON", EnumValues: []string{"on", "off"}}},
			wantErr: false,
		},
		{
			name:    "unknown kind",
			params:  []Param{{Key: "a", Kind: "float16", Default: 1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParams(tt.params)
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil && !errors.Is(err, ErrInvalidParam) {
				t.Errorf("error = %v, want ErrInvalidParam", err)
			}
		})
	}
}
