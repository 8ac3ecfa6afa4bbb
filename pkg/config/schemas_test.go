package config

import (
	"testing"
)

func TestValidateHost(t *testing.T) {
	sr := NewSchemaRegistry()

	tests := []struct {
		name        string
		entry       map[string]interface{}
		expectError bool
	}{
		{
			name:  "minimal host",
			entry: map[string]interface{}{"name": "web1", "ssh_host": "10.0.0.5"},
		},
		{
			name: "full host",
			entry: map[string]interface{}{
				"name":     "web1",
				"ssh_host": "10.0.0.5",
				"ssh_port": 2222,
				"services": []interface{}{"myapp"},
				"backup":   map[string]interface{}{"type": "sftp", "host": "b", "user": "u"},
				"data":     map[string]interface{}{"anything": "goes"},
			},
		},
		{
			name:        "empty name",
			entry:       map[string]interface{}{"name": "", "ssh_host": "10.0.0.5"},
			expectError: true,
		},
		{
			name:        "port out of range",
			entry:       map[string]interface{}{"name": "web1", "ssh_host": "10.0.0.5", "ssh_port": 70000},
			expectError: true,
		},
		{
			name: "bad backup type",
			entry: map[string]interface{}{
				"name":     "web1",
				"ssh_host": "10.0.0.5",
				"backup":   map[string]interface{}{"type": "ftp"},
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sr.ValidateHost(tt.entry)
			if tt.expectError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateBackup(t *testing.T) {
	sr := NewSchemaRegistry()

	if err := sr.ValidateBackup(map[string]interface{}{"type": "s3", "s3_bucket": "b"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := sr.ValidateBackup(map[string]interface{}{"retention_days": -1}); err == nil {
		t.Error("expected error for negative retention, got nil")
	}
}

func TestRegisterSchemaRejectsInvalidCUE(t *testing.T) {
	sr := NewSchemaRegistry()
	if err := sr.RegisterSchema("broken", "#X: {"); err == nil {
		t.Error("expected error for invalid schema, got nil")
	}
}
