package upgrade

import (
	"strings"
	"testing"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		version    uint
		dirty      bool
		compatible bool
		needs      bool
	}{
		{"current", RequiredSchemaVersion, false, true, false},
		{"behind", RequiredSchemaVersion - 1, false, false, true},
		{"ahead", RequiredSchemaVersion + 1, false, false, false},
		{"dirty", RequiredSchemaVersion, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := evaluate(tt.version, tt.dirty)
			if s.Compatible != tt.compatible || s.NeedsMigration != tt.needs {
				t.Errorf("evaluate(%d, %v) = %+v", tt.version, tt.dirty, s)
			}
		})
	}
}

func TestFormatError(t *testing.T) {
	if msg := FormatError(&SchemaStatus{CurrentVersion: 2, Dirty: true}); !strings.Contains(msg, "migrate up --repair") || !strings.Contains(msg, "v1") {
		t.Errorf("dirty message = %q", msg)
	}
	if msg := FormatError(&SchemaStatus{CurrentVersion: 5, RequiredVersion: 1}); !strings.Contains(msg, "newer than this binary") {
		t.Errorf("ahead message = %q", msg)
	}
	if msg := FormatError(&SchemaStatus{CurrentVersion: 0, RequiredVersion: 1}); !strings.Contains(msg, "migrate up") {
		t.Errorf("outdated message = %q", msg)
	}
}
