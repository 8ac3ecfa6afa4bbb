package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestApplyMarker(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		err         error
		wantRelease string
		wantError   string
	}{
		{
			name:        "marker present",
			data:        []byte("myapp-abc123-1700000000.tar.gz\n"),
			wantRelease: "myapp-abc123-1700000000.tar.gz",
		},
		{
			name:        "marker missing",
			err:         fmt.Errorf("failed to open /home/app/apps/myapp/RELEASE: %w", fs.ErrNotExist),
			wantRelease: "not deployed",
		},
		{
			name:      "permission denied",
			err:       fmt.Errorf("failed to open /home/app/apps/myapp/RELEASE: %w", fs.ErrPermission),
			wantError: "failed to open /home/app/apps/myapp/RELEASE: permission denied",
		},
		{
			name:      "sftp session failure",
			err:       errors.New("failed to open SFTP session: EOF"),
			wantError: "failed to open SFTP session: EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s hostStatus
			s.applyMarker(tt.data, tt.err)

			if s.Release != tt.wantRelease {
				t.Errorf("expected release %q, got %q", tt.wantRelease, s.Release)
			}
			if s.Error != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, s.Error)
			}
		})
	}
}
