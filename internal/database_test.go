package internal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/tchat/testutil"
)

func TestOpenDatabase(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "creates missing directories",
			setup: func(t *testing.T) string {
				return filepath.Join(testutil.CreateTempDir(t), "nested", "cookies.db")
			},
		},
		{
			name: "reopens an existing database",
			setup: func(t *testing.T) string {
				path := filepath.Join(testutil.CreateTempDir(t), "cookies.db")
				db, err := OpenDatabase(path)
				if err != nil {
					t.Fatalf("first open failed: %v", err)
				}
				db.Close()
				return path
			},
		},
		{
			name: "in memory",
			setup: func(t *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "parent is a file",
			setup: func(t *testing.T) string {
				file := testutil.WriteFile(t, testutil.CreateTempDir(t), "blocker", "x")
				return filepath.Join(file, "cookies.db")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			db, err := OpenDatabase(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("OpenDatabase() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var storageErr *StorageError
				if !errors.As(err, &storageErr) {
					t.Errorf("OpenDatabase() error should be a StorageError, got %T", err)
				}
				return
			}
			defer db.Close()

			if got := testutil.CountRows(t, db, "cookies"); got != 0 {
				t.Errorf("new database has %d cookies, want 0", got)
			}
			if path != ":memory:" {
				if _, err := os.Stat(path); err != nil {
					t.Errorf("database file not created: %v", err)
				}
			}
		})
	}
}
