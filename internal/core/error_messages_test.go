package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/tableroute/internal/address"
	"github.com/JonMunkholm/tableroute/internal/schema"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "unmatched address",
			err:         &address.UnmatchedAddressError{Path: "nope"},
			wantCode:    "ADDR001",
			wantMessage: "The address does not match any resource",
		},
		{
			name:        "unknown table",
			err:         &schema.UnknownTableError{Name: "ghosts"},
			wantCode:    "TBL002",
			wantMessage: "Unknown table",
		},
		{
			name:        "invalid projection",
			err:         &InvalidProjectionError{Table: "items", Unknown: []string{"bogus"}},
			wantCode:    "PROJ001",
			wantMessage: "One or more requested columns do not exist",
		},
		{
			name:        "unsupported scope",
			err:         &UnsupportedScopeError{Op: "insert", Path: "items/1"},
			wantCode:    "SCOPE001",
			wantMessage: "This operation is not available at this address",
		},
		{
			name:        "not open",
			err:         ErrNotOpen,
			wantCode:    "STORE001",
			wantMessage: "Storage is not ready",
		},
		{
			name:        "storage init",
			err:         &schema.StorageInitError{Table: "items", Err: errors.New("disk full")},
			wantCode:    "STORE002",
			wantMessage: "Storage could not be initialized",
		},
		{
			name:        "duplicate key maps correctly",
			err:         errors.New("ERROR: duplicate key value violates unique constraint"),
			wantCode:    "DB001",
			wantMessage: "A record with this key already exists",
		},
		{
			name:        "sqlite unique constraint",
			err:         errors.New("UNIQUE constraint failed: items.name"),
			wantCode:    "DB002",
			wantMessage: "This value must be unique but already exists",
		},
		{
			name:        "mysql duplicate entry",
			err:         errors.New("Error 1062 (23000): Duplicate entry 'bolt' for key 'name'"),
			wantCode:    "DB002",
			wantMessage: "A duplicate value was found",
		},
		{
			name:        "sqlite not null",
			err:         errors.New("NOT NULL constraint failed: items.name"),
			wantCode:    "DB003",
			wantMessage: "A required column is missing",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "wrapped error still matches",
			err:         fmt.Errorf("select items: %w", errors.New("database is locked")),
			wantCode:    "DB007",
			wantMessage: "Database was busy with conflicting operations",
		},
		{
			name:        "bad csv header",
			err:         fmt.Errorf("%w: missing header row", ErrInvalidCSV),
			wantCode:    "CSV001",
			wantMessage: "The CSV file could not be imported",
		},
		{
			name:        "malformed body",
			err:         fmt.Errorf("invalid request body: %w", errors.New("unexpected EOF")),
			wantCode:    "REQ003",
			wantMessage: "The request body could not be read",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("DUPLICATE KEY value violates"),
			wantCode:    "DB001",
			wantMessage: "A record with this key already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := &schema.UnknownTableError{Name: "ghosts"}
	result := FormatUserError(err)

	expected := "Unknown table (Code: TBL002). This table is not part of the schema"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  errors.New("duplicate key"),
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := errors.New("ERROR: duplicate key value")
		userErr := NewUserError(techErr)

		if userErr.Error() != "A record with this key already exists" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}
