package migration

import (
	"errors"
	"testing"
	"testing/fstest"

	"jobflow/migrations"
)

func TestLoad_OrdersAndFilters(t *testing.T) {
	fsys := fstest.MapFS{
		"V2__create_users.sql": {Data: []byte("CREATE TABLE users (id BIGSERIAL PRIMARY KEY);\n")},
		"V1__create_jobs.sql":  {Data: []byte("  CREATE TABLE jobs (id BIGSERIAL PRIMARY KEY);  ")},
		"README.md":            {Data: []byte("ignored")},
		"V3_bad_name.sql":      {Data: []byte("ignored")},
	}

	migs, err := Load(fsys)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(migs) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migs))
	}
	if migs[0].Version != 1 || migs[0].Name != "create_jobs" || migs[1].Version != 2 {
		t.Fatalf("unexpected order %+v", migs)
	}
	if migs[0].SQL != "CREATE TABLE jobs (id BIGSERIAL PRIMARY KEY);" {
		t.Fatalf("expected trimmed SQL, got %q", migs[0].SQL)
	}
	if len(migs[0].Checksum) != 64 || migs[0].Checksum == migs[1].Checksum {
		t.Fatalf("unexpected checksums %q %q", migs[0].Checksum, migs[1].Checksum)
	}
}

func TestLoad_RejectsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"V1__a.sql":  {Data: []byte("SELECT 1;")},
		"V01__b.sql": {Data: []byte("SELECT 2;")},
	}
	if _, err := Load(fsys); !errors.Is(err, ErrDuplicateVersion) {
		t.Fatalf("expected ErrDuplicateVersion, got %v", err)
	}
}

func TestLoad_RejectsEmptyFile(t *testing.T) {
	fsys := fstest.MapFS{"V1__empty.sql": {Data: []byte("   \n")}}
	if _, err := Load(fsys); err == nil {
		t.Fatalf("expected error for empty migration")
	}
}

func TestLoad_NilFS(t *testing.T) {
	migs, err := Load(nil)
	if err != nil || migs != nil {
		t.Fatalf("expected nothing to load, got %v %v", migs, err)
	}
}

func TestLoad_EmbeddedMigrations(t *testing.T) {
	migs, err := Load(migrations.FS)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(migs) < 2 || migs[0].Name != "create_jobs" || migs[1].Name != "create_users" {
		t.Fatalf("unexpected embedded migrations %+v", migs)
	}
}
