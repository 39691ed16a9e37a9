package db

import (
	"os"
	"testing"

	"github.com/fiberonix/netdesign/domain"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "test_*.db")
	if err != nil {
		t.Fatalf("os.CreateTemp() failed: %v", err)
	}
	tempFile.Close()

	dbConn, err := New(tempFile.Name())
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}

	repo := NewDesignRepo(dbConn, nil)

	teardown := func() {
		repo.Close()
		os.Remove(tempFile.Name())
	}

	return repo, teardown
}

func testChain(t *testing.T, name string) *domain.Chain {
	t.Helper()

	c := domain.NewChain(name, 8)
	c.Description = "feeder to block C"
	if err := c.AppendStage(domain.NewStage(0, "10/90", 0.2, 1, 5, nil)); err != nil {
		t.Fatalf("appending stage: %v", err)
	}
	if err := c.AppendStage(domain.NewStage(0, "50/50", 0.25, 2, 3, nil)); err != nil {
		t.Fatalf("appending stage: %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	t.Run("should apply migrations to a fresh database", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		var columns []string
		err := repo.dbConn.Select(&columns, `SELECT name FROM pragma_table_info('coupler_stage')`)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		found := false
		for _, c := range columns {
			if c == "fiber_loss_db_per_km" {
				found = true
			}
		}
		if !found {
			t.Fatalf("\nwanted:\nfiber_loss_db_per_km column\ngot:\n%v", columns)
		}
	})

	t.Run("should remove stages with their design", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		_, err := repo.dbConn.Exec(`INSERT INTO design (id, name, created_at, updated_at) VALUES ('d1', 'Feeder', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
		if err != nil {
			t.Fatalf("inserting design: %v", err)
		}
		_, err = repo.dbConn.Exec(`INSERT INTO coupler_stage (design_id, position, coupler_ratio) VALUES ('d1', 0, '10/90'), ('d1', 1, '50/50')`)
		if err != nil {
			t.Fatalf("inserting stages: %v", err)
		}

		if _, err := repo.dbConn.Exec(`DELETE FROM design WHERE id = 'd1'`); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		var count int
		if err := repo.dbConn.Get(&count, `SELECT COUNT(*) FROM coupler_stage`); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if count != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", count)
		}
	})

	t.Run("should reopen a migrated database", func(t *testing.T) {
		path := t.TempDir() + "/designs.db"
		first, err := New(path)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		first.Close()

		second, err := New(path)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		second.Close()
	})
}
