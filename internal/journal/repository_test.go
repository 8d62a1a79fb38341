package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/sinric-link/internal/infrastructure/database"
	"github.com/nerrad567/sinric-link/migrations"
)

const (
	deviceA = "5dc1564130a1b2c3d4e5f601"
	deviceB = "5dc1564130a1b2c3d4e5f602"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestSQLiteRepository_RecordAndList(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	entries := []*Entry{
		{Kind: KindState, Success: true, State: "connected", CreatedAt: base},
		{Kind: KindRequest, DeviceID: deviceA, Action: "setPowerState", Success: true,
			Value: []byte(`{"state":"On"}`), CreatedAt: base.Add(time.Second)},
		{Kind: KindEvent, DeviceID: deviceB, Action: "currentTemperature", Success: true,
			Cause: "PERIODIC_POLL", Value: []byte(`{"temperature":21.5,"humidity":40}`), CreatedAt: base.Add(2 * time.Second)},
		{Kind: KindRequest, DeviceID: deviceA, Action: "setPowerState", Success: false,
			Value: []byte(`{"state":"Off"}`), CreatedAt: base.Add(3 * time.Second)},
	}
	for _, e := range entries {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if e.ID == "" {
			t.Fatal("Record() did not assign an ID")
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 4 || len(all.Entries) != 4 || all.Limit != defaultLimit {
		t.Fatalf("List() total=%d len=%d limit=%d", all.Total, len(all.Entries), all.Limit)
	}
	newest := all.Entries[0]
	if newest.ID != entries[3].ID || newest.Success || string(newest.Value) != `{"state":"Off"}` {
		t.Errorf("newest entry = %+v", newest)
	}
	if !newest.CreatedAt.Equal(base.Add(3 * time.Second)) {
		t.Errorf("CreatedAt = %v, want %v", newest.CreatedAt, base.Add(3*time.Second))
	}
	if oldest := all.Entries[3]; oldest.Kind != KindState || oldest.State != "connected" || oldest.DeviceID != "" {
		t.Errorf("oldest entry = %+v", oldest)
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"by kind", Filter{Kind: KindRequest}, 2},
		{"by device", Filter{DeviceID: deviceB}, 1},
		{"by action", Filter{Action: "setPowerState"}, 2},
		{"since", Filter{Since: base.Add(2 * time.Second)}, 2},
		{"combined", Filter{Kind: KindRequest, DeviceID: deviceB}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.want || len(res.Entries) != tt.want {
				t.Errorf("List() total=%d len=%d, want %d", res.Total, len(res.Entries), tt.want)
			}
		})
	}
}

func TestSQLiteRepository_ListPagination(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		e := &Entry{Kind: KindEvent, DeviceID: deviceA, Action: "setContactState", Success: true,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond)}
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	page, err := repo.List(ctx, Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 5 || len(page.Entries) != 2 {
		t.Fatalf("List() total=%d len=%d, want 5 and 2", page.Total, len(page.Entries))
	}
	if want := base.Add(2 * time.Millisecond); !page.Entries[0].CreatedAt.Equal(want) {
		t.Errorf("first entry of page = %v, want %v", page.Entries[0].CreatedAt, want)
	}

	clamped, err := repo.List(ctx, Filter{Limit: 10000, Offset: -3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if clamped.Limit != maxLimit || clamped.Offset != 0 {
		t.Errorf("clamped limit=%d offset=%d, want %d and 0", clamped.Limit, clamped.Offset, maxLimit)
	}
}

func TestSQLiteRepository_Prune(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		e := &Entry{Kind: KindState, Success: true, State: "connected",
			CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	n, err := repo.Prune(ctx, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Prune() removed %d, want 2", n)
	}

	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 2 {
		t.Errorf("remaining entries = %d, want 2", res.Total)
	}
}
