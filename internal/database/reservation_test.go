package database

import (
	"context"
	"testing"

	"github.com/tavolo/tavolo/internal/database/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReservationCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	tableID := int64(3)
	res := &models.Reservation{
		Name:            "Sarah Johnson",
		Phone:           "+15550001111",
		PartySize:       4,
		Date:            "2026-09-01",
		Time:            "19:00",
		Status:          models.ReservationConfirmed,
		AssignedTableID: &tableID,
		CallSID:         "CA123",
	}
	if err := repo.Create(ctx, res); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if res.ID == 0 {
		t.Fatal("Create() did not set ID")
	}

	got, err := repo.GetByID(ctx, res.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID() returned nil")
	}
	if got.Name != "Sarah Johnson" || got.PartySize != 4 || got.Time != "19:00" {
		t.Errorf("GetByID() = %+v", got)
	}
	if got.AssignedTableID == nil || *got.AssignedTableID != tableID {
		t.Errorf("AssignedTableID = %v, want %d", got.AssignedTableID, tableID)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestReservationGetMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewReservationRepository(db)

	got, err := repo.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got != nil {
		t.Errorf("GetByID() = %+v, want nil", got)
	}
}

func TestReservationListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	seed := []models.Reservation{
		{Name: "Anoop", PartySize: 2, Date: "2026-09-01", Time: "18:00", Status: models.ReservationConfirmed},
		{Name: "Kana", PartySize: 4, Date: "2026-09-01", Time: "19:00", Status: models.ReservationCancelled},
		{Name: "Ragi", PartySize: 6, Date: "2026-09-02", Time: "19:00", Status: models.ReservationConfirmed},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}

	byDate, err := repo.List(ctx, ReservationListFilter{Date: "2026-09-01"})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(byDate) != 2 {
		t.Errorf("List(date) returned %d, want 2", len(byDate))
	}

	confirmed, err := repo.List(ctx, ReservationListFilter{Status: models.ReservationConfirmed})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(confirmed) != 2 {
		t.Errorf("List(confirmed) returned %d, want 2", len(confirmed))
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus() error: %v", err)
	}
	if counts[models.ReservationConfirmed] != 2 || counts[models.ReservationCancelled] != 1 {
		t.Errorf("CountByStatus() = %v", counts)
	}
}

func TestReservationListConfirmedAt(t *testing.T) {
	db := newTestDB(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	tableID := int64(1)
	seed := []models.Reservation{
		{Name: "With Table", PartySize: 2, Date: "2026-09-01", Time: "19:00", Status: models.ReservationConfirmed, AssignedTableID: &tableID},
		{Name: "No Table", PartySize: 2, Date: "2026-09-01", Time: "19:00", Status: models.ReservationConfirmed},
		{Name: "Cancelled", PartySize: 2, Date: "2026-09-01", Time: "19:00", Status: models.ReservationCancelled, AssignedTableID: &tableID},
		{Name: "Other Slot", PartySize: 2, Date: "2026-09-01", Time: "20:00", Status: models.ReservationConfirmed, AssignedTableID: &tableID},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}

	booked, err := repo.ListConfirmedAt(ctx, "2026-09-01", "19:00")
	if err != nil {
		t.Fatalf("ListConfirmedAt() error: %v", err)
	}
	if len(booked) != 1 || booked[0].Name != "With Table" {
		t.Errorf("ListConfirmedAt() = %+v, want only the confirmed assigned reservation", booked)
	}
}

func TestReservationUniqueConfirmedSlot(t *testing.T) {
	db := newTestDB(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	tableID := int64(1)
	first := &models.Reservation{Name: "First", PartySize: 2, Date: "2026-09-01", Time: "19:00", Status: models.ReservationConfirmed, AssignedTableID: &tableID}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// A second confirmed reservation for the same table and slot must be
	// rejected by the unique index even if it slipped past the
	// availability check.
	dup := &models.Reservation{Name: "Second", PartySize: 2, Date: "2026-09-01", Time: "19:00", Status: models.ReservationConfirmed, AssignedTableID: &tableID}
	if err := repo.Create(ctx, dup); err == nil {
		t.Fatal("Create() allowed a double booking of the same table and slot")
	}

	// Cancelling the first frees the slot for a new confirmed booking.
	if err := repo.UpdateStatus(ctx, first.ID, models.ReservationCancelled); err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}
	if err := repo.Create(ctx, dup); err != nil {
		t.Fatalf("Create() after cancellation error: %v", err)
	}

	// Reservations without an assigned table never collide.
	for _, name := range []string{"Walk-in A", "Walk-in B"} {
		res := &models.Reservation{Name: name, PartySize: 2, Date: "2026-09-01", Time: "19:00", Status: models.ReservationConfirmed}
		if err := repo.Create(ctx, res); err != nil {
			t.Fatalf("Create(%s) error: %v", name, err)
		}
	}
}

func TestReservationUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	res := &models.Reservation{Name: "Mike", PartySize: 2, Date: "2026-09-01", Time: "18:30", Status: models.ReservationConfirmed}
	if err := repo.Create(ctx, res); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := repo.UpdateStatus(ctx, res.ID, models.ReservationCancelled); err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}

	got, err := repo.GetByID(ctx, res.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.Status != models.ReservationCancelled {
		t.Errorf("Status = %q, want cancelled", got.Status)
	}
}

func TestDiningTableListActiveWithCapacity(t *testing.T) {
	db := newTestDB(t)
	repo := NewDiningTableRepository(db)
	ctx := context.Background()

	// Seeded layout has capacities 2,2,4,4,4,6,6,8,8,10.
	tables, err := repo.ListActiveWithCapacity(ctx, 5)
	if err != nil {
		t.Fatalf("ListActiveWithCapacity() error: %v", err)
	}
	if len(tables) != 5 {
		t.Fatalf("ListActiveWithCapacity(5) returned %d tables, want 5", len(tables))
	}
	// Smallest capacity first for tightest-fit assignment.
	if tables[0].Capacity != 6 {
		t.Errorf("first table capacity = %d, want 6", tables[0].Capacity)
	}
	for i := 1; i < len(tables); i++ {
		if tables[i].Capacity < tables[i-1].Capacity {
			t.Errorf("tables not ordered by capacity: %+v", tables)
		}
	}

	none, err := repo.ListActiveWithCapacity(ctx, 11)
	if err != nil {
		t.Fatalf("ListActiveWithCapacity() error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListActiveWithCapacity(11) returned %d tables, want 0", len(none))
	}
}
