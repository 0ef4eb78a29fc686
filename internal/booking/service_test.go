package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/tavolo/tavolo/internal/database"
	"github.com/tavolo/tavolo/internal/database/models"
)

type fakeNotifier struct {
	confirmations int
	cancellations int
	lastTable     int
	lastPhone     string
}

func (f *fakeNotifier) SendConfirmation(_ context.Context, toPhone, _ string, _ int, _, _ string, tableNumber int) error {
	f.confirmations++
	f.lastPhone = toPhone
	f.lastTable = tableNumber
	return nil
}

func (f *fakeNotifier) SendCancellation(_ context.Context, toPhone, _, _, _ string) error {
	f.cancellations++
	f.lastPhone = toPhone
	return nil
}

func newTestService(t *testing.T) (*Service, *database.DB, *fakeNotifier) {
	t.Helper()
	db, err := database.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(
		database.NewReservationRepository(db),
		database.NewDiningTableRepository(db),
		notifier, 17, 22, logger,
	)
	return svc, db, notifier
}

func bookAllTablesAt(t *testing.T, db *database.DB, date, timeSlot string) {
	t.Helper()
	tables := database.NewDiningTableRepository(db)
	reservations := database.NewReservationRepository(db)
	ctx := context.Background()

	all, err := tables.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	for i := range all {
		id := all[i].ID
		res := &models.Reservation{
			Name:            "Blocker",
			PartySize:       2,
			Date:            date,
			Time:            timeSlot,
			Status:          models.ReservationConfirmed,
			AssignedTableID: &id,
		}
		if err := reservations.Create(ctx, res); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}
}

func TestCheckAvailabilityOpenSlot(t *testing.T) {
	svc, _, _ := newTestService(t)

	avail, err := svc.CheckAvailability(context.Background(), 4, "2025-06-20", "19:00")
	if err != nil {
		t.Fatalf("CheckAvailability() error: %v", err)
	}
	if !avail.Available {
		t.Fatalf("expected availability, got reason %q", avail.Reason)
	}
	// The seeded layout has eight tables seating four or more, smallest
	// first.
	if len(avail.Tables) != 8 {
		t.Errorf("got %d tables, want 8", len(avail.Tables))
	}
	if avail.Tables[0].Capacity != 4 {
		t.Errorf("first table capacity = %d, want 4", avail.Tables[0].Capacity)
	}
}

func TestCheckAvailabilityPartyTooLarge(t *testing.T) {
	svc, _, _ := newTestService(t)

	avail, err := svc.CheckAvailability(context.Background(), 14, "2025-06-20", "19:00")
	if err != nil {
		t.Fatalf("CheckAvailability() error: %v", err)
	}
	if avail.Available {
		t.Fatal("expected no availability for party of 14")
	}
	if avail.Reason == "" {
		t.Error("expected a reason")
	}
	if len(avail.Alternatives) != 0 {
		t.Errorf("no alternatives expected when no table is big enough, got %v", avail.Alternatives)
	}
}

func TestCheckAvailabilityFullSlotSuggestsAlternatives(t *testing.T) {
	svc, db, _ := newTestService(t)
	bookAllTablesAt(t, db, "2025-06-20", "19:00")

	avail, err := svc.CheckAvailability(context.Background(), 2, "2025-06-20", "19:00")
	if err != nil {
		t.Fatalf("CheckAvailability() error: %v", err)
	}
	if avail.Available {
		t.Fatal("expected full slot")
	}
	want := []string{"17:30", "18:00", "18:30"}
	if len(avail.Alternatives) != len(want) {
		t.Fatalf("alternatives = %v, want %v", avail.Alternatives, want)
	}
	for i, w := range want {
		if avail.Alternatives[i] != w {
			t.Errorf("alternatives[%d] = %q, want %q", i, avail.Alternatives[i], w)
		}
	}
}

func TestSuggestAlternativesRespectsClosingTime(t *testing.T) {
	svc, db, _ := newTestService(t)
	bookAllTablesAt(t, db, "2025-06-20", "21:30")

	avail, err := svc.CheckAvailability(context.Background(), 2, "2025-06-20", "21:30")
	if err != nil {
		t.Fatalf("CheckAvailability() error: %v", err)
	}
	for _, alt := range avail.Alternatives {
		if alt >= "22:00" {
			t.Errorf("alternative %q falls outside opening hours", alt)
		}
	}
}

func TestCreateReservationAssignsSmallestFit(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	result, err := svc.CreateReservation(ctx, CreateRequest{
		Name:      "Garcia",
		PartySize: 3,
		Date:      "2025-06-20",
		Time:      "19:00",
		Phone:     "+15550001111",
		CallSID:   "CA100",
	})
	if err != nil {
		t.Fatalf("CreateReservation() error: %v", err)
	}
	if result.Table.Capacity != 4 {
		t.Errorf("assigned capacity = %d, want 4 (smallest fit for 3)", result.Table.Capacity)
	}
	if result.Reservation.AssignedTableID == nil || *result.Reservation.AssignedTableID != result.Table.ID {
		t.Error("reservation not linked to assigned table")
	}
	if notifier.confirmations != 1 || notifier.lastTable != result.Table.Number {
		t.Errorf("confirmation SMS not sent with table number, notifier = %+v", notifier)
	}

	// The same table must not be handed out twice for the slot.
	second, err := svc.CreateReservation(ctx, CreateRequest{
		Name:      "Chen",
		PartySize: 3,
		Date:      "2025-06-20",
		Time:      "19:00",
	})
	if err != nil {
		t.Fatalf("second CreateReservation() error: %v", err)
	}
	if second.Table.ID == result.Table.ID {
		t.Error("same table assigned twice for one slot")
	}
	if notifier.confirmations != 1 {
		t.Errorf("SMS sent without a phone number, confirmations = %d", notifier.confirmations)
	}
}

func TestCreateReservationFullSlot(t *testing.T) {
	svc, db, _ := newTestService(t)
	bookAllTablesAt(t, db, "2025-06-20", "19:00")

	_, err := svc.CreateReservation(context.Background(), CreateRequest{
		Name:      "Garcia",
		PartySize: 2,
		Date:      "2025-06-20",
		Time:      "19:00",
	})
	var unavail *UnavailableError
	if !errors.As(err, &unavail) {
		t.Fatalf("error = %v, want *UnavailableError", err)
	}
	if len(unavail.Alternatives) == 0 {
		t.Error("expected alternative slots in the error")
	}
}

func TestFindReservationsFuzzyName(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Ragi", "Jennifer"} {
		if _, err := svc.CreateReservation(ctx, CreateRequest{
			Name: name, PartySize: 2, Date: "2025-06-20", Time: "19:00",
		}); err != nil {
			t.Fatalf("CreateReservation(%s) error: %v", name, err)
		}
	}

	found, err := svc.FindReservations(ctx, "2025-06-20", "Raji")
	if err != nil {
		t.Fatalf("FindReservations() error: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Ragi" {
		t.Fatalf("FindReservations(Raji) = %+v, want the Ragi booking", found)
	}

	none, err := svc.FindReservations(ctx, "2025-06-20", "Zebra")
	if err != nil {
		t.Fatalf("FindReservations() error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("FindReservations(Zebra) = %+v, want none", none)
	}
}

func TestCancelReservationByFuzzyName(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateReservation(ctx, CreateRequest{
		Name: "Ragi", PartySize: 2, Date: "2025-06-20", Time: "19:00", Phone: "+15550001111",
	}); err != nil {
		t.Fatalf("CreateReservation() error: %v", err)
	}

	result, err := svc.CancelReservation(ctx, 0, "Raji", "2025-06-20")
	if err != nil {
		t.Fatalf("CancelReservation() error: %v", err)
	}
	if result.Reservation.Status != models.ReservationCancelled {
		t.Errorf("status = %q, want cancelled", result.Reservation.Status)
	}
	if result.TableNumber == 0 {
		t.Error("expected the freed table number")
	}
	if notifier.cancellations != 1 {
		t.Errorf("cancellations = %d, want 1", notifier.cancellations)
	}

	// The table is free again for the slot.
	avail, err := svc.CheckAvailability(ctx, 2, "2025-06-20", "19:00")
	if err != nil {
		t.Fatalf("CheckAvailability() error: %v", err)
	}
	if !avail.Available || len(avail.Tables) != 10 {
		t.Errorf("cancellation did not free the table: %+v", avail)
	}
}

func TestCancelReservationNeedsIdentifier(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.CancelReservation(context.Background(), 0, "", ""); err == nil {
		t.Fatal("expected an error with neither id nor name")
	}
}

func TestCancelReservationNoMatch(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.CancelReservation(context.Background(), 0, "Nobody", ""); err == nil {
		t.Fatal("expected an error for an unknown name")
	}
}
