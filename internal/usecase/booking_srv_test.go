package usecase

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"parking-booking/internal/apperr"
	"parking-booking/internal/data/entity"
	"parking-booking/internal/dto/request"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking_FillsLotThenFails(t *testing.T) {
	f := newFixture(t, at(9, 0))
	lot := f.addLot("Main", 2, 1)

	first := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))
	assert.Equal(t, "Main-1", first.SlotNumber)
	assert.Equal(t, entity.BookingStatusConfirmed, first.BookingStatus)
	assert.Equal(t, 2, first.DurationHours)
	assert.InDelta(t, 80.0, first.Amount, 0.001)
	assert.Equal(t, entity.PaymentStatusPending, first.PaymentStatus)

	second := f.mustBook(f.visitor, "DL1CAB5678", at(10, 0), at(12, 0))
	assert.Equal(t, "Main-2", second.SlotNumber)

	_, err := f.book(f.visitor, "MH12XY0001", at(10, 0), at(12, 0))
	assert.ErrorIs(t, err, apperr.ErrNoAvailableSlot)

	// confirmed bookings reserve the window but not the counter
	assert.Equal(t, 2, f.lot(lot.ID).AvailableSlots)
}

func TestCreateBooking_NoLots(t *testing.T) {
	f := newFixture(t, at(9, 0))

	_, err := f.book(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))
	assert.ErrorIs(t, err, apperr.ErrNoLotsConfigured)
}

func TestCreateBooking_PriorityOrderWins(t *testing.T) {
	f := newFixture(t, at(9, 0))
	big := f.addLot("Overflow", 10, 2)
	small := f.addLot("Front", 1, 1)

	b := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))
	assert.Equal(t, small.ID.String(), *b.ParkingLotID)
	assert.Equal(t, "Front-1", b.SlotNumber)

	b = f.mustBook(f.visitor, "KA01AB1235", at(10, 0), at(12, 0))
	assert.Equal(t, big.ID.String(), *b.ParkingLotID)
	assert.Equal(t, "Overflow-1", b.SlotNumber)

	// a non-overlapping window goes back to the preferred lot
	b = f.mustBook(f.visitor, "KA01AB1236", at(12, 0), at(13, 0))
	assert.Equal(t, small.ID.String(), *b.ParkingLotID)
}

func TestCreateBooking_WalkInTakesCounter(t *testing.T) {
	f := newFixture(t, at(10, 0))
	front := f.addLot("Front", 1, 1)
	back := f.addLot("Back", 3, 2)

	b := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(11, 0))
	assert.Equal(t, entity.BookingStatusActive, b.BookingStatus)
	assert.Equal(t, 0, f.lot(front.ID).AvailableSlots)

	// exhausted counter skips the lot even for a later window
	b = f.mustBook(f.visitor, "KA01AB1235", at(15, 0), at(16, 0))
	assert.Equal(t, back.ID.String(), *b.ParkingLotID)
	assert.Equal(t, entity.BookingStatusConfirmed, b.BookingStatus)
	assert.Equal(t, 3, f.lot(back.ID).AvailableSlots)
}

func TestCreateBooking_MemberParksFree(t *testing.T) {
	f := newFixture(t, at(9, 0))
	f.addLot("Main", 2, 1)

	b := f.mustBook(f.member, "KA01AB1234", at(10, 0), at(13, 30))
	assert.Equal(t, 4, b.DurationHours)
	assert.Zero(t, b.Amount)
	assert.Equal(t, entity.PaymentStatusCompleted, b.PaymentStatus)

	// membership of another organization does not count
	otherOrg := uuid.New()
	outsider := f.addUser("Outsider", entity.UserTypeOrganizationMember, &otherOrg)
	b = f.mustBook(outsider, "KA01AB1235", at(10, 0), at(11, 0))
	assert.InDelta(t, hourlyRate, b.Amount, 0.001)
	assert.Equal(t, entity.PaymentStatusPending, b.PaymentStatus)
}

func TestCreateBooking_InvalidWindow(t *testing.T) {
	f := newFixture(t, at(9, 0))
	f.addLot("Main", 2, 1)

	tests := []struct {
		name       string
		start, end time.Time
	}{
		{"already over", at(7, 0), at(8, 0)},
		{"start too far in the past", at(8, 0), at(10, 0)},
		{"longer than a day", at(10, 0), at(10, 0).Add(25 * time.Hour)},
		{"end before start", at(12, 0), at(10, 0)},
		{"empty window", at(11, 0), at(11, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.book(f.visitor, "KA01AB1234", tt.start, tt.end)
			assert.ErrorIs(t, err, apperr.ErrInvalidWindow)
			assert.NotErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestCreateBooking_NormalizesVehicle(t *testing.T) {
	f := newFixture(t, at(9, 0))
	f.addLot("Main", 2, 1)

	b := f.mustBook(f.visitor, "ka01 ab-1234", at(10, 0), at(11, 0))
	assert.Equal(t, "KA01AB1234", b.VehicleNumber)

	_, err := f.book(f.visitor, "??", at(10, 0), at(11, 0))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateBooking_UnknownOrganizationAndUser(t *testing.T) {
	f := newFixture(t, at(9, 0))
	f.addLot("Main", 2, 1)

	_, err := f.svc.Booking.CreateBooking(f.ctx, f.visitor.ID, &request.CreateBookingRequest{
		OrganizationID: uuid.NewString(),
		VehicleNumber:  "KA01AB1234",
		StartTime:      at(10, 0),
		EndTime:        at(11, 0),
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.book(entity.User{Base: entity.Base{ID: uuid.New()}}, "KA01AB1234", at(10, 0), at(11, 0))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateBooking_ConcurrentRequestsNeverOverlap(t *testing.T) {
	f := newFixture(t, at(8, 0))
	f.addLot("North", 3, 1)
	f.addLot("South", 2, 2)

	rng := rand.New(rand.NewPCG(1, 2))
	type window struct{ start, end time.Time }
	windows := make([]window, 60)
	for i := range windows {
		start := at(9, 0).Add(time.Duration(rng.IntN(16)) * 30 * time.Minute)
		windows[i] = window{start, start.Add(time.Duration(1+rng.IntN(4)) * 30 * time.Minute)}
	}

	var wg sync.WaitGroup
	for i, w := range windows {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.book(f.visitor, fmt.Sprintf("KA01AB%04d", i), w.start, w.end)
			if err != nil {
				assert.ErrorIs(t, err, apperr.ErrNoAvailableSlot)
			}
		}()
	}
	wg.Wait()

	bookings := f.store.Bookings()
	require.NotEmpty(t, bookings)
	for i, a := range bookings {
		for _, b := range bookings[i+1:] {
			if *a.ParkingLotID != *b.ParkingLotID || a.SlotNumber != b.SlotNumber {
				continue
			}
			assert.False(t, a.Overlaps(b.BookingStartTime, b.BookingEndTime),
				"%s overlaps on %s", a.Reference, a.SlotNumber)
		}
	}
}

func TestExtendBooking(t *testing.T) {
	var lot *entity.ParkingLot
	setup := func(t *testing.T) (*fixture, uuid.UUID) {
		f := newFixture(t, at(9, 0))
		lot = f.addLot("Main", 2, 1)
		a := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))
		require.Equal(t, "Main-1", a.SlotNumber)
		f.setNow(at(11, 0))
		f.sweep(at(11, 0))
		return f, bookingID(t, a)
	}

	t.Run("touching booking on another slot", func(t *testing.T) {
		f, id := setup(t)
		f.insert(lot, "Main-2", at(12, 0), at(14, 0))

		res, err := f.svc.Booking.ExtendBooking(f.ctx, f.visitor.ID, id, &request.ExtendBookingRequest{ExtraHours: 1})
		require.NoError(t, err)
		assert.Equal(t, at(13, 0), res.BookingEndTime)
		assert.Equal(t, 3, res.DurationHours)
		assert.InDelta(t, 120.0, res.Amount, 0.001)
		assert.Equal(t, "Main-1", res.SlotNumber)
	})

	t.Run("same slot booked from the old end", func(t *testing.T) {
		f, id := setup(t)
		// Main-1 is free from 12:00 and is the lowest label
		b := f.mustBook(f.visitor, "DL1CAB5678", at(12, 0), at(14, 0))
		require.Equal(t, "Main-1", b.SlotNumber)

		_, err := f.svc.Booking.ExtendBooking(f.ctx, f.visitor.ID, id, &request.ExtendBookingRequest{ExtraHours: 1})
		assert.ErrorIs(t, err, apperr.ErrSlotConflict)
		assert.Equal(t, at(12, 0), f.booking(id.String()).BookingEndTime)
	})

	t.Run("same slot booked after the extended end", func(t *testing.T) {
		f, id := setup(t)
		b := f.mustBook(f.visitor, "DL1CAB5678", at(13, 0), at(14, 0))
		require.Equal(t, "Main-1", b.SlotNumber)

		_, err := f.svc.Booking.ExtendBooking(f.ctx, f.visitor.ID, id, &request.ExtendBookingRequest{ExtraHours: 1})
		assert.NoError(t, err)
	})

	t.Run("confirmed booking cannot extend", func(t *testing.T) {
		f := newFixture(t, at(9, 0))
		f.addLot("Main", 2, 1)
		a := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))

		_, err := f.svc.Booking.ExtendBooking(f.ctx, f.visitor.ID, bookingID(t, a), &request.ExtendBookingRequest{ExtraHours: 1})
		assert.ErrorIs(t, err, apperr.ErrNotActive)
	})

	t.Run("paid booking goes back to pending", func(t *testing.T) {
		f, id := setup(t)
		_, err := f.svc.Booking.PayBooking(f.ctx, f.visitor.ID, id, &request.PayBookingRequest{Method: "card"})
		require.NoError(t, err)

		res, err := f.svc.Booking.ExtendBooking(f.ctx, f.visitor.ID, id, &request.ExtendBookingRequest{ExtraHours: 2})
		require.NoError(t, err)
		assert.Equal(t, entity.PaymentStatusPending, res.PaymentStatus)
	})

	t.Run("someone else's booking", func(t *testing.T) {
		f, id := setup(t)
		stranger := f.addUser("Stranger", entity.UserTypeVisitor, nil)

		_, err := f.svc.Booking.ExtendBooking(f.ctx, stranger.ID, id, &request.ExtendBookingRequest{ExtraHours: 1})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})
}

func TestCancelBooking_LedgerEffect(t *testing.T) {
	f := newFixture(t, at(9, 0))
	lot := f.addLot("Main", 3, 1)

	confirmed := f.mustBook(f.visitor, "KA01AB1234", at(11, 0), at(12, 0))
	active := f.mustBook(f.visitor, "DL1CAB5678", at(9, 0), at(12, 0))
	require.Equal(t, entity.BookingStatusActive, active.BookingStatus)
	require.Equal(t, 2, f.lot(lot.ID).AvailableSlots)

	res, err := f.svc.Booking.CancelBooking(f.ctx, f.visitor.ID, bookingID(t, confirmed))
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, res.BookingStatus)
	assert.Equal(t, 2, f.lot(lot.ID).AvailableSlots)

	res, err = f.svc.Booking.CancelBooking(f.ctx, f.visitor.ID, bookingID(t, active))
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, res.BookingStatus)
	assert.Equal(t, 3, f.lot(lot.ID).AvailableSlots)

	// cancelling again is a no-op
	_, err = f.svc.Booking.CancelBooking(f.ctx, f.visitor.ID, bookingID(t, active))
	require.NoError(t, err)
	assert.Equal(t, 3, f.lot(lot.ID).AvailableSlots)

	// the cancelled window is free again
	again := f.mustBook(f.visitor, "MH12XY0001", at(11, 0), at(12, 0))
	assert.Equal(t, "Main-1", again.SlotNumber)
}

func TestCancelBooking_RefundsPaidBooking(t *testing.T) {
	f := newFixture(t, at(9, 0))
	f.addLot("Main", 1, 1)
	b := f.mustBook(f.visitor, "KA01AB1234", at(11, 0), at(12, 0))

	_, err := f.svc.Booking.PayBooking(f.ctx, f.visitor.ID, bookingID(t, b), &request.PayBookingRequest{Method: "upi"})
	require.NoError(t, err)

	res, err := f.svc.Booking.CancelBooking(f.ctx, f.visitor.ID, bookingID(t, b))
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusRefunded, res.PaymentStatus)
}

func TestCancelBooking_OverstayIsRejected(t *testing.T) {
	f := newFixture(t, at(9, 0))
	f.addLot("Main", 1, 1)
	b := f.mustBook(f.visitor, "KA01AB1234", at(9, 0), at(10, 0))
	f.sweep(at(10, 30))

	_, err := f.svc.Booking.CancelBooking(f.ctx, f.visitor.ID, bookingID(t, b))
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestMarkEntry(t *testing.T) {
	f := newFixture(t, at(9, 0))
	lot := f.addLot("Main", 2, 1)
	b := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))
	id := bookingID(t, b)

	_, err := f.svc.Booking.MarkEntry(f.ctx, f.watchman.ID, id, &request.EntryRequest{})
	assert.ErrorIs(t, err, apperr.ErrEarlyEntry)

	f.setNow(at(10, 5))
	res, err := f.svc.Booking.MarkEntry(f.ctx, f.watchman.ID, id, &request.EntryRequest{})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusActive, res.BookingStatus)
	require.NotNil(t, res.EntryTime)
	assert.Equal(t, at(10, 5), *res.EntryTime)
	assert.Equal(t, 1, f.lot(lot.ID).AvailableSlots)

	// the sweep finds nothing left to activate
	res2 := f.sweep(at(10, 10))
	assert.Zero(t, res2.Activated)
	assert.Equal(t, 1, f.lot(lot.ID).AvailableSlots)
}

func TestMarkEntry_UsesServiceClock(t *testing.T) {
	f := newFixture(t, at(9, 0))
	lot := f.addLot("Main", 2, 1)
	b := f.mustBook(f.visitor, "KA01AB1234", at(14, 0), at(16, 0))
	id := bookingID(t, b)

	future := at(14, 30)
	_, err := f.svc.Booking.MarkEntry(f.ctx, f.watchman.ID, id, &request.EntryRequest{EntryTime: &future})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// a past entry time cannot start the booking before its window either
	f.setNow(at(13, 0))
	earlier := at(12, 50)
	_, err = f.svc.Booking.MarkEntry(f.ctx, f.watchman.ID, id, &request.EntryRequest{EntryTime: &earlier})
	assert.ErrorIs(t, err, apperr.ErrEarlyEntry)

	assert.Equal(t, entity.BookingStatusConfirmed, f.booking(b.ID).BookingStatus)
	assert.Equal(t, 2, f.lot(lot.ID).AvailableSlots)

	f.setNow(at(14, 10))
	recorded := at(14, 2)
	res, err := f.svc.Booking.MarkEntry(f.ctx, f.watchman.ID, id, &request.EntryRequest{EntryTime: &recorded})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusActive, res.BookingStatus)
	assert.Equal(t, recorded, *res.EntryTime)
	assert.Equal(t, 1, f.lot(lot.ID).AvailableSlots)
}

func TestMarkExit(t *testing.T) {
	t.Run("on time", func(t *testing.T) {
		f := newFixture(t, at(10, 0))
		lot := f.addLot("Main", 2, 1)
		b := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))
		require.Equal(t, 1, f.lot(lot.ID).AvailableSlots)

		f.setNow(at(11, 40))
		res, err := f.svc.Booking.MarkExit(f.ctx, f.watchman.ID, bookingID(t, b), &request.ExitRequest{})
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusCompleted, res.Booking.BookingStatus)
		assert.Nil(t, res.PenaltyPayment)
		assert.Nil(t, res.Booking.PenaltyAmount)
		assert.Equal(t, 2, f.lot(lot.ID).AvailableSlots)

		// a second exit is a no-op
		res, err = f.svc.Booking.MarkExit(f.ctx, f.watchman.ID, bookingID(t, b), &request.ExitRequest{})
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusCompleted, res.Booking.BookingStatus)
		assert.Equal(t, 2, f.lot(lot.ID).AvailableSlots)
	})

	t.Run("overstay collected by watchman", func(t *testing.T) {
		f := newFixture(t, at(10, 0))
		lot := f.addLot("Main", 2, 1)
		b := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))
		f.sweep(at(12, 30))
		require.Equal(t, entity.BookingStatusOverstay, f.booking(b.ID).BookingStatus)

		f.setNow(at(13, 10))
		res, err := f.svc.Booking.MarkExit(f.ctx, f.watchman.ID, bookingID(t, b), &request.ExitRequest{})
		require.NoError(t, err)
		require.NotNil(t, res.PenaltyPayment)
		assert.Equal(t, entity.PaymentTypePenalty, res.PenaltyPayment.PaymentType)
		assert.Equal(t, entity.PaymentStatusCompleted, res.PenaltyPayment.Status)
		assert.Equal(t, entity.PaymentMethodCash, res.PenaltyPayment.Method)
		assert.Equal(t, f.watchman.ID.String(), *res.PenaltyPayment.WatchmanID)
		// 70 minutes late: two started hours at double rate
		assert.InDelta(t, 160.0, res.PenaltyPayment.Amount, 0.001)
		assert.Equal(t, 70, *res.Booking.OverstayMinutes)
		assert.InDelta(t, 80.0+160.0, res.Booking.Amount, 0.001)
		assert.Equal(t, 2, f.lot(lot.ID).AvailableSlots)
	})

	t.Run("late exit before any sweep", func(t *testing.T) {
		f := newFixture(t, at(10, 0))
		lot := f.addLot("Main", 2, 1)
		b := f.mustBook(f.member, "KA01AB1234", at(10, 0), at(12, 0))

		f.setNow(at(12, 20))
		res, err := f.svc.Booking.MarkExit(f.ctx, f.member.ID, bookingID(t, b), &request.ExitRequest{PaymentMethod: "upi"})
		require.NoError(t, err)
		require.NotNil(t, res.PenaltyPayment)
		// overstay is never free, and a self-service exit leaves it unpaid
		assert.InDelta(t, 80.0, res.PenaltyPayment.Amount, 0.001)
		assert.Equal(t, entity.PaymentStatusPending, res.PenaltyPayment.Status)
		assert.Nil(t, res.PenaltyPayment.WatchmanID)
		assert.Equal(t, entity.PaymentStatusPending, res.Booking.PaymentStatus)
		assert.Equal(t, 2, f.lot(lot.ID).AvailableSlots)
	})

	t.Run("exit after cancel is a no-op", func(t *testing.T) {
		f := newFixture(t, at(10, 0))
		lot := f.addLot("Main", 2, 1)
		b := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))

		f.setNow(at(10, 30))
		_, err := f.svc.Booking.CancelBooking(f.ctx, f.visitor.ID, bookingID(t, b))
		require.NoError(t, err)
		require.Equal(t, 2, f.lot(lot.ID).AvailableSlots)

		res, err := f.svc.Booking.MarkExit(f.ctx, f.watchman.ID, bookingID(t, b), &request.ExitRequest{})
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusCancelled, res.Booking.BookingStatus)
		assert.Nil(t, res.PenaltyPayment)
		assert.Equal(t, 2, f.lot(lot.ID).AvailableSlots)
	})

	t.Run("exit time in the future", func(t *testing.T) {
		f := newFixture(t, at(10, 0))
		lot := f.addLot("Main", 2, 1)
		b := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))

		later := at(15, 0)
		_, err := f.svc.Booking.MarkExit(f.ctx, f.watchman.ID, bookingID(t, b), &request.ExitRequest{ExitTime: &later})
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Equal(t, entity.BookingStatusActive, f.booking(b.ID).BookingStatus)
		assert.Equal(t, 1, f.lot(lot.ID).AvailableSlots)
	})

	t.Run("confirmed booking cannot exit", func(t *testing.T) {
		f := newFixture(t, at(9, 0))
		f.addLot("Main", 2, 1)
		b := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))

		_, err := f.svc.Booking.MarkExit(f.ctx, f.watchman.ID, bookingID(t, b), &request.ExitRequest{})
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})

	t.Run("watchman of another organization", func(t *testing.T) {
		f := newFixture(t, at(10, 0))
		f.addLot("Main", 2, 1)
		b := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))
		otherOrg := uuid.New()
		stranger := f.addUser("Other Gate", entity.UserTypeWatchman, &otherOrg)

		_, err := f.svc.Booking.MarkExit(f.ctx, stranger.ID, bookingID(t, b), &request.ExitRequest{})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})
}

func TestSettleOverstayAndRebook(t *testing.T) {
	overstay := func(t *testing.T) (*fixture, *entity.ParkingLot, uuid.UUID) {
		f := newFixture(t, at(10, 0))
		lot := f.addLot("Main", 1, 1)
		b := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))
		f.sweep(at(12, 5))
		f.setNow(at(12, 5))
		return f, lot, bookingID(t, b)
	}

	t.Run("settle only", func(t *testing.T) {
		f, lot, id := overstay(t)

		res, err := f.svc.Booking.SettleOverstayAndRebook(f.ctx, f.visitor.ID, id, &request.SettleOverstayRequest{Method: "card"})
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusCompleted, res.Booking.BookingStatus)
		assert.Equal(t, entity.PaymentTypePenalty, res.PenaltyPayment.PaymentType)
		assert.Equal(t, entity.PaymentStatusCompleted, res.PenaltyPayment.Status)
		assert.InDelta(t, 80.0, res.PenaltyPayment.Amount, 0.001)
		assert.Nil(t, res.NewBooking)
		assert.Equal(t, 1, f.lot(lot.ID).AvailableSlots)

		payments, err := f.svc.Booking.ListPayments(f.ctx, f.visitor.ID, id)
		require.NoError(t, err)
		assert.Len(t, payments, 1)

		_, err = f.svc.Booking.SettleOverstayAndRebook(f.ctx, f.visitor.ID, id, &request.SettleOverstayRequest{Method: "card"})
		assert.ErrorIs(t, err, apperr.ErrNotOverstay)
	})

	t.Run("settle and rebook the freed slot", func(t *testing.T) {
		f, lot, id := overstay(t)

		res, err := f.svc.Booking.SettleOverstayAndRebook(f.ctx, f.visitor.ID, id, &request.SettleOverstayRequest{
			Method: "cash",
			Rebook: &request.RebookWindow{StartTime: at(12, 5), EndTime: at(14, 0)},
		})
		require.NoError(t, err)
		require.NotNil(t, res.NewBooking)
		assert.Equal(t, "Main-1", res.NewBooking.SlotNumber)
		assert.Equal(t, "KA01AB1234", res.NewBooking.VehicleNumber)
		assert.Equal(t, entity.BookingStatusActive, res.NewBooking.BookingStatus)
		assert.Equal(t, 0, f.lot(lot.ID).AvailableSlots)
	})

	t.Run("infeasible rebook leaves the overstay untouched", func(t *testing.T) {
		f, lot, id := overstay(t)
		// Main-1 is reserved from 15:00
		f.insert(lot, "Main-1", at(15, 0), at(16, 0))

		_, err := f.svc.Booking.SettleOverstayAndRebook(f.ctx, f.visitor.ID, id, &request.SettleOverstayRequest{
			Method: "cash",
			Rebook: &request.RebookWindow{StartTime: at(14, 0), EndTime: at(16, 0)},
		})
		assert.ErrorIs(t, err, apperr.ErrNoAvailableSlot)

		b := f.booking(id.String())
		assert.Equal(t, entity.BookingStatusOverstay, b.BookingStatus)
		assert.Nil(t, b.ExitTime)
		assert.Equal(t, 0, f.lot(lot.ID).AvailableSlots)

		payments, err := f.repo.Payment.FindByBookingID(f.ctx, id)
		require.NoError(t, err)
		assert.Empty(t, payments)
	})

	t.Run("invalid rebook window", func(t *testing.T) {
		f, _, id := overstay(t)

		_, err := f.svc.Booking.SettleOverstayAndRebook(f.ctx, f.visitor.ID, id, &request.SettleOverstayRequest{
			Method: "cash",
			Rebook: &request.RebookWindow{StartTime: at(13, 0), EndTime: at(13, 0).Add(30 * time.Hour)},
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidWindow)
		assert.Equal(t, entity.BookingStatusOverstay, f.booking(id.String()).BookingStatus)

		_, err = f.svc.Booking.SettleOverstayAndRebook(f.ctx, f.visitor.ID, id, &request.SettleOverstayRequest{
			Method: "cash",
			Rebook: &request.RebookWindow{StartTime: at(15, 0), EndTime: at(14, 0)},
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidWindow)
		assert.Equal(t, entity.BookingStatusOverstay, f.booking(id.String()).BookingStatus)
	})

	t.Run("active booking", func(t *testing.T) {
		f := newFixture(t, at(10, 0))
		f.addLot("Main", 1, 1)
		b := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))

		_, err := f.svc.Booking.SettleOverstayAndRebook(f.ctx, f.visitor.ID, bookingID(t, b), &request.SettleOverstayRequest{Method: "cash"})
		assert.ErrorIs(t, err, apperr.ErrNotOverstay)
	})
}

func TestPayBooking(t *testing.T) {
	f := newFixture(t, at(9, 0))
	f.addLot("Main", 1, 1)
	b := f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(13, 0))
	txn := "TXN-1"

	p, err := f.svc.Booking.PayBooking(f.ctx, f.visitor.ID, bookingID(t, b), &request.PayBookingRequest{Method: "card", TransactionID: &txn})
	require.NoError(t, err)
	assert.InDelta(t, 120.0, p.Amount, 0.001)
	assert.Equal(t, entity.PaymentTypeBooking, p.PaymentType)
	assert.Equal(t, entity.PaymentStatusCompleted, p.Status)
	assert.Equal(t, entity.PaymentStatusCompleted, f.booking(b.ID).PaymentStatus)

	_, err = f.svc.Booking.PayBooking(f.ctx, f.visitor.ID, bookingID(t, b), &request.PayBookingRequest{Method: "card"})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.svc.Booking.PayBooking(f.ctx, f.visitor.ID, bookingID(t, b), &request.PayBookingRequest{Method: "cheque"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListUserBookings(t *testing.T) {
	f := newFixture(t, at(8, 0))
	f.addLot("Main", 5, 1)
	for i := range 3 {
		f.setNow(at(8, i))
		f.mustBook(f.visitor, fmt.Sprintf("KA01AB000%d", i), at(10, 0), at(11, 0))
	}

	page, err := f.svc.Booking.ListUserBookings(f.ctx, f.visitor.ID, &request.PaginatedRequest{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Equal(t, "KA01AB0002", page.Data[0].VehicleNumber)

	page, err = f.svc.Booking.ListUserBookings(f.ctx, f.visitor.ID, &request.PaginatedRequest{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t, at(9, 0))
	f.addLot("Back", 2, 2)
	f.addLot("Front", 2, 1)
	f.mustBook(f.visitor, "KA01AB1234", at(10, 0), at(12, 0))

	res, err := f.svc.Booking.CheckAvailability(f.ctx, &request.AvailabilityRequest{
		OrganizationID: f.org.ID.String(),
		StartTime:      at(11, 0),
		EndTime:        at(13, 0),
	})
	require.NoError(t, err)
	require.Len(t, res.Lots, 2)
	assert.Equal(t, "Front", res.Lots[0].Name)
	assert.Equal(t, []string{"Front-2"}, res.Lots[0].FreeSlots)
	assert.Equal(t, []string{"Back-1", "Back-2"}, res.Lots[1].FreeSlots)

	// half-open: the window starting at the old end sees everything free
	res, err = f.svc.Booking.CheckAvailability(f.ctx, &request.AvailabilityRequest{
		OrganizationID: f.org.ID.String(),
		StartTime:      at(12, 0),
		EndTime:        at(13, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Front-1", "Front-2"}, res.Lots[0].FreeSlots)

	_, err = f.svc.Booking.CheckAvailability(f.ctx, &request.AvailabilityRequest{
		OrganizationID: f.org.ID.String(),
		StartTime:      at(13, 0),
		EndTime:        at(13, 0),
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidWindow)
}
