package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restobook/config"
	"github.com/yeremiapane/restobook/database"
	"github.com/yeremiapane/restobook/models"
	"github.com/yeremiapane/restobook/services"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db         *gorm.DB
	customer   models.User
	other      models.User
	staff      models.User
	restaurant models.Restaurant
	big        models.Table // capacity 4
	small      models.Table // capacity 2
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.InitDB(&config.Config{
		DB: config.DBConfig{Driver: config.DriverSQLite, DSN: "file::memory:"},
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: setupTestDB(t)}

	f.customer = models.User{Name: "Anna", Email: "anna@example.com", Password: "x", Role: models.RoleCustomer}
	f.other = models.User{Name: "Boris", Email: "boris@example.com", Password: "x", Role: models.RoleCustomer}
	f.staff = models.User{Name: "Staff", Email: "staff@example.com", Password: "x", Role: models.RoleStaff}
	require.NoError(t, f.db.Create(&f.customer).Error)
	require.NoError(t, f.db.Create(&f.other).Error)
	require.NoError(t, f.db.Create(&f.staff).Error)

	f.restaurant = models.Restaurant{Name: "Pushkin", CuisineType: models.CuisineRussian, Address: "Tverskoy blvd 26"}
	require.NoError(t, f.db.Create(&f.restaurant).Error)

	f.big = models.Table{RestaurantID: f.restaurant.ID, TableNumber: "1", Capacity: 4, PricePerHour: 1500}
	f.small = models.Table{RestaurantID: f.restaurant.ID, TableNumber: "2", Capacity: 2, PricePerHour: 800}
	require.NoError(t, f.db.Create(&f.big).Error)
	require.NoError(t, f.db.Create(&f.small).Error)
	return f
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(event string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func newBooking(f *fixture, opts ...services.BookingOption) *services.BookingService {
	base := []services.BookingOption{
		services.WithClock(func() time.Time { return fixedNow }),
		services.WithSchedule(services.Schedule{Open: "10:00", Close: "23:00", Location: time.UTC}),
	}
	return services.NewBookingService(f.db, append(base, opts...)...)
}

func request(f *fixture, table models.Table, guests int) services.ReservationRequest {
	return services.ReservationRequest{
		TableID:     table.ID,
		UserID:      f.customer.ID,
		Date:        "2024-06-01",
		Time:        "19:00",
		GuestsCount: guests,
	}
}

func countReservations(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Reservation{}).Count(&n).Error)
	return n
}

func TestSubmitCancelResubmit(t *testing.T) {
	f := newFixture(t)
	events := &recordingPublisher{}
	svc := newBooking(f, services.WithPublisher(events))
	ctx := context.Background()

	first, err := svc.SubmitReservation(ctx, request(f, f.big, 2))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, first.Status)
	assert.Equal(t, "2024-06-01", first.ReservationDate)
	assert.Equal(t, "19:00", first.ReservationTime)

	_, err = svc.SubmitReservation(ctx, request(f, f.big, 2))
	assert.ErrorIs(t, err, services.ErrConflict)

	cancelled, err := svc.CancelReservation(ctx, first.ID, services.Actor{UserID: f.customer.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	third, err := svc.SubmitReservation(ctx, request(f, f.big, 2))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, third.Status)
	assert.NotEqual(t, first.ID, third.ID)

	assert.Equal(t, []string{
		services.EventReservationCreated,
		services.EventReservationCancelled,
		services.EventReservationCreated,
	}, events.Events())
}

func TestSubmitCapacityExceeded(t *testing.T) {
	f := newFixture(t)
	svc := newBooking(f)

	_, err := svc.SubmitReservation(context.Background(), request(f, f.small, 5))
	assert.ErrorIs(t, err, services.ErrCapacityExceeded)
	assert.Equal(t, int64(0), countReservations(t, f.db))
}

func TestSubmitPastDateOnFreeSlot(t *testing.T) {
	f := newFixture(t)
	svc := newBooking(f)

	req := request(f, f.big, 2)
	req.Date = "2024-04-30"
	_, err := svc.SubmitReservation(context.Background(), req)
	assert.ErrorIs(t, err, services.ErrInvalidSchedule)
	assert.Equal(t, int64(0), countReservations(t, f.db))
}

func TestSubmitTodayIsBookable(t *testing.T) {
	f := newFixture(t)
	svc := newBooking(f)

	req := request(f, f.big, 2)
	req.Date = "2024-05-01"
	_, err := svc.SubmitReservation(context.Background(), req)
	assert.NoError(t, err)
}

func TestSubmitScheduleWindow(t *testing.T) {
	f := newFixture(t)
	svc := newBooking(f)
	ctx := context.Background()

	cases := []struct {
		clock string
		ok    bool
	}{
		{"09:59", false},
		{"10:00", true},
		{"23:00", true},
		{"22:59:59", true},
		{"23:00:59", false},
		{"09:59:59", false},
		{"12:00:30", true},
		{"23:01", false},
	}
	for _, tc := range cases {
		req := request(f, f.big, 2)
		req.Time = tc.clock
		_, err := svc.SubmitReservation(ctx, req)
		if tc.ok {
			assert.NoError(t, err, tc.clock)
		} else {
			assert.ErrorIs(t, err, services.ErrInvalidSchedule, tc.clock)
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	svc := newBooking(f)
	ctx := context.Background()

	req := request(f, f.big, 0)
	_, err := svc.SubmitReservation(ctx, req)
	assert.ErrorIs(t, err, services.ErrValidation)

	req = request(f, f.big, 21)
	_, err = svc.SubmitReservation(ctx, req)
	assert.ErrorIs(t, err, services.ErrValidation)

	req = request(f, f.big, 2)
	req.Date = "01.06.2024"
	_, err = svc.SubmitReservation(ctx, req)
	assert.ErrorIs(t, err, services.ErrValidation)

	req = request(f, f.big, 2)
	req.Time = "7pm"
	_, err = svc.SubmitReservation(ctx, req)
	assert.ErrorIs(t, err, services.ErrValidation)

	req = request(f, f.big, 2)
	req.TableID = 9999
	_, err = svc.SubmitReservation(ctx, req)
	assert.ErrorIs(t, err, services.ErrNotFound)

	assert.Equal(t, int64(0), countReservations(t, f.db))
}

func TestSubmitAcceptsSeconds(t *testing.T) {
	f := newFixture(t)
	svc := newBooking(f)
	ctx := context.Background()

	req := request(f, f.big, 2)
	req.Time = "19:00:00"
	r, err := svc.SubmitReservation(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "19:00", r.ReservationTime)

	_, err = svc.SubmitReservation(ctx, request(f, f.big, 2))
	assert.ErrorIs(t, err, services.ErrConflict)
}

func TestSubmitOtherSlotsStayFree(t *testing.T) {
	f := newFixture(t)
	svc := newBooking(f)
	ctx := context.Background()

	_, err := svc.SubmitReservation(ctx, request(f, f.big, 2))
	require.NoError(t, err)

	other := request(f, f.big, 2)
	other.Time = "20:00"
	_, err = svc.SubmitReservation(ctx, other)
	assert.NoError(t, err)

	otherTable := request(f, f.small, 2)
	_, err = svc.SubmitReservation(ctx, otherTable)
	assert.NoError(t, err)
}

func TestConcurrentSubmitOneWins(t *testing.T) {
	f := newFixture(t)
	svc := newBooking(f)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.SubmitReservation(ctx, request(f, f.big, 2))
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, services.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(1), countReservations(t, f.db))
}

func TestActiveSlotIndexRejectsDuplicate(t *testing.T) {
	f := newFixture(t)

	first := models.Reservation{UserID: f.customer.ID, TableID: f.big.ID, ReservationDate: "2024-06-01", ReservationTime: "19:00", GuestsCount: 2}
	require.NoError(t, f.db.Create(&first).Error)

	dup := models.Reservation{UserID: f.other.ID, TableID: f.big.ID, ReservationDate: "2024-06-01", ReservationTime: "19:00", GuestsCount: 2}
	err := f.db.Create(&dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	cancelled := models.Reservation{UserID: f.other.ID, TableID: f.big.ID, ReservationDate: "2024-06-01", ReservationTime: "19:00", GuestsCount: 2, Status: models.StatusCancelled}
	assert.NoError(t, f.db.Create(&cancelled).Error)
}

func TestCancelPermissions(t *testing.T) {
	f := newFixture(t)
	svc := newBooking(f)
	ctx := context.Background()

	r, err := svc.SubmitReservation(ctx, request(f, f.big, 2))
	require.NoError(t, err)

	_, err = svc.CancelReservation(ctx, r.ID, services.Actor{UserID: f.other.ID})
	assert.ErrorIs(t, err, services.ErrForbidden)

	cancelled, err := svc.CancelReservation(ctx, r.ID, services.Actor{UserID: f.staff.ID, Staff: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = svc.CancelReservation(ctx, r.ID, services.Actor{UserID: f.customer.ID})
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	_, err = svc.CancelReservation(ctx, 9999, services.Actor{UserID: f.customer.ID})
	assert.ErrorIs(t, err, services.ErrNotFound)

	var notifications []models.Notification
	require.NoError(t, f.db.Where("user_id = ?", f.customer.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Reservation cancelled", notifications[0].Title)
	assert.False(t, notifications[0].IsRead)
}

func TestConfirmReservation(t *testing.T) {
	f := newFixture(t)
	events := &recordingPublisher{}
	svc := newBooking(f, services.WithPublisher(events))
	ctx := context.Background()

	r, err := svc.SubmitReservation(ctx, request(f, f.big, 2))
	require.NoError(t, err)

	_, err = svc.ConfirmReservation(ctx, r.ID, services.Actor{UserID: f.customer.ID})
	assert.ErrorIs(t, err, services.ErrForbidden)

	confirmed, err := svc.ConfirmReservation(ctx, r.ID, services.Actor{UserID: f.staff.ID, Staff: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)

	// a confirmed booking still holds its slot
	_, err = svc.SubmitReservation(ctx, request(f, f.big, 2))
	assert.ErrorIs(t, err, services.ErrConflict)

	_, err = svc.ConfirmReservation(ctx, r.ID, services.Actor{UserID: f.staff.ID, Staff: true})
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	_, err = svc.CancelReservation(ctx, r.ID, services.Actor{UserID: f.customer.ID})
	require.NoError(t, err)

	_, err = svc.ConfirmReservation(ctx, r.ID, services.Actor{UserID: f.staff.ID, Staff: true})
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	assert.Contains(t, events.Events(), services.EventReservationConfirmed)
}

func TestFindAvailableTables(t *testing.T) {
	f := newFixture(t)
	svc := newBooking(f)
	ctx := context.Background()

	tables, err := svc.FindAvailableTables(ctx, f.restaurant.ID, "2024-06-01", 1)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, f.big.ID, tables[0].ID)
	assert.Equal(t, f.small.ID, tables[1].ID)

	tables, err = svc.FindAvailableTables(ctx, f.restaurant.ID, "2024-06-01", 3)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, f.big.ID, tables[0].ID)

	// a booking at any time of day takes the table off the list for that date
	req := request(f, f.big, 2)
	req.Time = "12:00"
	r, err := svc.SubmitReservation(ctx, req)
	require.NoError(t, err)

	tables, err = svc.FindAvailableTables(ctx, f.restaurant.ID, "2024-06-01", 1)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, f.small.ID, tables[0].ID)

	tables, err = svc.FindAvailableTables(ctx, f.restaurant.ID, "2024-06-02", 1)
	require.NoError(t, err)
	assert.Len(t, tables, 2)

	_, err = svc.CancelReservation(ctx, r.ID, services.Actor{UserID: f.customer.ID})
	require.NoError(t, err)
	tables, err = svc.FindAvailableTables(ctx, f.restaurant.ID, "2024-06-01", 1)
	require.NoError(t, err)
	assert.Len(t, tables, 2)

	tables, err = svc.FindAvailableTables(ctx, f.restaurant.ID, "2024-06-01", 10)
	require.NoError(t, err)
	assert.NotNil(t, tables)
	assert.Empty(t, tables)

	_, err = svc.FindAvailableTables(ctx, 9999, "2024-06-01", 1)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = svc.FindAvailableTables(ctx, f.restaurant.ID, "June 1", 1)
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestReservationListings(t *testing.T) {
	f := newFixture(t)
	svc := newBooking(f)
	ctx := context.Background()

	early := request(f, f.big, 2)
	early.Time = "12:00"
	_, err := svc.SubmitReservation(ctx, early)
	require.NoError(t, err)

	late := request(f, f.small, 2)
	late.Date = "2024-06-02"
	late.UserID = f.other.ID
	second, err := svc.SubmitReservation(ctx, late)
	require.NoError(t, err)
	_, err = svc.ConfirmReservation(ctx, second.ID, services.Actor{UserID: f.staff.ID, Staff: true})
	require.NoError(t, err)

	mine, err := svc.UserReservations(ctx, f.customer.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Table)
	require.NotNil(t, mine[0].Table.Restaurant)
	assert.Equal(t, "Pushkin", mine[0].Table.Restaurant.Name)

	count, err := svc.CountUserReservations(ctx, f.other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	all, err := svc.Reservations(ctx, services.ReservationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2024-06-02", all[0].ReservationDate)

	confirmed, err := svc.Reservations(ctx, services.ReservationFilter{Status: "confirmed"})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, second.ID, confirmed[0].ID)
	require.NotNil(t, confirmed[0].User)
	assert.Equal(t, f.other.Email, confirmed[0].User.Email)

	byDate, err := svc.Reservations(ctx, services.ReservationFilter{Date: "2024-06-01", RestaurantID: f.restaurant.ID})
	require.NoError(t, err)
	assert.Len(t, byDate, 1)

	none, err := svc.Reservations(ctx, services.ReservationFilter{RestaurantID: 9999})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.Reservations(ctx, services.ReservationFilter{Status: "done"})
	assert.ErrorIs(t, err, services.ErrValidation)
}
