package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restobook/models"
	"github.com/yeremiapane/restobook/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Booking outcomes. All of them are expected, user-facing results.
var (
	ErrConflict          = errors.New("table is already reserved for the selected date and time")
	ErrCapacityExceeded  = errors.New("number of guests exceeds table capacity")
	ErrInvalidSchedule   = errors.New("reservation date or time is outside the bookable schedule")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid reservation request")
	ErrForbidden         = errors.New("you do not have permission")
	ErrInvalidTransition = errors.New("reservation status change is not allowed")
)

// Events published after a booking change is committed.
const (
	EventReservationCreated   = "reservation_created"
	EventReservationCancelled = "reservation_cancelled"
	EventReservationConfirmed = "reservation_confirmed"
	EventTableCreated         = "table_created"
	EventTableUpdated         = "table_updated"
	EventTableDeleted         = "table_deleted"
)

type Publisher interface {
	Publish(event string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

// Schedule is the daily booking window, inclusive on both ends.
type Schedule struct {
	Open     string
	Close    string
	Location *time.Location
}

func DefaultSchedule() Schedule {
	return Schedule{Open: "10:00", Close: "23:00", Location: time.Local}
}

// Actor is whoever asks for a status change.
type Actor struct {
	UserID uint
	Staff  bool
}

type ReservationRequest struct {
	TableID     uint
	UserID      uint
	Date        string
	Time        string
	GuestsCount int
	Notes       string
}

type ReservationFilter struct {
	Status       string
	Date         string
	RestaurantID uint
}

type BookingService struct {
	db       *gorm.DB
	schedule Schedule
	now      func() time.Time
	events   Publisher
}

type BookingOption func(*BookingService)

func WithClock(now func() time.Time) BookingOption {
	return func(s *BookingService) { s.now = now }
}

func WithSchedule(schedule Schedule) BookingOption {
	return func(s *BookingService) {
		if schedule.Location == nil {
			schedule.Location = time.Local
		}
		s.schedule = schedule
	}
}

func WithPublisher(p Publisher) BookingOption {
	return func(s *BookingService) {
		if p != nil {
			s.events = p
		}
	}
}

func NewBookingService(db *gorm.DB, opts ...BookingOption) *BookingService {
	s := &BookingService{
		db:       db,
		schedule: DefaultSchedule(),
		now:      time.Now,
		events:   noopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current date in the booking location.
func (s *BookingService) Today() string {
	return s.now().In(s.schedule.Location).Format(models.DateLayout)
}

// busyTableIDs selects tables holding an active reservation on date.
func busyTableIDs(db *gorm.DB, date string) *gorm.DB {
	return db.Model(&models.Reservation{}).
		Select("table_id").
		Where("reservation_date = ? AND status IN ?", date, models.ActiveStatuses())
}

// FindAvailableTables returns the restaurant's tables with no active
// reservation on date and at least minGuests seats, ordered by id.
func (s *BookingService) FindAvailableTables(ctx context.Context, restaurantID uint, date string, minGuests int) ([]models.Table, error) {
	day, err := normalizeDate(date)
	if err != nil {
		return nil, err
	}
	if minGuests < models.MinGuests {
		minGuests = models.MinGuests
	}

	db := s.db.WithContext(ctx)

	var restaurant models.Restaurant
	if err := db.Select("id").First(&restaurant, restaurantID).Error; err != nil {
		return nil, lookupError("restaurant", restaurantID, err)
	}

	tables := []models.Table{}
	err = db.Where("restaurant_id = ? AND capacity >= ?", restaurantID, minGuests).
		Where("id NOT IN (?)", busyTableIDs(db, day)).
		Order("id ASC").
		Find(&tables).Error
	if err != nil {
		return nil, fmt.Errorf("find available tables: %w", err)
	}
	return tables, nil
}

// SubmitReservation runs the admission check and stores the reservation as
// pending. The table row is locked for the duration of the check and insert;
// the unique active-slot index backs this up, and any storage failure in the
// transaction is reported as ErrConflict.
func (s *BookingService) SubmitReservation(ctx context.Context, req ReservationRequest) (*models.Reservation, error) {
	day, err := normalizeDate(req.Date)
	if err != nil {
		return nil, err
	}
	clock, exact, err := normalizeTime(req.Time)
	if err != nil {
		return nil, err
	}
	if req.GuestsCount < models.MinGuests || req.GuestsCount > models.MaxGuests {
		return nil, fmt.Errorf("%w: guests_count must be between %d and %d", ErrValidation, models.MinGuests, models.MaxGuests)
	}

	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Select("id").First(&user, req.UserID).Error; err != nil {
		return nil, lookupError("user", req.UserID, err)
	}

	reservation := models.Reservation{
		UserID:          req.UserID,
		TableID:         req.TableID,
		ReservationDate: day,
		ReservationTime: clock,
		GuestsCount:     req.GuestsCount,
		SpecialRequests: strings.TrimSpace(req.Notes),
		Status:          models.StatusPending,
	}

	var table models.Table
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&table, req.TableID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lookupError("table", req.TableID, err)
			}
			return fmt.Errorf("%w: lock table: %v", ErrConflict, err)
		}

		var active int64
		err := tx.Model(&models.Reservation{}).
			Where("table_id = ? AND reservation_date = ? AND reservation_time = ? AND status IN ?",
				table.ID, day, clock, models.ActiveStatuses()).
			Count(&active).Error
		if err != nil {
			return fmt.Errorf("%w: check slot: %v", ErrConflict, err)
		}
		if active > 0 {
			return ErrConflict
		}

		if req.GuestsCount > table.Capacity {
			return fmt.Errorf("%w: table %s seats %d", ErrCapacityExceeded, table.TableNumber, table.Capacity)
		}

		if err := s.checkSchedule(day, exact); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(&reservation).Error; err != nil {
			return fmt.Errorf("%w: insert reservation: %v", ErrConflict, err)
		}
		return nil
	})
	if err != nil {
		return nil, classifyTxError(err)
	}

	reservation.Table = &table
	utils.InfoLogger.WithFields(logrus.Fields{
		"reservation_id": reservation.ID,
		"table_id":       reservation.TableID,
		"slot":           reservation.ReservationDate + " " + reservation.ReservationTime,
		"guests":         reservation.GuestsCount,
	}).Info("Reservation created")
	s.events.Publish(EventReservationCreated, reservation)

	return &reservation, nil
}

// CancelReservation moves an active reservation to cancelled. Owners and staff
// may cancel at any time; the slot is released in the same write.
func (s *BookingService) CancelReservation(ctx context.Context, reservationID uint, actor Actor) (*models.Reservation, error) {
	return s.transition(ctx, reservationID, actor, models.StatusCancelled)
}

// ConfirmReservation is the staff-only pending -> confirmed move.
func (s *BookingService) ConfirmReservation(ctx context.Context, reservationID uint, actor Actor) (*models.Reservation, error) {
	if !actor.Staff {
		return nil, ErrForbidden
	}
	return s.transition(ctx, reservationID, actor, models.StatusConfirmed)
}

func (s *BookingService) transition(ctx context.Context, reservationID uint, actor Actor, next models.ReservationStatus) (*models.Reservation, error) {
	var reservation models.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reservation, reservationID).Error; err != nil {
			return lookupError("reservation", reservationID, err)
		}
		if !actor.Staff && !reservation.OwnedBy(actor.UserID) {
			return ErrForbidden
		}
		if !reservation.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, reservation.Status, next)
		}

		reservation.Status = next
		if err := tx.Omit(clause.Associations).Save(&reservation).Error; err != nil {
			return fmt.Errorf("update reservation %d: %w", reservation.ID, err)
		}

		if actor.Staff && !reservation.OwnedBy(actor.UserID) {
			notif := statusNotification(reservation)
			if err := tx.Create(&notif).Error; err != nil {
				return fmt.Errorf("create notification: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := EventReservationCancelled
	if next == models.StatusConfirmed {
		event = EventReservationConfirmed
	}
	utils.InfoLogger.Printf("Reservation %d is now %s (actor=%d staff=%t)", reservation.ID, reservation.Status, actor.UserID, actor.Staff)
	s.events.Publish(event, reservation)

	return &reservation, nil
}

func statusNotification(r models.Reservation) models.Notification {
	var title string
	switch r.Status {
	case models.StatusConfirmed:
		title = "Reservation confirmed"
	case models.StatusCancelled:
		title = "Reservation cancelled"
	case models.StatusPending:
		title = "Reservation pending"
	}
	return models.Notification{
		UserID:  r.UserID,
		Title:   title,
		Message: fmt.Sprintf("Your reservation #%d for %s at %s is %s.", r.ID, r.ReservationDate, r.ReservationTime, r.Status),
	}
}

// UserReservations lists a user's bookings, latest slot first.
func (s *BookingService) UserReservations(ctx context.Context, userID uint) ([]models.Reservation, error) {
	reservations := []models.Reservation{}
	err := s.db.WithContext(ctx).
		Preload("Table.Restaurant").
		Where("user_id = ?", userID).
		Order("reservation_date DESC").
		Order("reservation_time DESC").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("list user reservations: %w", err)
	}
	return reservations, nil
}

func (s *BookingService) CountUserReservations(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Reservation{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Reservations is the staff listing with optional filters.
func (s *BookingService) Reservations(ctx context.Context, filter ReservationFilter) ([]models.Reservation, error) {
	query := s.db.WithContext(ctx).Model(&models.Reservation{}).Preload("Table.Restaurant").Preload("User")

	if filter.Status != "" {
		status, err := models.ParseReservationStatus(filter.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		query = query.Where("reservations.status = ?", string(status))
	}
	if filter.Date != "" {
		day, err := normalizeDate(filter.Date)
		if err != nil {
			return nil, err
		}
		query = query.Where("reservations.reservation_date = ?", day)
	}
	if filter.RestaurantID != 0 {
		query = query.Joins("JOIN tables ON tables.id = reservations.table_id").
			Where("tables.restaurant_id = ?", filter.RestaurantID)
	}

	reservations := []models.Reservation{}
	err := query.Order("reservations.reservation_date DESC").
		Order("reservations.reservation_time DESC").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}

// checkSchedule compares clock as HH:MM:SS so that 23:00:30 falls after a
// 23:00 close.
func (s *BookingService) checkSchedule(day, clock string) error {
	if day < s.Today() {
		return fmt.Errorf("%w: %s is in the past", ErrInvalidSchedule, day)
	}
	if clock < s.schedule.Open+":00" || clock > s.schedule.Close+":00" {
		return fmt.Errorf("%w: %s is outside %s-%s", ErrInvalidSchedule, clock, s.schedule.Open, s.schedule.Close)
	}
	return nil
}

func normalizeDate(value string) (string, error) {
	d, err := time.Parse(models.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return d.Format(models.DateLayout), nil
}

// normalizeTime accepts HH:MM or HH:MM:SS. It returns the stored minute
// precision clock and the full HH:MM:SS value for the window check.
func normalizeTime(value string) (string, string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{models.TimeLayout, secondsLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(models.TimeLayout), t.Format(secondsLayout), nil
		}
	}
	return "", "", fmt.Errorf("%w: time must be HH:MM", ErrValidation)
}

const secondsLayout = "15:04:05"

func lookupError(kind string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
	}
	return fmt.Errorf("load %s %d: %w", kind, id, err)
}

// classifyTxError keeps admission outcomes as they are and folds every other
// failure of the check+insert transaction (commit, lock, driver) into ErrConflict.
func classifyTxError(err error) error {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrInvalidSchedule),
		errors.Is(err, ErrNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}
