package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobook/models"
	"github.com/yeremiapane/restobook/services"
	"github.com/yeremiapane/restobook/utils"
	"gorm.io/gorm"
)

type AdminController struct {
	DB      *gorm.DB
	Booking *services.BookingService
}

func NewAdminController(db *gorm.DB, booking *services.BookingService) *AdminController {
	return &AdminController{DB: db, Booking: booking}
}

// GetDashboardStats -> GET /admin/dashboard/stats
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	today := ac.Booking.Today()
	db := ac.DB.WithContext(c.Request.Context())

	var stats struct {
		Today             string `json:"today"`
		TotalRestaurants  int64  `json:"total_restaurants"`
		TotalTables       int64  `json:"total_tables"`
		TotalCustomers    int64  `json:"total_customers"`
		TodayReservations int64  `json:"today_reservations"`
		FreeTablesToday   int64  `json:"free_tables_today"`
		ReservationStats  struct {
			Pending   int64 `json:"pending"`
			Confirmed int64 `json:"confirmed"`
			Cancelled int64 `json:"cancelled"`
		} `json:"reservation_stats"`
	}
	stats.Today = today

	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{db.Model(&models.Restaurant{}), &stats.TotalRestaurants},
		{db.Model(&models.Table{}), &stats.TotalTables},
		{db.Model(&models.User{}).Where("role = ?", models.RoleCustomer), &stats.TotalCustomers},
		{db.Model(&models.Reservation{}).Where("reservation_date = ? AND status IN ?", today, models.ActiveStatuses()), &stats.TodayReservations},
		{db.Model(&models.Table{}).Where("id NOT IN (?)", db.Model(&models.Reservation{}).Select("table_id").Where("reservation_date = ? AND status IN ?", today, models.ActiveStatuses())), &stats.FreeTablesToday},
		{db.Model(&models.Reservation{}).Where("status = ?", string(models.StatusPending)), &stats.ReservationStats.Pending},
		{db.Model(&models.Reservation{}).Where("status = ?", string(models.StatusConfirmed)), &stats.ReservationStats.Confirmed},
		{db.Model(&models.Reservation{}).Where("status = ?", string(models.StatusCancelled)), &stats.ReservationStats.Cancelled},
	}
	for _, q := range counts {
		if err := q.query.Count(q.dest).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
	}

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats retrieved successfully", stats)
}
