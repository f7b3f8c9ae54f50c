package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobook/models"
	"github.com/yeremiapane/restobook/services"
	"github.com/yeremiapane/restobook/utils"
	"gorm.io/gorm"
)

type TableController struct {
	DB      *gorm.DB
	Booking *services.BookingService
	Catalog *services.CatalogService
	Events  services.Publisher
}

func NewTableController(db *gorm.DB, booking *services.BookingService, catalog *services.CatalogService, events services.Publisher) *TableController {
	return &TableController{DB: db, Booking: booking, Catalog: catalog, Events: events}
}

// AvailableTables -> GET /restaurants/:restaurant_id/available-tables?date=&min_guests=
// date defaults to today and min_guests to 1.
func (tc *TableController) AvailableTables(c *gin.Context) {
	restaurantID, ok := paramID(c, "restaurant_id")
	if !ok {
		return
	}

	date := c.Query("date")
	if date == "" {
		date = tc.Booking.Today()
	}
	minGuests := models.MinGuests
	if raw := c.Query("min_guests"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < models.MinGuests || n > models.MaxGuests {
			utils.RespondError(c, http.StatusBadRequest, errors.New("min_guests must be a number between 1 and 20"))
			return
		}
		minGuests = n
	}

	tables, err := tc.Booking.FindAvailableTables(c.Request.Context(), restaurantID, date, minGuests)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Available tables", gin.H{
		"date":       date,
		"min_guests": minGuests,
		"tables":     tables,
	})
}

// CreateTable -> POST /admin/restaurants/:restaurant_id/tables
func (tc *TableController) CreateTable(c *gin.Context) {
	restaurantID, ok := paramID(c, "restaurant_id")
	if !ok {
		return
	}
	var req struct {
		TableNumber  string   `json:"table_number" binding:"required,max=10"`
		Capacity     int      `json:"capacity" binding:"required,min=1"`
		PricePerHour *float64 `json:"price_per_hour" binding:"omitempty,min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if _, err := tc.Catalog.Restaurant(c.Request.Context(), restaurantID); err != nil {
		respondServiceError(c, err)
		return
	}

	table := models.Table{
		RestaurantID: restaurantID,
		TableNumber:  req.TableNumber,
		Capacity:     req.Capacity,
		PricePerHour: 500,
	}
	if req.PricePerHour != nil {
		table.PricePerHour = *req.PricePerHour
	}

	if err := tc.DB.Create(&table).Error; err != nil {
		respondTableWriteError(c, err)
		return
	}

	tc.Events.Publish(services.EventTableCreated, table)
	utils.InfoLogger.Printf("New table created: restaurant=%d number=%s capacity=%d", table.RestaurantID, table.TableNumber, table.Capacity)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// UpdateTable -> PATCH /admin/tables/:table_id, partial update.
func (tc *TableController) UpdateTable(c *gin.Context) {
	tableID, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	var body struct {
		TableNumber  *string  `json:"table_number" binding:"omitempty,max=10"`
		Capacity     *int     `json:"capacity" binding:"omitempty,min=1"`
		PricePerHour *float64 `json:"price_per_hour" binding:"omitempty,min=0"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	if body.TableNumber != nil {
		table.TableNumber = *body.TableNumber
	}
	if body.Capacity != nil {
		table.Capacity = *body.Capacity
	}
	if body.PricePerHour != nil {
		table.PricePerHour = *body.PricePerHour
	}

	if err := tc.DB.Omit("Restaurant").Save(&table).Error; err != nil {
		respondTableWriteError(c, err)
		return
	}

	tc.Events.Publish(services.EventTableUpdated, table)
	utils.InfoLogger.Printf("Table %d updated", table.ID)
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

// DeleteTable -> DELETE /admin/tables/:table_id, drops its reservations too.
func (tc *TableController) DeleteTable(c *gin.Context) {
	tableID, ok := paramID(c, "table_id")
	if !ok {
		return
	}

	table, err := tc.Catalog.DeleteTable(c.Request.Context(), tableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	tc.Events.Publish(services.EventTableDeleted, gin.H{
		"table_id":      table.ID,
		"restaurant_id": table.RestaurantID,
	})
	utils.InfoLogger.Printf("Table %d deleted", table.ID)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{
		"id": table.ID,
	})
}

func respondTableWriteError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		utils.RespondError(c, http.StatusConflict, errors.New("table number already exists in this restaurant"))
		return
	}
	respondServiceError(c, err)
}
