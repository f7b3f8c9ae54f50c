package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobook/middlewares"
	"github.com/yeremiapane/restobook/models"
	"github.com/yeremiapane/restobook/services"
	"github.com/yeremiapane/restobook/utils"
	"gorm.io/gorm"
)

var (
	ErrNoPermission = errors.New("you do not have permission to perform this action")
	ErrNoUser       = errors.New("user id not found in context")
)

// respondServiceError maps booking and catalog errors onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, models.ErrTableNumberRequired),
		errors.Is(err, models.ErrTableCapacity),
		errors.Is(err, models.ErrTablePrice),
		errors.Is(err, models.ErrRestaurantNameRequired),
		errors.Is(err, models.ErrUnknownCuisine),
		errors.Is(err, models.ErrInvalidStatus):
		code = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		code = http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, gorm.ErrDuplicatedKey):
		code = http.StatusConflict
	case errors.Is(err, services.ErrCapacityExceeded),
		errors.Is(err, services.ErrInvalidSchedule):
		code = http.StatusUnprocessableEntity
	}

	if code == http.StatusInternalServerError {
		utils.ErrorLogger.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		_ = c.Error(err)
	}
	utils.RespondError(c, code, err)
}

// currentActor reads the authenticated user set by AuthMiddleware.
func currentActor(c *gin.Context) (services.Actor, bool) {
	id, ok := c.Get(middlewares.ContextUserID)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrNoUser)
		return services.Actor{}, false
	}
	userID, ok := id.(uint)
	if !ok || userID == 0 {
		utils.RespondError(c, http.StatusUnauthorized, ErrNoUser)
		return services.Actor{}, false
	}
	return services.Actor{UserID: userID, Staff: c.GetString(middlewares.ContextRole) == models.RoleStaff}, true
}

// paramID parses a positive numeric path parameter, answering 400 otherwise.
func paramID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s %q", name, raw))
		return 0, false
	}
	return uint(id), true
}
