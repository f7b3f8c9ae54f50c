package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yeremiapane/restobook/models"
	"github.com/yeremiapane/restobook/services"
	"github.com/yeremiapane/restobook/utils"
	"gorm.io/gorm"
)

const maxImageSize = 5 << 20

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// IsImagePath reports whether the path ends in an accepted image extension.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

type RestaurantController struct {
	DB        *gorm.DB
	Catalog   *services.CatalogService
	UploadDir string
}

func NewRestaurantController(db *gorm.DB, catalog *services.CatalogService, uploadDir string) *RestaurantController {
	return &RestaurantController{DB: db, Catalog: catalog, UploadDir: uploadDir}
}

type restaurantInput struct {
	Name         *string   `json:"name" binding:"omitempty,max=100"`
	Description  *string   `json:"description"`
	CuisineType  *string   `json:"cuisine_type"`
	Address      *string   `json:"address"`
	Phone        *string   `json:"phone" binding:"omitempty,max=20"`
	OpeningHours *string   `json:"opening_hours" binding:"omitempty,max=100"`
	Website      *string   `json:"website" binding:"omitempty,max=255"`
	Tags         *[]string `json:"tags"`
}

func (in restaurantInput) apply(r *models.Restaurant) {
	if in.Name != nil {
		r.Name = *in.Name
	}
	if in.Description != nil {
		r.Description = *in.Description
	}
	if in.CuisineType != nil {
		r.CuisineType = models.CuisineType(strings.ToLower(strings.TrimSpace(*in.CuisineType)))
	}
	if in.Address != nil {
		r.Address = strings.TrimSpace(*in.Address)
	}
	if in.Phone != nil {
		r.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.OpeningHours != nil {
		r.OpeningHours = strings.TrimSpace(*in.OpeningHours)
	}
	if in.Website != nil {
		if w := strings.TrimSpace(*in.Website); w != "" {
			r.Website = &w
		} else {
			r.Website = nil
		}
	}
}

// ListRestaurants -> GET /restaurants?cuisine=
func (rc *RestaurantController) ListRestaurants(c *gin.Context) {
	restaurants, err := rc.Catalog.Restaurants(c.Request.Context(), c.Query("cuisine"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of restaurants", restaurants)
}

// SearchRestaurants -> GET /restaurants/search?q=
func (rc *RestaurantController) SearchRestaurants(c *gin.Context) {
	result, err := rc.Catalog.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Search results", result)
}

func (rc *RestaurantController) GetRestaurant(c *gin.Context) {
	id, ok := paramID(c, "restaurant_id")
	if !ok {
		return
	}
	detail, err := rc.Catalog.RestaurantDetail(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Restaurant detail", detail)
}

func (rc *RestaurantController) CreateRestaurant(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var in restaurantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if in.Name == nil || in.CuisineType == nil || in.Address == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("name, cuisine_type and address are required"))
		return
	}

	restaurant := models.Restaurant{CreatedByID: &actor.UserID}
	in.apply(&restaurant)
	if in.Tags != nil {
		tags, err := rc.Catalog.ResolveTags(c.Request.Context(), *in.Tags)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		restaurant.Tags = tags
	}

	if err := rc.DB.Create(&restaurant).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Restaurant %d created by user %d", restaurant.ID, actor.UserID)
	utils.RespondJSON(c, http.StatusCreated, "Restaurant created", restaurant)
}

// UpdateRestaurant -> PATCH /admin/restaurants/:restaurant_id, partial update.
// A tags array, when present, replaces the current tags.
func (rc *RestaurantController) UpdateRestaurant(c *gin.Context) {
	id, ok := paramID(c, "restaurant_id")
	if !ok {
		return
	}
	var in restaurantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var restaurant models.Restaurant
	if err := rc.DB.First(&restaurant, id).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	in.apply(&restaurant)

	var tags []models.Tag
	if in.Tags != nil {
		var err error
		if tags, err = rc.Catalog.ResolveTags(c.Request.Context(), *in.Tags); err != nil {
			respondServiceError(c, err)
			return
		}
	}

	err := rc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(restaurantAssociations...).Save(&restaurant).Error; err != nil {
			return err
		}
		if in.Tags != nil {
			return tx.Model(&restaurant).Association("Tags").Replace(tags)
		}
		return nil
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	updated, err := rc.Catalog.Restaurant(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Restaurant updated", updated)
}

var restaurantAssociations = []string{"Tags", "Tables", "CreatedBy"}

// DeleteRestaurant removes the restaurant with its tables and reservations.
func (rc *RestaurantController) DeleteRestaurant(c *gin.Context) {
	id, ok := paramID(c, "restaurant_id")
	if !ok {
		return
	}
	restaurant, err := rc.Catalog.DeleteRestaurant(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if restaurant.ImageURL != nil {
		rc.removeImage(*restaurant.ImageURL)
	}

	utils.InfoLogger.Printf("Restaurant %d deleted", restaurant.ID)
	utils.RespondJSON(c, http.StatusOK, "Restaurant deleted", gin.H{"id": restaurant.ID})
}

// UploadImage -> POST /admin/restaurants/:restaurant_id/image (multipart field "image").
func (rc *RestaurantController) UploadImage(c *gin.Context) {
	id, ok := paramID(c, "restaurant_id")
	if !ok {
		return
	}

	var restaurant models.Restaurant
	if err := rc.DB.First(&restaurant, id).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("image file is required"))
		return
	}
	if file.Size > maxImageSize {
		utils.RespondError(c, http.StatusBadRequest, errors.New("image must be at most 5MB"))
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !imageExtensions[ext] {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("unsupported image type %q", ext))
		return
	}

	if err := os.MkdirAll(rc.UploadDir, 0o755); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, errors.New("error creating upload directory"))
		return
	}
	filename := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(rc.UploadDir, filename)); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, errors.New("error saving image"))
		return
	}

	// Update writes through the ImageURL pointer, so keep the old value first.
	var previous string
	if restaurant.ImageURL != nil {
		previous = *restaurant.ImageURL
	}
	url := "/uploads/" + filename
	if err := rc.DB.Model(&restaurant).Update("image_url", url).Error; err != nil {
		os.Remove(filepath.Join(rc.UploadDir, filename))
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	rc.removeImage(previous)

	restaurant.ImageURL = &url
	utils.RespondJSON(c, http.StatusOK, "Image uploaded", restaurant)
}

func (rc *RestaurantController) removeImage(url string) {
	if !strings.HasPrefix(url, "/uploads/") {
		return
	}
	path := filepath.Join(rc.UploadDir, filepath.Base(url))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		utils.ErrorLogger.Printf("Error removing image %s: %v", path, err)
	}
}

// ExportPDF -> GET /restaurants/:restaurant_id/pdf
func (rc *RestaurantController) ExportPDF(c *gin.Context) {
	id, ok := paramID(c, "restaurant_id")
	if !ok {
		return
	}
	restaurant, err := rc.Catalog.Restaurant(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.RenderRestaurantPDF(&buf, restaurant); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="restaurant_%d.pdf"`, restaurant.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (rc *RestaurantController) ListTags(c *gin.Context) {
	tags, err := rc.Catalog.Tags(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tags", tags)
}

// Home -> GET /?q=
func (rc *RestaurantController) Home(c *gin.Context) {
	page, err := rc.Catalog.Home(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Home", page)
}
