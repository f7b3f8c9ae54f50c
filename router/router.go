package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobook/config"
	"github.com/yeremiapane/restobook/controllers"
	"github.com/yeremiapane/restobook/hub"
	"github.com/yeremiapane/restobook/middlewares"
	"github.com/yeremiapane/restobook/services"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB, cfg *config.Config, h *hub.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.RequestID())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg.CORSOrigin))
	if cfg.RateLimitRPS > 0 {
		r.Use(middlewares.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware())
	}

	// only image files are served from the uploads directory
	r.Use(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/uploads/") && !controllers.IsImagePath(c.Request.URL.Path) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	})
	r.Static("/uploads", cfg.UploadDir)

	booking := services.NewBookingService(db,
		services.WithSchedule(services.Schedule{Open: cfg.OpenTime, Close: cfg.CloseTime, Location: cfg.Location}),
		services.WithPublisher(h),
	)
	catalog := services.NewCatalogService(db, cfg.Location)

	userCtrl := controllers.NewUserController(db, booking)
	restaurantCtrl := controllers.NewRestaurantController(db, catalog, cfg.UploadDir)
	tableCtrl := controllers.NewTableController(db, booking, catalog, h)
	reservationCtrl := controllers.NewReservationController(booking)
	notificationCtrl := controllers.NewNotificationController(db)
	adminCtrl := controllers.NewAdminController(db, booking)
	hubCtrl := controllers.NewHubController(h, cfg.CORSOrigin)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	r.GET("/", restaurantCtrl.Home)
	r.GET("/tags", restaurantCtrl.ListTags)
	r.GET("/restaurants", restaurantCtrl.ListRestaurants)
	r.GET("/restaurants/search", restaurantCtrl.SearchRestaurants)
	r.GET("/restaurants/:restaurant_id", restaurantCtrl.GetRestaurant)
	r.GET("/restaurants/:restaurant_id/available-tables", tableCtrl.AvailableTables)
	r.GET("/restaurants/:restaurant_id/pdf", restaurantCtrl.ExportPDF)

	r.GET("/ws/staff", middlewares.WebSocketAuthMiddleware(), hubCtrl.StaffFeed)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware())
	{
		auth.POST("/auth/logout", userCtrl.Logout)
		auth.GET("/auth/profile", userCtrl.GetProfile)

		auth.POST("/tables/:table_id/reservations", reservationCtrl.CreateReservation)
		auth.GET("/reservations", reservationCtrl.MyReservations)
		auth.POST("/reservations/:reservation_id/cancel", reservationCtrl.CancelReservation)

		auth.GET("/notifications", notificationCtrl.MyNotifications)
		auth.PATCH("/notifications/:notif_id/read", notificationCtrl.MarkRead)
	}

	// ----------------------------------------------------------------
	//                      STAFF ROUTES
	// ----------------------------------------------------------------
	admin := r.Group("/admin")
	admin.Use(middlewares.AuthMiddleware(), middlewares.StaffOnly())
	{
		admin.GET("/dashboard/stats", adminCtrl.GetDashboardStats)

		admin.POST("/restaurants", restaurantCtrl.CreateRestaurant)
		admin.PATCH("/restaurants/:restaurant_id", restaurantCtrl.UpdateRestaurant)
		admin.DELETE("/restaurants/:restaurant_id", restaurantCtrl.DeleteRestaurant)
		admin.POST("/restaurants/:restaurant_id/image", restaurantCtrl.UploadImage)
		admin.POST("/restaurants/:restaurant_id/tables", tableCtrl.CreateTable)

		admin.PATCH("/tables/:table_id", tableCtrl.UpdateTable)
		admin.DELETE("/tables/:table_id", tableCtrl.DeleteTable)

		admin.GET("/reservations", reservationCtrl.AllReservations)
		admin.POST("/reservations/:reservation_id/confirm", reservationCtrl.ConfirmReservation)
		admin.POST("/reservations/:reservation_id/cancel", reservationCtrl.CancelReservation)
	}

	return r
}
