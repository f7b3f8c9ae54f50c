package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/yeremiapane/restobook/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RestaurantSummary is a restaurant row annotated with one aggregate.
type RestaurantSummary struct {
	ID               uint               `json:"id"`
	Name             string             `json:"name"`
	CuisineType      models.CuisineType `json:"cuisine_type"`
	Address          string             `json:"address"`
	ReservationCount int64              `json:"reservation_count,omitempty"`
	MinPrice         float64            `json:"min_price,omitempty"`
	MaxCapacity      int                `json:"max_capacity,omitempty"`
}

type CatalogStats struct {
	TotalRestaurants int64   `json:"total_restaurants"`
	AvgTablePrice    float64 `json:"avg_table_price"`
	MaxCapacity      int     `json:"max_capacity"`
	MinPrice         float64 `json:"min_price"`
}

type HomePage struct {
	Today                  string              `json:"today"`
	PopularRestaurants     []RestaurantSummary `json:"popular_restaurants"`
	AvailableTables        []models.Table      `json:"available_tables"`
	AffordableRestaurants  []RestaurantSummary `json:"affordable_restaurants"`
	LargeTablesRestaurants []RestaurantSummary `json:"large_tables_restaurants"`
	Stats                  CatalogStats        `json:"stats"`
	SearchQuery            string              `json:"search_query,omitempty"`
	SearchResults          []models.Restaurant `json:"search_results,omitempty"`
}

type RestaurantStats struct {
	TablesCount int     `json:"tables_count"`
	AvgCapacity float64 `json:"avg_capacity"`
	MinPrice    float64 `json:"min_price"`
	MaxCapacity int     `json:"max_capacity"`
}

type RestaurantDetail struct {
	Restaurant   models.Restaurant    `json:"restaurant"`
	Reservations []models.Reservation `json:"reservations"`
	Stats        RestaurantStats      `json:"stats"`
}

type SearchStats struct {
	Count        int                          `json:"count"`
	CuisineTypes map[models.CuisineType]int64 `json:"cuisine_types"`
	AvgCapacity  float64                      `json:"avg_capacity"`
}

type SearchResult struct {
	Query       string              `json:"query"`
	Restaurants []models.Restaurant `json:"restaurants"`
	Stats       *SearchStats        `json:"stats,omitempty"`
}

const (
	popularWindowDays   = 7
	popularLimit        = 4
	availableTodayLimit = 6
	affordableLimit     = 3
	largeTablesLimit    = 3
	largeTableCapacity  = 6
	latestReservations  = 5
)

type CatalogService struct {
	db  *gorm.DB
	now func() time.Time
	loc *time.Location
}

func NewCatalogService(db *gorm.DB, loc *time.Location) *CatalogService {
	if loc == nil {
		loc = time.Local
	}
	return &CatalogService{db: db, now: time.Now, loc: loc}
}

func (s *CatalogService) today() time.Time {
	return s.now().In(s.loc)
}

// Home collects the landing page widgets; query may be empty.
func (s *CatalogService) Home(ctx context.Context, query string) (*HomePage, error) {
	db := s.db.WithContext(ctx)
	today := s.today()
	page := &HomePage{
		Today:                  today.Format(models.DateLayout),
		PopularRestaurants:     []RestaurantSummary{},
		AvailableTables:        []models.Table{},
		AffordableRestaurants:  []RestaurantSummary{},
		LargeTablesRestaurants: []RestaurantSummary{},
	}

	weekAgo := today.AddDate(0, 0, -popularWindowDays).Format(models.DateLayout)
	if err := db.Table("restaurants").
		Select("restaurants.id, restaurants.name, restaurants.cuisine_type, restaurants.address, COUNT(reservations.id) AS reservation_count").
		Joins("JOIN tables ON tables.restaurant_id = restaurants.id").
		Joins("JOIN reservations ON reservations.table_id = tables.id").
		Where("reservations.reservation_date >= ?", weekAgo).
		Group("restaurants.id, restaurants.name, restaurants.cuisine_type, restaurants.address").
		Order("reservation_count DESC").
		Limit(popularLimit).
		Scan(&page.PopularRestaurants).Error; err != nil {
		return nil, fmt.Errorf("popular restaurants: %w", err)
	}

	if err := db.Preload("Restaurant").
		Where("id NOT IN (?)", busyTableIDs(db, page.Today)).
		Order("capacity DESC").
		Order("id ASC").
		Limit(availableTodayLimit).
		Find(&page.AvailableTables).Error; err != nil {
		return nil, fmt.Errorf("available tables today: %w", err)
	}

	if err := db.Table("restaurants").
		Select("restaurants.id, restaurants.name, restaurants.cuisine_type, restaurants.address, MIN(tables.price_per_hour) AS min_price").
		Joins("JOIN tables ON tables.restaurant_id = restaurants.id").
		Group("restaurants.id, restaurants.name, restaurants.cuisine_type, restaurants.address").
		Order("min_price ASC").
		Limit(affordableLimit).
		Scan(&page.AffordableRestaurants).Error; err != nil {
		return nil, fmt.Errorf("affordable restaurants: %w", err)
	}

	if err := db.Table("restaurants").
		Select("restaurants.id, restaurants.name, restaurants.cuisine_type, restaurants.address, MAX(tables.capacity) AS max_capacity").
		Joins("JOIN tables ON tables.restaurant_id = restaurants.id").
		Group("restaurants.id, restaurants.name, restaurants.cuisine_type, restaurants.address").
		Having("MAX(tables.capacity) >= ?", largeTableCapacity).
		Order("max_capacity DESC").
		Limit(largeTablesLimit).
		Scan(&page.LargeTablesRestaurants).Error; err != nil {
		return nil, fmt.Errorf("large table restaurants: %w", err)
	}

	stats, err := s.stats(db)
	if err != nil {
		return nil, err
	}
	page.Stats = stats

	if q := strings.TrimSpace(query); q != "" {
		page.SearchQuery = q
		results, err := s.searchRestaurants(db, q, false)
		if err != nil {
			return nil, err
		}
		page.SearchResults = results
	}

	return page, nil
}

func (s *CatalogService) stats(db *gorm.DB) (CatalogStats, error) {
	var stats CatalogStats
	if err := db.Model(&models.Restaurant{}).Count(&stats.TotalRestaurants).Error; err != nil {
		return stats, fmt.Errorf("count restaurants: %w", err)
	}

	var avgPrice, minPrice sql.NullFloat64
	var maxCapacity sql.NullInt64
	row := db.Model(&models.Table{}).
		Select("AVG(price_per_hour), MIN(price_per_hour), MAX(capacity)").
		Row()
	if err := row.Scan(&avgPrice, &minPrice, &maxCapacity); err != nil {
		return stats, fmt.Errorf("table aggregates: %w", err)
	}
	stats.AvgTablePrice = avgPrice.Float64
	stats.MinPrice = minPrice.Float64
	stats.MaxCapacity = int(maxCapacity.Int64)
	return stats, nil
}

// Restaurants lists the catalog, optionally narrowed to one cuisine.
func (s *CatalogService) Restaurants(ctx context.Context, cuisine string) ([]models.Restaurant, error) {
	query := s.db.WithContext(ctx).Preload("Tags")
	if cuisine != "" {
		ct := models.CuisineType(strings.ToLower(cuisine))
		if !ct.Valid() {
			return nil, fmt.Errorf("%w: %v", ErrValidation, models.ErrUnknownCuisine)
		}
		query = query.Where("cuisine_type = ?", string(ct))
	}

	restaurants := []models.Restaurant{}
	if err := query.Order("id ASC").Find(&restaurants).Error; err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	return restaurants, nil
}

func (s *CatalogService) Restaurant(ctx context.Context, id uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Preload("Tables", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&restaurant, id).Error
	if err != nil {
		return nil, lookupError("restaurant", id, err)
	}
	return &restaurant, nil
}

// RestaurantDetail returns the restaurant with its tables, the latest
// reservations against them and per-restaurant table statistics.
func (s *CatalogService) RestaurantDetail(ctx context.Context, id uint) (*RestaurantDetail, error) {
	restaurant, err := s.Restaurant(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &RestaurantDetail{Restaurant: *restaurant, Reservations: []models.Reservation{}}
	if err := s.db.WithContext(ctx).
		Joins("JOIN tables ON tables.id = reservations.table_id").
		Where("tables.restaurant_id = ?", id).
		Order("reservations.created_at DESC").
		Limit(latestReservations).
		Find(&detail.Reservations).Error; err != nil {
		return nil, fmt.Errorf("latest reservations: %w", err)
	}

	detail.Stats = tableStats(restaurant.Tables)
	return detail, nil
}

func tableStats(tables []models.Table) RestaurantStats {
	stats := RestaurantStats{TablesCount: len(tables)}
	if len(tables) == 0 {
		return stats
	}
	total := 0
	stats.MinPrice = tables[0].PricePerHour
	for _, t := range tables {
		total += t.Capacity
		if t.Capacity > stats.MaxCapacity {
			stats.MaxCapacity = t.Capacity
		}
		if t.PricePerHour < stats.MinPrice {
			stats.MinPrice = t.PricePerHour
		}
	}
	stats.AvgCapacity = float64(total) / float64(len(tables))
	return stats
}

// Search matches q case-insensitively against name, cuisine, address and
// description and aggregates the hits.
func (s *CatalogService) Search(ctx context.Context, q string) (*SearchResult, error) {
	q = strings.TrimSpace(q)
	result := &SearchResult{Query: q, Restaurants: []models.Restaurant{}}
	if q == "" {
		return result, nil
	}

	db := s.db.WithContext(ctx)
	restaurants, err := s.searchRestaurants(db, q, true)
	if err != nil {
		return nil, err
	}
	result.Restaurants = restaurants
	if len(restaurants) == 0 {
		return result, nil
	}

	stats := &SearchStats{Count: len(restaurants), CuisineTypes: map[models.CuisineType]int64{}}
	ids := make([]uint, 0, len(restaurants))
	for _, r := range restaurants {
		ids = append(ids, r.ID)
		stats.CuisineTypes[r.CuisineType]++
	}

	var avgCapacity sql.NullFloat64
	if err := db.Model(&models.Table{}).
		Where("restaurant_id IN ?", ids).
		Select("AVG(capacity)").
		Row().Scan(&avgCapacity); err != nil {
		return nil, fmt.Errorf("search stats: %w", err)
	}
	stats.AvgCapacity = avgCapacity.Float64
	result.Stats = stats

	return result, nil
}

// likeEscaper makes % and _ in a query match literally. The escape character
// is '!' since MySQL reads a backslash inside a string literal as its own escape.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (s *CatalogService) searchRestaurants(db *gorm.DB, q string, withDescription bool) ([]models.Restaurant, error) {
	like := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
	columns := []string{"name", "cuisine_type", "address"}
	if withDescription {
		columns = append(columns, "description")
	}
	conds := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		conds = append(conds, "LOWER("+col+") LIKE ? ESCAPE '!'")
		args = append(args, like)
	}
	cond := strings.Join(conds, " OR ")

	restaurants := []models.Restaurant{}
	if err := db.Preload("Tags").Where(cond, args...).Order("id ASC").Find(&restaurants).Error; err != nil {
		return nil, fmt.Errorf("search restaurants: %w", err)
	}
	return restaurants, nil
}

// ResolveTags finds or creates tags by name; blank names are skipped.
func (s *CatalogService) ResolveTags(ctx context.Context, names []string) ([]models.Tag, error) {
	tags := []models.Tag{}
	seen := map[string]bool{}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag := models.Tag{Name: name}
		if err := s.db.WithContext(ctx).Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return nil, fmt.Errorf("resolve tag %q: %w", name, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (s *CatalogService) Tags(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := s.db.WithContext(ctx).Order("name ASC").Find(&tags).Error
	return tags, err
}

// DeleteRestaurant removes the restaurant, its tables and their reservations
// in one transaction.
func (s *CatalogService) DeleteRestaurant(ctx context.Context, id uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&restaurant, id).Error; err != nil {
			return lookupError("restaurant", id, err)
		}

		tableIDs := tx.Model(&models.Table{}).Select("id").Where("restaurant_id = ?", id)
		if err := tx.Where("table_id IN (?)", tableIDs).Delete(&models.Reservation{}).Error; err != nil {
			return fmt.Errorf("delete reservations: %w", err)
		}
		if err := tx.Where("restaurant_id = ?", id).Delete(&models.Table{}).Error; err != nil {
			return fmt.Errorf("delete tables: %w", err)
		}
		if err := tx.Model(&restaurant).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		if err := tx.Delete(&restaurant).Error; err != nil {
			return fmt.Errorf("delete restaurant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}

// DeleteTable removes the table and its reservations in one transaction.
func (s *CatalogService) DeleteTable(ctx context.Context, id uint) (*models.Table, error) {
	var table models.Table
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&table, id).Error; err != nil {
			return lookupError("table", id, err)
		}
		if err := tx.Where("table_id = ?", id).Delete(&models.Reservation{}).Error; err != nil {
			return fmt.Errorf("delete reservations: %w", err)
		}
		if err := tx.Delete(&table).Error; err != nil {
			return fmt.Errorf("delete table: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &table, nil
}
