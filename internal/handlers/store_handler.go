package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ratehub/ratehub/internal/httperr"
	"github.com/ratehub/ratehub/internal/httpresp"
	"github.com/ratehub/ratehub/internal/middleware"
	"github.com/ratehub/ratehub/internal/models"
	ucRating "github.com/ratehub/ratehub/internal/usecase/rating"
)

type StoreHandler struct {
	db       *gorm.DB
	submitUC *ucRating.SubmitRating
}

func NewStoreHandler(db *gorm.DB, submitUC *ucRating.SubmitRating) *StoreHandler {
	return &StoreHandler{
		db:       db,
		submitUC: submitUC,
	}
}

// --------- Requests / Responses ---------

type SubmitRatingRequest struct {
	StoreID uint `json:"store_id" binding:"required"`
	Rating  int  `json:"rating" binding:"required"`
}

type StoreListItem struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Address       string  `json:"address"`
	AverageRating float64 `json:"average_rating"`

	// The caller's own rating for the store; null when they have not rated
	// it. The compound unique index guarantees at most one value exists.
	MyRating *int `json:"my_rating"`
}

var storeSortColumns = map[string]string{
	"name":           "name",
	"address":        "address",
	"average_rating": "average_rating",
	"created_at":     "created_at",
}

// --------- Handlers ---------

func (h *StoreHandler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)

	q := h.db.Model(&models.Store{})
	q = applyStoreFilters(c, q)

	order, ok := sortClause(c, storeSortColumns, "name")
	if !ok {
		httperr.BadRequest(c, "invalid_sort", "Unknown sort column.")
		return
	}

	var stores []models.Store
	if err := q.Order(order).Find(&stores).Error; err != nil {
		httperr.Internal(c, "failed_to_list_stores", "Failed to list stores.")
		return
	}

	storeIDs := make([]uint, 0, len(stores))
	for _, s := range stores {
		storeIDs = append(storeIDs, s.ID)
	}

	myRatings := map[uint]int{}
	if len(storeIDs) > 0 {
		var ratings []models.Rating
		if err := h.db.
			Where("user_id = ? AND store_id IN ?", userID, storeIDs).
			Find(&ratings).Error; err != nil {
			httperr.Internal(c, "failed_to_load_ratings", "Failed to load ratings.")
			return
		}
		for _, r := range ratings {
			myRatings[r.StoreID] = r.Value
		}
	}

	items := make([]StoreListItem, 0, len(stores))
	for _, s := range stores {
		item := StoreListItem{
			ID:            s.ID,
			Name:          s.Name,
			Email:         s.Email,
			Address:       s.Address,
			AverageRating: s.AverageRating,
		}
		if v, ok := myRatings[s.ID]; ok {
			value := v
			item.MyRating = &value
		}
		items = append(items, item)
	}

	httpresp.List(c, items)
}

func (h *StoreHandler) Rate(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)

	var req SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "validation_error", err.Error())
		return
	}

	avg, err := h.submitUC.Execute(c.Request.Context(), ucRating.SubmitRatingInput{
		UserID:  userID,
		StoreID: req.StoreID,
		Value:   req.Rating,
	})
	if err != nil {
		switch {
		case httperr.IsBusiness(err, httperr.CodeRatingOutOfRange):
			httperr.BadRequest(c, httperr.CodeRatingOutOfRange, "Rating must be between 1 and 5.")
		case httperr.IsBusiness(err, httperr.CodeStoreNotFound):
			httperr.NotFound(c, httperr.CodeStoreNotFound, "Store not found.")
		default:
			httperr.Internal(c, "persistence_error", "Failed to record the rating.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Rating submitted.",
		"average_rating": avg,
	})
}

// MyStore shows a store owner every rating their stores received, including
// who left it.
func (h *StoreHandler) MyStore(c *gin.Context) {
	ownerID := c.MustGet(middleware.ContextUserID).(uint)

	var stores []models.Store
	if err := h.db.
		Preload("Ratings.User").
		Where("owner_id = ?", ownerID).
		Order("id ASC").
		Find(&stores).Error; err != nil {
		httperr.Internal(c, "failed_to_list_stores", "Failed to load your stores.")
		return
	}

	type raterView struct {
		Value     int       `json:"value"`
		UserName  string    `json:"user_name"`
		UserEmail string    `json:"user_email"`
		CreatedAt time.Time `json:"created_at"`
	}
	type ownedStoreView struct {
		ID            uint        `json:"id"`
		Name          string      `json:"name"`
		Address       string      `json:"address"`
		AverageRating float64     `json:"average_rating"`
		Ratings       []raterView `json:"ratings"`
	}

	views := make([]ownedStoreView, 0, len(stores))
	for _, s := range stores {
		v := ownedStoreView{
			ID:            s.ID,
			Name:          s.Name,
			Address:       s.Address,
			AverageRating: s.AverageRating,
			Ratings:       make([]raterView, 0, len(s.Ratings)),
		}
		for _, r := range s.Ratings {
			v.Ratings = append(v.Ratings, raterView{
				Value:     r.Value,
				UserName:  r.User.Name,
				UserEmail: r.User.Email,
				CreatedAt: r.CreatedAt,
			})
		}
		views = append(views, v)
	}

	httpresp.List(c, views)
}

// --------- Helpers ---------

func applyStoreFilters(c *gin.Context, q *gorm.DB) *gorm.DB {
	if name := strings.ToLower(strings.TrimSpace(c.Query("name"))); name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+name+"%")
	}
	if address := strings.ToLower(strings.TrimSpace(c.Query("address"))); address != "" {
		q = q.Where("LOWER(address) LIKE ?", "%"+address+"%")
	}
	return q
}

// sortClause resolves sort_by/sort_order query params against a column
// whitelist. Unknown columns are rejected rather than interpolated.
func sortClause(c *gin.Context, allowed map[string]string, def string) (string, bool) {
	sortBy := strings.TrimSpace(c.Query("sort_by"))
	if sortBy == "" {
		sortBy = def
	}

	col, ok := allowed[sortBy]
	if !ok {
		return "", false
	}

	dir := "ASC"
	if strings.EqualFold(c.Query("sort_order"), "desc") {
		dir = "DESC"
	}

	return col + " " + dir, true
}
