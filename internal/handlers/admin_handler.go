package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ratehub/ratehub/internal/audit"
	"github.com/ratehub/ratehub/internal/cache"
	"github.com/ratehub/ratehub/internal/httperr"
	"github.com/ratehub/ratehub/internal/httpresp"
	"github.com/ratehub/ratehub/internal/middleware"
	"github.com/ratehub/ratehub/internal/models"
	"github.com/ratehub/ratehub/internal/password"
	"github.com/ratehub/ratehub/internal/validators"
)

type AdminHandler struct {
	db     *gorm.DB
	hasher *password.Hasher
	stats  *cache.StatsCache
	audit  *audit.Dispatcher

	// Swappable so tests do not depend on DNS.
	domainCheck func(string) bool
}

func NewAdminHandler(
	db *gorm.DB,
	hasher *password.Hasher,
	stats *cache.StatsCache,
	auditDispatcher *audit.Dispatcher,
) *AdminHandler {
	return &AdminHandler{
		db:          db,
		hasher:      hasher,
		stats:       stats,
		audit:       auditDispatcher,
		domainCheck: validators.IsEmailDomainValid,
	}
}

// --------- Requests ---------

type AdminCreateUserRequest struct {
	Name     string `json:"name" binding:"required,min=20,max=60"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,password"`
	Address  string `json:"address" binding:"required,max=400"`
	Role     string `json:"role" binding:"required"`
}

type AdminCreateStoreRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Address string `json:"address" binding:"required,max=400"`
	OwnerID *uint  `json:"owner_id"`
}

var userSortColumns = map[string]string{
	"name":       "name",
	"email":      "email",
	"address":    "address",
	"role":       "role",
	"created_at": "created_at",
}

var adminStoreSortColumns = map[string]string{
	"name":           "name",
	"email":          "email",
	"address":        "address",
	"average_rating": "average_rating",
	"created_at":     "created_at",
}

// --------- Handlers ---------

func (h *AdminHandler) CreateUser(c *gin.Context) {
	actorID := c.MustGet(middleware.ContextUserID).(uint)

	var req AdminCreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "validation_error", err.Error())
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		httperr.BadRequest(c, "invalid_role", "Role must be admin, normal_user or store_owner.")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	if !h.domainCheck(email) {
		httperr.BadRequest(c, "invalid_email_domain", "The email domain does not appear to exist.")
		return
	}

	var count int64
	if err := h.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		httperr.Internal(c, "persistence_error", "Failed to check existing accounts.")
		return
	}
	if count > 0 {
		httperr.BadRequest(c, httperr.CodeEmailTaken, "An account with this email already exists.")
		return
	}

	hashed, err := h.hasher.Hash(req.Password)
	if err != nil {
		httperr.Internal(c, "failed_to_hash_password", "Failed to process credentials.")
		return
	}

	user := models.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hashed,
		Address:      req.Address,
		Role:         role,
	}

	if err := h.db.Create(&user).Error; err != nil {
		httperr.Internal(c, "failed_to_create_user", "Failed to create the account.")
		return
	}

	h.stats.Invalidate(c.Request.Context())
	h.audit.Dispatch(audit.Event{
		ActorID:  &actorID,
		Action:   "admin_created_user",
		Entity:   "user",
		EntityID: &user.ID,
		Metadata: map[string]any{"role": role},
	})

	c.JSON(http.StatusCreated, gin.H{"user": publicUser(&user)})
}

func (h *AdminHandler) CreateStore(c *gin.Context) {
	actorID := c.MustGet(middleware.ContextUserID).(uint)

	var req AdminCreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "validation_error", err.Error())
		return
	}

	if req.OwnerID != nil {
		var owner models.User
		if err := h.db.First(&owner, *req.OwnerID).Error; err != nil {
			httperr.BadRequest(c, "owner_not_found", "The given owner does not exist.")
			return
		}
		if owner.Role != models.RoleStoreOwner {
			httperr.BadRequest(c, "owner_not_store_owner", "The given owner is not a store owner account.")
			return
		}
	}

	store := models.Store{
		Name:    req.Name,
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Address: req.Address,
		OwnerID: req.OwnerID,
	}

	if err := h.db.Create(&store).Error; err != nil {
		httperr.Internal(c, "failed_to_create_store", "Failed to create the store.")
		return
	}

	h.stats.Invalidate(c.Request.Context())
	h.audit.Dispatch(audit.Event{
		ActorID:  &actorID,
		Action:   "admin_created_store",
		Entity:   "store",
		EntityID: &store.ID,
	})

	c.JSON(http.StatusCreated, store)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	type userRow struct {
		models.User

		// Average rating across the stores the user owns; null for users
		// who own none.
		OwnedAverageRating *float64 `json:"owned_average_rating"`
	}

	q := h.db.Model(&models.User{}).
		Select("users.*, (SELECT AVG(s.average_rating) FROM stores s WHERE s.owner_id = users.id) AS owned_average_rating")

	if name := strings.ToLower(strings.TrimSpace(c.Query("name"))); name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+name+"%")
	}
	if email := strings.ToLower(strings.TrimSpace(c.Query("email"))); email != "" {
		q = q.Where("LOWER(email) LIKE ?", "%"+email+"%")
	}
	if address := strings.ToLower(strings.TrimSpace(c.Query("address"))); address != "" {
		q = q.Where("LOWER(address) LIKE ?", "%"+address+"%")
	}
	if roleStr := strings.TrimSpace(c.Query("role")); roleStr != "" {
		role, err := models.ParseRole(roleStr)
		if err != nil {
			httperr.BadRequest(c, "invalid_role", "Unknown role filter.")
			return
		}
		q = q.Where("role = ?", role)
	}

	order, ok := sortClause(c, userSortColumns, "name")
	if !ok {
		httperr.BadRequest(c, "invalid_sort", "Unknown sort column.")
		return
	}

	var rows []userRow
	if err := q.Order(order).Find(&rows).Error; err != nil {
		httperr.Internal(c, "failed_to_list_users", "Failed to list users.")
		return
	}

	httpresp.List(c, rows)
}

func (h *AdminHandler) ListStores(c *gin.Context) {
	q := h.db.Model(&models.Store{})
	q = applyStoreFilters(c, q)

	if email := strings.ToLower(strings.TrimSpace(c.Query("email"))); email != "" {
		q = q.Where("LOWER(email) LIKE ?", "%"+email+"%")
	}

	order, ok := sortClause(c, adminStoreSortColumns, "name")
	if !ok {
		httperr.BadRequest(c, "invalid_sort", "Unknown sort column.")
		return
	}

	var stores []models.Store
	if err := q.Preload("Owner").Order(order).Find(&stores).Error; err != nil {
		httperr.Internal(c, "failed_to_list_stores", "Failed to list stores.")
		return
	}

	httpresp.List(c, stores)
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		httperr.Internal(c, "failed_to_load_stats", "Failed to load dashboard totals.")
		return
	}

	c.JSON(http.StatusOK, stats)
}
