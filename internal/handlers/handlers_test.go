package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ratehub/ratehub/internal/audit"
	"github.com/ratehub/ratehub/internal/cache"
	infraRepo "github.com/ratehub/ratehub/internal/infra/repository"
	"github.com/ratehub/ratehub/internal/middleware"
	"github.com/ratehub/ratehub/internal/models"
	"github.com/ratehub/ratehub/internal/password"
	"github.com/ratehub/ratehub/internal/testutil"
	"github.com/ratehub/ratehub/internal/token"
	ucRating "github.com/ratehub/ratehub/internal/usecase/rating"
	"github.com/ratehub/ratehub/internal/validators"
)

const (
	testUserName = "Completely Valid Test User Name"
	testPassword = "Passw0rd!"
)

type testEnv struct {
	r      *gin.Engine
	db     *gorm.DB
	hasher *password.Hasher
	issuer *token.Issuer
}

func newTestEnv(t *testing.T, name string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := testutil.OpenTestDB(t, name)
	validators.RegisterPasswordTag()

	hasher := password.NewHasher(bcrypt.MinCost)
	issuer := token.NewIssuer("test-secret", time.Hour)
	dispatcher := audit.NewDispatcher(audit.New(gdb))

	allowAllDomains := func(string) bool { return true }

	authHandler := NewAuthHandler(gdb, hasher, issuer, dispatcher)
	authHandler.domainCheck = allowAllDomains

	adminHandler := NewAdminHandler(gdb, hasher, cache.NewStatsCache(gdb, nil), dispatcher)
	adminHandler.domainCheck = allowAllDomains

	submitUC := ucRating.NewSubmitRating(infraRepo.NewRatingGormRepository(gdb), dispatcher)
	storeHandler := NewStoreHandler(gdb, submitUC)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/auth/signup", authHandler.Signup)
	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("/")
	secured.Use(middleware.AuthMiddleware(issuer))
	secured.GET("/me", authHandler.GetMe)
	secured.PUT("/auth/change-password", authHandler.ChangePassword)
	secured.GET("/stores",
		middleware.RequireRole(models.RoleNormalUser, models.RoleAdmin),
		storeHandler.List)
	secured.POST("/stores/rate",
		middleware.RequireRole(models.RoleNormalUser),
		storeHandler.Rate)
	secured.GET("/stores/my-store",
		middleware.RequireRole(models.RoleStoreOwner),
		storeHandler.MyStore)

	admin := secured.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	admin.POST("/users", adminHandler.CreateUser)
	admin.POST("/stores", adminHandler.CreateStore)
	admin.GET("/users", adminHandler.ListUsers)
	admin.GET("/stores", adminHandler.ListStores)
	admin.GET("/dashboard", adminHandler.Dashboard)

	return &testEnv{r: r, db: gdb, hasher: hasher, issuer: issuer}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedUser(t *testing.T, email string, role models.Role) (*models.User, string) {
	t.Helper()

	hashed, err := e.hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	u := models.User{
		Name:         testUserName,
		Email:        email,
		PasswordHash: hashed,
		Address:      "1 Test Street",
		Role:         role,
	}
	if err := e.db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	tok, err := e.issuer.Issue(u.ID, u.Role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &u, tok
}

func (e *testEnv) seedStore(t *testing.T, name string, ownerID *uint) *models.Store {
	t.Helper()
	s := models.Store{
		Name:    name,
		Email:   name + "@stores.test",
		Address: "2 Market Square",
		OwnerID: ownerID,
	}
	if err := e.db.Create(&s).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return &s
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

// --------- Signup ---------

func TestSignupIssuesToken(t *testing.T) {
	env := newTestEnv(t, "signup_ok")

	w := env.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name":     testUserName,
		"email":    "new@example.test",
		"password": testPassword,
		"address":  "5 Elm Street",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["token"] == "" || body["token"] == nil {
		t.Fatal("signup must return a token")
	}
	user := body["user"].(map[string]any)
	if user["role"] != string(models.RoleNormalUser) {
		t.Fatalf("role = %v, want normal_user", user["role"])
	}
	if _, leaked := user["password"]; leaked {
		t.Fatal("signup response must not carry the secret")
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, "signup_dup")
	env.seedUser(t, "taken@example.test", models.RoleNormalUser)

	w := env.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name":     testUserName,
		"email":    "taken@example.test",
		"password": testPassword,
		"address":  "5 Elm Street",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	body := decodeBody(t, w)
	if _, hasToken := body["token"]; hasToken {
		t.Fatal("duplicate signup must not issue a token")
	}

	var count int64
	if err := env.db.Model(&models.User{}).Where("email = ?", "taken@example.test").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("user rows = %d, want 1 (no duplicate)", count)
	}
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	env := newTestEnv(t, "signup_weak")

	for _, pw := range []string{"short!A", "nouppercase1!", "NoSpecialChar1", "Way!TooLongPassword1"} {
		w := env.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
			"name":     testUserName,
			"email":    "weak@example.test",
			"password": pw,
			"address":  "5 Elm Street",
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("password %q: status = %d, want 400", pw, w.Code)
		}
	}
}

// --------- Login ---------

func TestLoginDoesNotLeakWhichCredentialFailed(t *testing.T) {
	env := newTestEnv(t, "login_leak")
	env.seedUser(t, "known@example.test", models.RoleNormalUser)

	unknown := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "ghost@example.test",
		"password": testPassword,
	})
	wrongPw := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "known@example.test",
		"password": "Wrong!Passw0rd",
	})

	if unknown.Code != http.StatusUnauthorized || wrongPw.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d / %d, want 401 / 401", unknown.Code, wrongPw.Code)
	}
	if unknown.Body.String() != wrongPw.Body.String() {
		t.Fatalf("bodies differ:\n%s\n%s", unknown.Body.String(), wrongPw.Body.String())
	}
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t, "login_ok")
	env.seedUser(t, "known@example.test", models.RoleNormalUser)

	w := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "known@example.test",
		"password": testPassword,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	tok, _ := body["token"].(string)
	if tok == "" {
		t.Fatal("login must return a token")
	}

	me := env.do(t, http.MethodGet, "/api/me", tok, nil)
	if me.Code != http.StatusOK {
		t.Fatalf("GET /me with fresh token: status = %d", me.Code)
	}
}

// --------- Change password ---------

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, "change_pw")
	_, tok := env.seedUser(t, "user@example.test", models.RoleNormalUser)

	wrong := env.do(t, http.MethodPut, "/api/auth/change-password", tok, gin.H{
		"current_password": "Wrong!Passw0rd",
		"new_password":     "NewPassw0rd!",
	})
	if wrong.Code != http.StatusBadRequest {
		t.Fatalf("wrong current password: status = %d, want 400", wrong.Code)
	}

	ok := env.do(t, http.MethodPut, "/api/auth/change-password", tok, gin.H{
		"current_password": testPassword,
		"new_password":     "NewPassw0rd!",
	})
	if ok.Code != http.StatusOK {
		t.Fatalf("change password: status = %d, body = %s", ok.Code, ok.Body.String())
	}

	login := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "user@example.test",
		"password": "NewPassw0rd!",
	})
	if login.Code != http.StatusOK {
		t.Fatalf("login with new password: status = %d", login.Code)
	}
}

// --------- Access control ---------

func TestRoleGate(t *testing.T) {
	env := newTestEnv(t, "role_gate")
	_, userTok := env.seedUser(t, "user@example.test", models.RoleNormalUser)
	_, ownerTok := env.seedUser(t, "owner@example.test", models.RoleStoreOwner)
	_, adminTok := env.seedUser(t, "admin@example.test", models.RoleAdmin)

	cases := []struct {
		name   string
		method string
		path   string
		bearer string
		want   int
	}{
		{"no token", http.MethodGet, "/api/admin/users", "", http.StatusUnauthorized},
		{"user on admin route", http.MethodGet, "/api/admin/users", userTok, http.StatusForbidden},
		{"owner on admin route", http.MethodGet, "/api/admin/users", ownerTok, http.StatusForbidden},
		{"admin on admin route", http.MethodGet, "/api/admin/users", adminTok, http.StatusOK},
		{"owner listing stores", http.MethodGet, "/api/stores", ownerTok, http.StatusForbidden},
		{"admin listing stores", http.MethodGet, "/api/stores", adminTok, http.StatusOK},
		{"admin submitting rating", http.MethodPost, "/api/stores/rate", adminTok, http.StatusForbidden},
		{"user on owner dashboard", http.MethodGet, "/api/stores/my-store", userTok, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, tc.method, tc.path, tc.bearer, nil)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestAdminCreateStoreForbiddenWithoutAdmin(t *testing.T) {
	env := newTestEnv(t, "admin_forbidden")
	_, userTok := env.seedUser(t, "user@example.test", models.RoleNormalUser)

	w := env.do(t, http.MethodPost, "/api/admin/stores", userTok, gin.H{
		"name":    "sneaky-store",
		"email":   "sneaky@stores.test",
		"address": "9 Backdoor Alley",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}

	var count int64
	if err := env.db.Model(&models.Store{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("store rows = %d, want 0 (gate must run before any mutation)", count)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	env := newTestEnv(t, "expired_token")
	u, _ := env.seedUser(t, "user@example.test", models.RoleNormalUser)

	expired, err := token.NewIssuer("test-secret", -time.Minute).Issue(u.ID, u.Role)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	w := env.do(t, http.MethodGet, "/api/me", expired, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

// --------- Ratings over HTTP ---------

func TestRateEndpoint(t *testing.T) {
	env := newTestEnv(t, "rate_http")
	_, tok := env.seedUser(t, "rater@example.test", models.RoleNormalUser)
	s := env.seedStore(t, "corner-shop", nil)

	w := env.do(t, http.MethodPost, "/api/stores/rate", tok, gin.H{
		"store_id": s.ID,
		"rating":   5,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w)["average_rating"].(float64); got != 5 {
		t.Fatalf("average = %v, want 5", got)
	}

	outOfRange := env.do(t, http.MethodPost, "/api/stores/rate", tok, gin.H{
		"store_id": s.ID,
		"rating":   6,
	})
	if outOfRange.Code != http.StatusBadRequest {
		t.Fatalf("out of range: status = %d, want 400", outOfRange.Code)
	}

	missing := env.do(t, http.MethodPost, "/api/stores/rate", tok, gin.H{
		"store_id": 9999,
		"rating":   4,
	})
	if missing.Code != http.StatusNotFound {
		t.Fatalf("unknown store: status = %d, want 404", missing.Code)
	}
}

func TestStoreListInlinesOwnRating(t *testing.T) {
	env := newTestEnv(t, "list_my_rating")
	_, tok := env.seedUser(t, "rater@example.test", models.RoleNormalUser)
	rated := env.seedStore(t, "rated-store", nil)
	env.seedStore(t, "unrated-store", nil)

	if w := env.do(t, http.MethodPost, "/api/stores/rate", tok, gin.H{
		"store_id": rated.ID,
		"rating":   4,
	}); w.Code != http.StatusOK {
		t.Fatalf("rate: status = %d", w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/stores", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status = %d", w.Code)
	}

	var resp struct {
		Data []StoreListItem `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("stores = %d, want 2", len(resp.Data))
	}

	byName := map[string]StoreListItem{}
	for _, item := range resp.Data {
		byName[item.Name] = item
	}

	if got := byName["rated-store"].MyRating; got == nil || *got != 4 {
		t.Fatalf("my_rating for rated store = %v, want 4", got)
	}
	if got := byName["unrated-store"].MyRating; got != nil {
		t.Fatalf("my_rating for unrated store = %v, want null", *got)
	}
}

// --------- Owner dashboard ---------

func TestOwnerDashboardShowsRaters(t *testing.T) {
	env := newTestEnv(t, "owner_dash")
	owner, ownerTok := env.seedUser(t, "owner@example.test", models.RoleStoreOwner)
	_, raterTok := env.seedUser(t, "rater@example.test", models.RoleNormalUser)
	s := env.seedStore(t, "owned-store", &owner.ID)

	if w := env.do(t, http.MethodPost, "/api/stores/rate", raterTok, gin.H{
		"store_id": s.ID,
		"rating":   2,
	}); w.Code != http.StatusOK {
		t.Fatalf("rate: status = %d", w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/stores/my-store", ownerTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data []struct {
			Name          string  `json:"name"`
			AverageRating float64 `json:"average_rating"`
			Ratings       []struct {
				Value     int    `json:"value"`
				UserEmail string `json:"user_email"`
			} `json:"ratings"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 || len(resp.Data[0].Ratings) != 1 {
		t.Fatalf("unexpected dashboard shape: %s", w.Body.String())
	}
	if resp.Data[0].Ratings[0].UserEmail != "rater@example.test" {
		t.Fatalf("rater email = %q", resp.Data[0].Ratings[0].UserEmail)
	}
	if resp.Data[0].AverageRating != 2 {
		t.Fatalf("average = %v, want 2", resp.Data[0].AverageRating)
	}
}

// --------- Admin ---------

func TestAdminCreateUserAndDashboard(t *testing.T) {
	env := newTestEnv(t, "admin_flow")
	_, adminTok := env.seedUser(t, "admin@example.test", models.RoleAdmin)

	created := env.do(t, http.MethodPost, "/api/admin/users", adminTok, gin.H{
		"name":     testUserName,
		"email":    "newowner@example.test",
		"password": testPassword,
		"role":     "store_owner",
		"address":  "3 Owner Road",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create user: status = %d, body = %s", created.Code, created.Body.String())
	}

	badRole := env.do(t, http.MethodPost, "/api/admin/users", adminTok, gin.H{
		"name":     testUserName,
		"email":    "other@example.test",
		"password": testPassword,
		"role":     "superuser",
		"address":  "3 Owner Road",
	})
	if badRole.Code != http.StatusBadRequest {
		t.Fatalf("unknown role: status = %d, want 400", badRole.Code)
	}

	var owner models.User
	if err := env.db.Where("email = ?", "newowner@example.test").First(&owner).Error; err != nil {
		t.Fatalf("load owner: %v", err)
	}

	store := env.do(t, http.MethodPost, "/api/admin/stores", adminTok, gin.H{
		"name":     "flagship",
		"email":    "flagship@stores.test",
		"address":  "4 High Street",
		"owner_id": owner.ID,
	})
	if store.Code != http.StatusCreated {
		t.Fatalf("create store: status = %d, body = %s", store.Code, store.Body.String())
	}

	dash := env.do(t, http.MethodGet, "/api/admin/dashboard", adminTok, nil)
	if dash.Code != http.StatusOK {
		t.Fatalf("dashboard: status = %d", dash.Code)
	}
	stats := decodeBody(t, dash)
	if stats["total_users"].(float64) != 2 || stats["total_stores"].(float64) != 1 {
		t.Fatalf("unexpected totals: %s", dash.Body.String())
	}
}

func TestAdminCreateStoreRejectsNonOwner(t *testing.T) {
	env := newTestEnv(t, "store_owner_check")
	_, adminTok := env.seedUser(t, "admin@example.test", models.RoleAdmin)
	plain, _ := env.seedUser(t, "plain@example.test", models.RoleNormalUser)

	w := env.do(t, http.MethodPost, "/api/admin/stores", adminTok, gin.H{
		"name":     "misowned",
		"email":    "misowned@stores.test",
		"address":  "4 High Street",
		"owner_id": plain.ID,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAdminListUsersFilterAndSort(t *testing.T) {
	env := newTestEnv(t, "admin_list")
	_, adminTok := env.seedUser(t, "admin@example.test", models.RoleAdmin)
	env.seedUser(t, "alpha@example.test", models.RoleNormalUser)
	env.seedUser(t, "beta@example.test", models.RoleStoreOwner)

	filtered := env.do(t, http.MethodGet, "/api/admin/users?role=store_owner", adminTok, nil)
	if filtered.Code != http.StatusOK {
		t.Fatalf("status = %d", filtered.Code)
	}
	var resp struct {
		Data  []map[string]any `json:"data"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(filtered.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Data[0]["email"] != "beta@example.test" {
		t.Fatalf("unexpected filter result: %s", filtered.Body.String())
	}
	if _, leaked := resp.Data[0]["password_hash"]; leaked {
		t.Fatal("listing must not expose password hashes")
	}

	badSort := env.do(t, http.MethodGet, "/api/admin/users?sort_by=password_hash", adminTok, nil)
	if badSort.Code != http.StatusBadRequest {
		t.Fatalf("non-whitelisted sort column: status = %d, want 400", badSort.Code)
	}
}
