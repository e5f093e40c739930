package main

import (
	"flag"
	"log"

	"github.com/ratehub/ratehub/internal/config"
	dbpkg "github.com/ratehub/ratehub/internal/db"
	"github.com/ratehub/ratehub/internal/models"
	"github.com/ratehub/ratehub/internal/password"
	"github.com/ratehub/ratehub/internal/validators"
)

// seed-admin resets and recreates the bootstrap administrator account. Any
// existing account with the same email is replaced.
func main() {
	email := flag.String("email", "admin@ratehub.local", "administrator email")
	pass := flag.String("password", "", "administrator password (policy enforced)")
	name := flag.String("name", "Platform Administrator Account", "administrator display name")
	address := flag.String("address", "1 Administration Street", "administrator address")
	flag.Parse()

	if *pass == "" {
		log.Fatal("-password is required")
	}
	if !validators.IsPasswordValid(*pass) {
		log.Fatal("password must be 8-16 characters with at least one uppercase letter and one of !@#$%^&*")
	}

	cfg := config.Load()
	db := dbpkg.NewDB(cfg)

	if err := db.Where("email = ?", *email).Delete(&models.User{}).Error; err != nil {
		log.Fatalf("failed to clear existing admin: %v", err)
	}

	hasher := password.NewHasher(cfg.BcryptCost)
	hashed, err := hasher.Hash(*pass)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	admin := models.User{
		Name:         *name,
		Email:        *email,
		PasswordHash: hashed,
		Address:      *address,
		Role:         models.RoleAdmin,
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Fatalf("failed to create admin: %v", err)
	}

	if !hasher.Verify(*pass, admin.PasswordHash) {
		log.Fatal("verification of the stored hash failed")
	}

	log.Printf("admin account ready: id=%d email=%s", admin.ID, admin.Email)
}
