package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
	"github.com/noah-isme/sma-dismissal-api/internal/service"
	"github.com/noah-isme/sma-dismissal-api/pkg/config"
)

type output struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	SchoolID  string    `json:"schoolId,omitempty"`
}

// dev_token signs an access token with the configured JWT secret so local
// clients can exercise the API without an identity provider.
func main() {
	var (
		userID   string
		role     string
		schoolID string
		name     string
		ttl      time.Duration
	)

	flag.StringVar(&userID, "user", "", "User ID placed in the token")
	flag.StringVar(&role, "role", string(models.RoleOffice), "Role (SUPERADMIN, ADMIN, OFFICE, TEACHER, PARENT)")
	flag.StringVar(&schoolID, "school", "", "School ID (optional for SUPERADMIN)")
	flag.StringVar(&name, "name", "", "Display name")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime, defaults to JWT_EXPIRATION")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Env == config.EnvProduction {
		log.Fatal("refusing to issue tokens in production")
	}

	expiry := cfg.JWT.Expiration
	if ttl > 0 {
		expiry = ttl
	}

	auth := service.NewAuthService(validator.New(), zap.NewNop(), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: expiry,
		Issuer:            cfg.JWT.Issuer,
	})

	token, expiresAt, err := auth.IssueToken(service.TokenSubject{
		UserID:   userID,
		Role:     models.UserRole(role),
		SchoolID: schoolID,
		FullName: name,
	})
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output{Token: token, ExpiresAt: expiresAt, UserID: userID, Role: role, SchoolID: schoolID}); err != nil {
		log.Fatalf("failed to write token: %v", err)
	}
}
