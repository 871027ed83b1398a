package main

import (
	"fmt"
	"log"
	"os"

	"github.com/whatthedob/whatthedob-backend/config"
	"github.com/whatthedob/whatthedob-backend/internal/middleware"
	"github.com/whatthedob/whatthedob-backend/pkg/util"
)

// Prints a bearer token for the /api/v1/admin routes.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/admintoken/main.go <operator>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	token, err := util.GenerateToken(os.Args[1], middleware.RoleAdmin, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	if err != nil {
		log.Fatal("Failed to generate token:", err)
	}

	fmt.Println(token)
}
