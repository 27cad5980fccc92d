// Command token prints a signed development bearer token for an external user id.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"threads/internal/config"
	"threads/internal/middleware"
)

func main() {
	sub := flag.String("sub", "", "External user id to put in the sub claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *sub == "" {
		log.Fatal("usage: token -sub <externalId> [-ttl 24h]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to mint tokens in production")
	}

	token, err := middleware.IssueToken(middleware.AuthConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
	}, *sub, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
