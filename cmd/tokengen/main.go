// tokengen prints a signed session token for a user, for local testing.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"skillxchange/auth"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	JwtSecret string `envconfig:"JWT_SECRET" required:"true"`
	JwtIssuer string `envconfig:"JWT_ISSUER" default:"skillxchange"`
}

func main() {
	userID := flag.String("user", "", "User id carried by the token")
	duration := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	roles := flag.String("roles", "", "Comma separated roles")
	flag.Parse()

	if err := run(*userID, *duration, *roles); err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
}

func run(userID string, duration time.Duration, roles string) error {
	if userID == "" {
		return fmt.Errorf("-user is required")
	}
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return err
	}

	var roleList []string
	if roles != "" {
		roleList = strings.Split(roles, ",")
	}
	token, err := auth.NewTokens(config.JwtSecret, config.JwtIssuer, duration).GenerateToken(userID, roleList)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
