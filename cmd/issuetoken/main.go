// Command issuetoken prints a signed API token for a service or operator.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/Artufe/bravo-tango-bravo/internal/auth"
	"github.com/Artufe/bravo-tango-bravo/internal/config"
)

func main() {
	subject := flag.String("subject", "", "token subject, e.g. a service name")
	email := flag.String("email", "", "optional contact email")
	role := flag.String("role", auth.RoleOperator, "role: operator or admin")
	ttl := flag.Duration("ttl", 0, "token lifetime (default JWT_TTL)")
	flag.Parse()

	if *role != auth.RoleOperator && *role != auth.RoleAdmin {
		fmt.Fprintf(os.Stderr, "issuetoken: unknown role %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "issuetoken: load config: %v\n", err)
		os.Exit(1)
	}

	lifetime := cfg.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL).GenerateTokenWithTTL(*subject, *email, *role, lifetime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issuetoken: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(lifetime).UTC().Format(time.RFC3339))
	fmt.Println(token)
}
