// Command token mints an access token for local development and smoke
// tests.  It reads JWT_SECRET the same way the server does.
//
//	go run ./cmd/token -user 7f0c... -role ADMIN -ttl 2h
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/iliyamo/class-session-booking/internal/config"
	"github.com/iliyamo/class-session-booking/internal/middleware"
	"github.com/iliyamo/class-session-booking/internal/utils"
)

type tokenEnv struct {
	JWTSecret string `env:"JWT_SECRET,required"`
}

func main() {
	user := flag.String("user", "", "subject (user id) of the token")
	role := flag.String("role", middleware.RoleMember, "role claim: ADMIN or MEMBER")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if err := run(*user, *role, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		os.Exit(1)
	}
}

func run(user, role string, ttl time.Duration) error {
	if role != middleware.RoleAdmin && role != middleware.RoleMember {
		return fmt.Errorf("unknown role %q", role)
	}
	var cfg tokenEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return err
	}
	tok, err := utils.NewAccessToken(cfg.JWTSecret, user, role, ttl)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(tok)
}
