package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/print-order-api/internal/domain"
	jwtinfra "github.com/print-order-api/internal/infrastructure/jwt"
)

// admintoken issues a bearer token for the /v1/admin routes, signed with the
// private half of the key the API verifies with.
func main() {
	keyPath := flag.String("key", "./private_key.pem", "PEM file with the RSA private key")
	subject := flag.String("subject", "", "Who the token is issued to (shows up in audit logs)")
	role := flag.String("role", domain.RoleAdmin, "Role claim")
	expiry := flag.Duration("expiry", 12*time.Hour, "Token lifetime (e.g. 30m, 12h)")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "Error: -subject is required")
		flag.Usage()
		os.Exit(2)
	}

	signer, err := jwtinfra.NewSigner(*keyPath, *expiry)
	if err != nil {
		slog.Error("Failed to load signing key", "path", *keyPath, "err", err)
		os.Exit(1)
	}
	tok, err := signer.Sign(*subject, *role)
	if err != nil {
		slog.Error("Failed to sign token", "err", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
