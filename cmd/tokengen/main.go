package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tendant/simple-delegation/pkg/asset"
	"github.com/tendant/simple-delegation/pkg/tokengenerator"
)

func main() {
	secret := flag.String("secret", "very-secure-jwt-secret", "Secret key for signing the token (JWT_SECRET of the registry)")
	issuer := flag.String("issuer", "simple-delegation", "Issuer of the token")
	audience := flag.String("audience", "", "Audience of the token")
	account := flag.String("account", "", "Caller account address, becomes the sub claim")
	roles := flag.String("roles", "", "Comma-separated roles, dev unlocks the dev oracle mint and transfer routes")
	expiry := flag.Duration("expiry", 30*time.Minute, "Token expiry duration (e.g., 30m, 1h, 24h)")
	outputFormat := flag.String("format", "compact", "Output format: compact, full, or debug")
	flag.Parse()

	caller, err := asset.ParseAccount(*account)
	if err != nil || caller == asset.NoAccount {
		fmt.Fprintf(os.Stderr, "Error: -account must be a non-zero hex address\n")
		os.Exit(1)
	}

	var roleList []string
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roleList = append(roleList, r)
		}
	}

	tokenGen := tokengenerator.NewJwtTokenGenerator(*secret, *issuer, *audience)
	tokenStr, expiryTime, err := tokenGen.GenerateToken(caller, roleList, *expiry)
	if err != nil {
		slog.Error("Failed to generate token", "err", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "compact":
		fmt.Println(tokenStr)
	case "full":
		fmt.Printf("Token: %s\nExpires: %s\n", tokenStr, expiryTime.Format(time.RFC3339))
	case "debug":
		claims, err := tokenGen.ParseToken(tokenStr)
		if err != nil {
			slog.Error("Failed to parse generated token", "err", err)
			os.Exit(1)
		}
		fmt.Printf("=== Token Information ===\n")
		fmt.Printf("Token: %s\n\n", tokenStr)
		fmt.Printf("=== Token Claims ===\n")
		claimsJSON, _ := json.MarshalIndent(claims, "", "  ")
		fmt.Printf("%s\n\n", claimsJSON)
		fmt.Printf("Expires: %s\n", expiryTime.Format(time.RFC3339))
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown output format: %s\n", *outputFormat)
		os.Exit(1)
	}
}
