// kingo-token mints a bearer token for a handle directly from the server
// secret. The public join endpoint refuses the organizer handle, so the
// organizer token is issued here, on the host that holds the secret.
package main

import (
	"fmt"
	"os"
	"strings"

	"kingo/internal/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: kingo-token <handle>")
		os.Exit(2)
	}
	secret := strings.TrimSpace(os.Getenv("KINGO_AUTH_SECRET"))
	if secret == "" {
		fmt.Fprintln(os.Stderr, "KINGO_AUTH_SECRET is required")
		os.Exit(1)
	}
	minter, err := auth.NewMinter(secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	token, err := minter.Mint(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
