// Command hashpw prints the argon2id hash for a password, for seeding
// cashier accounts directly in the database.
package main

import (
	"fmt"
	"os"

	"github.com/khanhERP/laundry-pos/internal/app"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpw <password>")
		os.Exit(2)
	}
	hash, err := app.HashPassword(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
