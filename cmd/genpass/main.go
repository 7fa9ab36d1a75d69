// Command genpass prints the bcrypt hash of a supervisor passcode for
// the OVERRIDE_PASSCODE_HASH environment variable.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/example/gatewatch/internal/utils"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatal("usage: genpass <passcode>")
	}

	hash, err := utils.HashPassword(os.Args[1])
	if err != nil {
		log.Fatalf("hash failed: %v", err)
	}
	fmt.Println(hash)
}
