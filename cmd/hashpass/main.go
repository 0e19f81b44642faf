// cmd/hashpass prints the bcrypt hash to put in HOST_PASSCODE_HASH.
//
//	go run ./cmd/hashpass <passcode>
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "usage: hashpass <passcode>")
		os.Exit(2)
	}
	hash, err := auth.HashPasscode(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hash)
}
