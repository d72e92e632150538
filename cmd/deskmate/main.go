// Deskmate is a desktop assistant: type, say or gesture a request and it
// is turned into an action by a language model, run, and answered.
//
// Usage:
//
//	deskmate [--voice] [--gesture] [--wakeword] [--bus] [--brief]
//	deskmate once "what time is it"
//	deskmate gesture train PEACE_SIGN
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
