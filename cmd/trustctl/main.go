// Package main is the trustctl operator CLI: key generation, credential
// hashing, token encryption and request signing from the shell.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
