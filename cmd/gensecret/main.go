// gensecret prints random hex encoded key suitable for SECRET_KEY
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const defaultKeyBytesLen = 32

// HS256 needs at least 256 bit key
const minKeyBytesLen = 32

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "gensecret: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("gensecret", pflag.ContinueOnError)
	length := fs.IntP("bytes", "n", defaultKeyBytesLen, "Key length in bytes, printed as twice as many hex characters")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := generate(*length)
	if err != nil {
		return err
	}

	fmt.Println(key)
	return nil
}

func generate(length int) (string, error) {
	if length < minKeyBytesLen {
		return "", fmt.Errorf("key must be at least %d bytes, got %d", minKeyBytesLen, length)
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while generating secret key: %w", err)
	}

	return hex.EncodeToString(b), nil
}
