package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aussiebroadwan/turnstile/internal/auth/app"
	"github.com/aussiebroadwan/turnstile/pkg/cryptox"
)

func main() {
	cfg := app.LoadConfig()

	// `auth hash-password` reads a password from stdin and prints the hash
	// to paste into the members file.
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(cfg.PepperFile); err != nil {
			log.Fatalf("hash-password: %v", err)
		}
		return
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

func hashPassword(pepperFile string) error {
	pepper, err := cryptox.LoadOrCreatePepper(pepperFile)
	if err != nil {
		return err
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}

	hash, err := cryptox.PasswordHasher{Pepper: pepper}.Hash(password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
