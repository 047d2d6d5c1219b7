// cmd/adduser/main.go
// Creates or updates an operator account.
//
// Usage:
//
//	go run ./cmd/adduser -username padraic -password testing
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/padraicbc/racereg/config"
	bundb "github.com/padraicbc/racereg/db"
	"github.com/padraicbc/racereg/handlers"
	"github.com/padraicbc/racereg/models"
)

func main() {
	username := flag.String("username", "", "username (required)")
	password := flag.String("password", "", "plain-text password (required)")
	flag.Parse()

	hash, err := handlers.HashPasswordForUser(*username, *password)
	if err != nil {
		log.Fatal("hash password: ", err)
	}

	ctx := context.Background()
	cfg := config.LoadDB()
	db, err := bundb.Setup(ctx, cfg)
	if err != nil {
		log.Fatal("connect: ", err)
	}
	defer db.Close()

	user := &models.User{
		Username: strings.TrimSpace(*username),
		Password: hash,
	}
	if err := bundb.NewRepository(db).SaveUser(ctx, user); err != nil {
		log.Fatal("save user: ", err)
	}

	fmt.Printf("user %q saved\n", user.Username)
}
