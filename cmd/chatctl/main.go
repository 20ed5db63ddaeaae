// chatctl creates users and rooms out-of-band. The server never creates
// either; accounts and channels exist before the delivery layer touches
// them.
//
//	chatctl adduser <handle> <password>
//	chatctl addroom <name> <slug>
package main

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/anugrahsoft/chatstream/internal/config"
	"github.com/anugrahsoft/chatstream/internal/store"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9-]{1,64}$`)

func main() {
	if len(os.Args) != 4 {
		usage()
	}

	cfg := config.Load()
	ctx := context.Background()

	var st store.DataStore
	if cfg.DatabaseURL != "" {
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			fatal("migration failed: %v", err)
		}
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			fatal("postgres connection failed: %v", err)
		}
		defer pg.Close()
		st = pg
	} else {
		sq, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			fatal("sqlite open failed: %v", err)
		}
		defer sq.Close()
		st = sq
	}

	switch os.Args[1] {
	case "adduser":
		handle, password := os.Args[2], os.Args[3]
		if handle == "" || password == "" {
			fatal("handle and password must be non-empty")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			fatal("password hash failed: %v", err)
		}
		user, err := st.CreateUser(ctx, handle, string(hash))
		if err != nil {
			fatal("create user failed: %v", err)
		}
		fmt.Printf("created user %q (id %d)\n", user.Handle, user.ID)

	case "addroom":
		name, slug := os.Args[2], os.Args[3]
		if name == "" || !slugRegex.MatchString(slug) {
			fatal("room needs a non-empty name and a slug of [a-z0-9-]")
		}
		room, err := st.CreateRoom(ctx, name, slug)
		if err != nil {
			fatal("create room failed: %v", err)
		}
		fmt.Printf("created room %q at /room/%s (id %d)\n", room.Name, room.Slug, room.ID)

	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: chatctl adduser <handle> <password> | addroom <name> <slug>")
	os.Exit(2)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
