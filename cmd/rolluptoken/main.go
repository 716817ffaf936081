// Command rolluptoken mints stats read tokens and ingest key hashes.
//
//	TOKEN_SECRET=... rolluptoken -tenant store-1 -ttl 720h
//	rolluptoken -hash-key "$INGEST_KEY"
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	pkgAuth "github.com/polkiloo/salesrollup/internal/pkg/auth"
)

func main() {
	os.Exit(run(os.Args[1:], os.LookupEnv, os.Stdout, os.Stderr))
}

func run(args []string, lookup func(string) (string, bool), stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rolluptoken", flag.ContinueOnError)
	fs.SetOutput(stderr)

	secret, _ := lookup("TOKEN_SECRET")
	var (
		tenant  = fs.String("tenant", "", "Tenant granted read access")
		ttl     = fs.Duration("ttl", 24*time.Hour, "Token lifetime")
		hashKey = fs.String("hash-key", "", "Print the bcrypt hash of an ingest API key instead of a token")
	)
	fs.StringVar(&secret, "secret", secret, "Signing secret, defaults to TOKEN_SECRET")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *hashKey != "" {
		hash, err := pkgAuth.NewBcryptHasher(0).Hash(*hashKey)
		if err != nil {
			fmt.Fprintf(stderr, "hash key: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, hash)
		return 0
	}

	if secret == "" {
		fmt.Fprintln(stderr, "TOKEN_SECRET or -secret is required")
		return 2
	}
	token, err := pkgAuth.NewHMACStrategy(secret, pkgAuth.Options{TTL: *ttl}).IssueToken(*tenant)
	if err != nil {
		fmt.Fprintf(stderr, "issue token: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
