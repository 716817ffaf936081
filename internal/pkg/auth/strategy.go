package auth

import "time"

// Strategy issues and verifies tenant-scoped read tokens.
type Strategy interface {
	IssueToken(tenantID string) (string, error)
	ParseToken(token string) (string, error)
	Name() string
}

type Options struct {
	TTL time.Duration
}
