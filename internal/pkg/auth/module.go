package auth

import (
	"go.uber.org/fx"

	"github.com/polkiloo/salesrollup/internal/config"
)

// Module provides authentication primitives via fx.
var Module = fx.Options(
	fx.Provide(newPasswordHasher),
	fx.Provide(newTokenStrategy),
	fx.Provide(newKeyVerifier),
)

func newPasswordHasher() PasswordHasher {
	return NewBcryptHasher(0)
}

type strategyParams struct {
	fx.In

	Config *config.Config
}

func newTokenStrategy(p strategyParams) Strategy {
	return NewHMACStrategy(p.Config.TokenSecret, Options{})
}

type verifierParams struct {
	fx.In

	Config *config.Config
	Hasher PasswordHasher
}

func newKeyVerifier(p verifierParams) KeyVerifier {
	return NewHashedKeyVerifier(p.Config.IngestAPIKeyHash, p.Hasher)
}
