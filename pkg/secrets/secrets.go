package secrets

import (
	"github.com/pkg/errors"
	"github.com/sethvargo/go-password/password"
	"golang.org/x/crypto/bcrypt"
)

// Generate returns an alphanumeric secret of the given length, suitable for
// the admin console token.
func Generate(length int) (string, error) {
	generator, err := password.NewGenerator(&password.GeneratorInput{
		Symbols: "",
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to create password generator")
	}

	secret, err := generator.Generate(length, 0, 0, false, false)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate secret")
	}

	return secret, nil
}

// Hash returns the bcrypt hash stored in the config in place of the secret.
func Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash secret")
	}

	return string(hash), nil
}

func Verify(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
