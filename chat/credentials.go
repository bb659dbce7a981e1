package chat

import "golang.org/x/crypto/bcrypt"

// CredentialChecker turns a supplied secret into its stored form and verifies
// a supplied secret against a stored one. The adapter never touches secrets
// directly, so the scheme can change without touching any operation.
type CredentialChecker interface {
	Store(password string) (string, error)
	Check(stored, supplied string) bool
}

// PlainChecker stores and compares secrets verbatim. It matches the behavior
// existing clients depend on; prefer BcryptChecker for new deployments.
type PlainChecker struct{}

func (PlainChecker) Store(password string) (string, error) { return password, nil }

func (PlainChecker) Check(stored, supplied string) bool { return stored == supplied }

// BcryptChecker stores bcrypt hashes. Zero Cost means bcrypt's default.
type BcryptChecker struct {
	Cost int
}

func (b BcryptChecker) Store(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = 14
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b BcryptChecker) Check(stored, supplied string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
}

// CheckerFromConfig maps the CRED_SCHEME setting to a checker. Anything but
// "bcrypt" keeps the compatibility scheme.
func CheckerFromConfig(scheme string) CredentialChecker {
	if scheme == "bcrypt" {
		return BcryptChecker{}
	}
	return PlainChecker{}
}
