package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the email is unknown so a failed login
// costs the same whether or not the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("fund-ledger-dummy-password"), bcrypt.DefaultCost)

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
