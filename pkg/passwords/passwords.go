// Package passwords hashes and verifies login secrets.
//
// New digests are bcrypt. Thirteen-character DES crypt(3) digests carried
// over from older worlds are still accepted by Verify.
package passwords

import (
	"crypto/rand"
	"math/big"
	"strings"

	descrypt "github.com/digitive/crypt"
	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor used by Hash.
var Cost = bcrypt.DefaultCost

// Hash returns a one-way digest of secret.
func Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), Cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify checks secret against a digest produced by Hash or by DES crypt(3).
func Verify(secret, digest string) bool {
	if strings.HasPrefix(digest, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
	}
	return checkDES(secret, digest)
}

// NeedsRehash reports whether digest should be replaced by a fresh Hash.
func NeedsRehash(digest string) bool {
	if !strings.HasPrefix(digest, "$2") {
		return true
	}
	cost, err := bcrypt.Cost([]byte(digest))
	return err != nil || cost != Cost
}

// crypt performs traditional Unix DES crypt(3).
func crypt(secret, salt string) string {
	result, err := descrypt.Crypt(secret, salt)
	if err != nil {
		return ""
	}
	return result
}

func checkDES(secret, digest string) bool {
	if len(digest) != 13 {
		return false
	}
	computed := crypt(secret, digest[:2])
	return computed != "" && computed == digest
}

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Random returns a password of length letters and digits.
func Random(length int) string {
	var b strings.Builder
	max := big.NewInt(int64(len(alphabet)))
	for range length {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String()
}
