package accounts

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/goliatone/go-errors"
)

// oneTimeTokenBytes yields 160 bits of entropy per token, comfortably above
// the guessing-infeasibility floor for any plausible expiry window.
const oneTimeTokenBytes = 20

// MintOneTimeToken returns a random opaque token for email verification and
// password reset links. It is pure and side effect free: the token embeds no
// structure and no expiry, and the caller is responsible for persisting it
// (expiry, where needed, is the paired timestamp on the account).
func MintOneTimeToken() (string, error) {
	buf := make([]byte, oneTimeTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to read random bytes for token")
	}
	return hex.EncodeToString(buf), nil
}
