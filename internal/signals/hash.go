package signals

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
)

// ListingHash is the identity of an opening: sha256 over company, role,
// location, term and apply URL in that order. Fields are whitespace
// collapsed and case folded first, so cosmetic upstream edits keep the
// same key. Missing fields hash as "".
func ListingHash(company, role, location, term, applyURL string) string {
	fold := cases.Fold()
	h := sha256.New()
	for i, f := range []string{company, role, location, term, applyURL} {
		if i > 0 {
			h.Write([]byte{'|'})
		}
		h.Write([]byte(fold.String(strings.Join(strings.Fields(f), " "))))
	}
	return hex.EncodeToString(h.Sum(nil))
}
