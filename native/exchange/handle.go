package exchange

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// OfferID is the unforgeable identity of one live offer. The handle carries
// no data: it can only be compared for equality and used as a ledger key, so
// a reusable-integer offer-confusion attack is not expressible. Handles are
// derived from the instance identity and fresh entropy, never from caller
// input.
type OfferID [32]byte

func (id OfferID) String() string { return hex.EncodeToString(id[:8]) }

// IsZero reports whether the handle is the zero value, which is never a live
// offer.
func (id OfferID) IsZero() bool { return id == OfferID{} }

func newOfferID(instance uuid.UUID) (OfferID, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return OfferID{}, fmt.Errorf("exchange: offer id entropy: %w", err)
	}
	return OfferID(ethcrypto.Keccak256Hash(instance[:], nonce[:])), nil
}
