// Package model implements the data model of spec.md §3: actors, posts,
// activities, invoices and subscriptions, plus the key/identity types they
// embed. These are plain structs with json tags, shared by every other
// fedcore package — there is no teacher equivalent (Synnergy models chain
// accounts, not ActivityPub actors), so this package is built fresh,
// grounded on the shapes in original_source/mitra_models and
// other_examples/e03a558f_snoymy-activitypub (field naming only, not code).
package model

// KeyType enumerates the key algorithms a Multikey may hold (§3.1).
type KeyType string

const (
	KeyTypeRSA     KeyType = "Rsa"
	KeyTypeEd25519 KeyType = "Ed25519"
)

// Multikey is (controller, key id, key type, public key bytes). Invariant:
// KeyID is Controller plus a fragment; Controller equals the enclosing
// actor id when attached to an actor.
type Multikey struct {
	Controller string  `json:"controller"`
	KeyID      string  `json:"id"`
	Type       KeyType `json:"type"`
	PublicKey  []byte  `json:"publicKeyBytes"`
}

// Valid checks the Multikey invariant: KeyID must be Controller plus a
// non-empty fragment.
func (m Multikey) Valid() bool {
	if m.Controller == "" || m.KeyID == "" {
		return false
	}
	if len(m.KeyID) <= len(m.Controller) {
		return false
	}
	if m.KeyID[:len(m.Controller)] != m.Controller {
		return false
	}
	rest := m.KeyID[len(m.Controller):]
	return len(rest) > 1 && rest[0] == '#'
}
