package model

import "time"

// ActorType enumerates the ActivityStreams actor types fedcore serves
// (§3.2).
type ActorType string

const (
	ActorPerson       ActorType = "Person"
	ActorService      ActorType = "Service"
	ActorGroup        ActorType = "Group"
	ActorApplication  ActorType = "Application"
	ActorOrganization ActorType = "Organization"
)

// PublicKeyInfo is the legacy RSA publicKey attachment on an actor document.
type PublicKeyInfo struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPEM string `json:"publicKeyPem"`
}

// Actor is the networked identity of §3.2.
type Actor struct {
	ID                        string          `json:"id"`
	Type                      ActorType       `json:"type"`
	PreferredUsername         string          `json:"preferredUsername"`
	Inbox                     string          `json:"inbox"`
	Outbox                    string          `json:"outbox"`
	Followers                 string          `json:"followers,omitempty"`
	Following                 string          `json:"following,omitempty"`
	Featured                  string          `json:"featured,omitempty"`
	PublicKey                 PublicKeyInfo   `json:"publicKey"`
	Authentication            []Multikey      `json:"authentication,omitempty"`
	AssertionMethod           []Multikey      `json:"assertionMethod,omitempty"`
	Icon                      string          `json:"icon,omitempty"`
	Image                     string          `json:"image,omitempty"`
	Summary                   string          `json:"summary,omitempty"`
	AlsoKnownAs               []string        `json:"alsoKnownAs,omitempty"`
	Attachments               []ActorAttachment `json:"attachment,omitempty"`
	ManuallyApprovesFollowers bool            `json:"manuallyApprovesFollowers"`
	URL                       string          `json:"url,omitempty"`
	Gateways                  []string        `json:"gateways,omitempty"`

	// HasLocalKeys indicates the node holds the secret keys for this actor
	// (it is a local actor) rather than a cached remote profile. Modeled as
	// a flag rather than a second type per DESIGN NOTES "portable identity"
	// (behavioral, not structural, polymorphism).
	HasLocalKeys bool `json:"-"`

	UnreachableSince *time.Time `json:"-"`
}

// ActorAttachment is the sum type {IdentityProof, PaymentOption, ExtraField}
// attached to an actor or object (§3.3). Exactly one of the fields is set.
type ActorAttachment struct {
	IdentityProof *IdentityProof `json:"identityProof,omitempty"`
	PaymentOption *PaymentOption `json:"paymentOption,omitempty"`
	ExtraField    *ExtraField    `json:"extraField,omitempty"`
}

// IsPortable reports whether the actor's canonical id has the ap://did:key
// scheme (§3.2, §3.6).
func (a *Actor) IsPortable() bool {
	return len(a.ID) > len("ap://did:key:") && a.ID[:len("ap://did:key:")] == "ap://did:key:"
}

// InvariantMultikeyControllers checks that every Authentication/
// AssertionMethod Multikey has Controller == a.ID (§3.2 invariant).
func (a *Actor) InvariantMultikeyControllers() bool {
	for _, k := range append(append([]Multikey{}, a.Authentication...), a.AssertionMethod...) {
		if k.Controller != a.ID {
			return false
		}
	}
	return true
}

// IdentityProof is a self-signed statement that an actor controls a Did
// (§3.3).
type IdentityProof struct {
	Issuer    string `json:"issuer"` // Did string form
	ProofType string `json:"proofType"`
	Value     string `json:"value"` // signed JSON statement, multibase/b64 depending on proof type
}

// PaymentOptionKind discriminates the PaymentOption sum type (§3.3).
type PaymentOptionKind string

const (
	PaymentLink                     PaymentOptionKind = "Link"
	PaymentEthereumSubscription     PaymentOptionKind = "EthereumSubscription"
	PaymentMoneroSubscription       PaymentOptionKind = "MoneroSubscription"
	PaymentRemoteMoneroSubscription PaymentOptionKind = "RemoteMoneroSubscription"
)

// PaymentOption is the sum type {Link, EthereumSubscription,
// MoneroSubscription, RemoteMoneroSubscription} (§3.3).
type PaymentOption struct {
	Kind    PaymentOptionKind `json:"kind"`
	URL     string            `json:"url,omitempty"` // Link
	ChainID string            `json:"chainId,omitempty"`

	// MoneroSubscription / RemoteMoneroSubscription
	Price         uint64 `json:"price,omitempty"` // atomic units per second of subscription
	PayoutAddress string `json:"payoutAddress,omitempty"`
	ObjectID      string `json:"objectId,omitempty"` // RemoteMoneroSubscription
}

// ExtraField is a free-form actor/object attachment (§3.3).
type ExtraField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source,omitempty"`
}
