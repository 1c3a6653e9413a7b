package domain

import "github.com/google/uuid"

// ownerNamespace scopes owner IDs derived from identity-provider subjects
var ownerNamespace = uuid.MustParse("7f1c2b8e-4d3a-5e6f-9a0b-1c2d3e4f5a6b")

// OwnerIDFromSubject maps an authenticated subject (e.g. "auth0|abc123") to a stable owner ID
func OwnerIDFromSubject(subject string) uuid.UUID {
	return uuid.NewSHA1(ownerNamespace, []byte(subject))
}
