package testutil

import (
	"time"

	"tombola/models"
)

// CreateTestCollection builds an open raffle with default values
func CreateTestCollection(hostAccountID int64) *models.Collection {
	return &models.Collection{
		Kind:          models.CollectionKindRaffle,
		HostAccountID: hostAccountID,
		State:         models.CollectionStateOpen,
		ItemPrice:     100,
		Currency:      models.CurrencyCoins,
		ItemCount:     10,
	}
}

// CreateTestCollectionWithKind builds an open collection of the given kind and size
func CreateTestCollectionWithKind(hostAccountID int64, kind models.CollectionKind, itemCount int) *models.Collection {
	collection := CreateTestCollection(hostAccountID)
	collection.Kind = kind
	collection.ItemCount = itemCount
	return collection
}

// CreateTestReferralToken builds an active token for the owner
func CreateTestReferralToken(token string, ownerAccountID int64) *models.ReferralToken {
	return &models.ReferralToken{
		Token:          token,
		OwnerAccountID: ownerAccountID,
		Status:         models.ReferralTokenStatusActive,
	}
}

// CreateTestReferralTokenExpiring builds an active token with the given expiry
func CreateTestReferralTokenExpiring(token string, ownerAccountID int64, expiresAt time.Time) *models.ReferralToken {
	row := CreateTestReferralToken(token, ownerAccountID)
	row.ExpiresAt = &expiresAt
	return row
}
