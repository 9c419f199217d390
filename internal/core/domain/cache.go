package domain

import "fmt"

// AccountCacheKey is the read-projection key for an account: "Account:{ownerId}:{accountId}".
func AccountCacheKey(ownerID, accountID int64) string {
	return fmt.Sprintf("Account:%d:%d", ownerID, accountID)
}
