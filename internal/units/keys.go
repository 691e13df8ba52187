package units

import (
	"fmt"
	"strings"
)

const cartKeyPrefix = "CART-"

// CartCorrelationID builds the correlation id a cart tab reserves under.
func CartCorrelationID(userID, tabID string) string {
	return fmt.Sprintf("%s%s-%s", cartKeyPrefix, userID, tabID)
}

// CartPrefix is the correlation id prefix shared by every tab of a user's cart.
func CartPrefix(userID string) string {
	return fmt.Sprintf("%s%s-", cartKeyPrefix, userID)
}

// ParseCartCorrelationID splits a cart correlation id into user and tab. The user
// id ends at the first dash after the CART- prefix.
func ParseCartCorrelationID(correlationID string) (userID, tabID string, ok bool) {
	rest, found := strings.CutPrefix(correlationID, cartKeyPrefix)
	if !found {
		return "", "", false
	}
	userID, tabID, found = strings.Cut(rest, "-")
	if !found || userID == "" || tabID == "" {
		return "", "", false
	}
	return userID, tabID, true
}
