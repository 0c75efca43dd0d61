package redis

import (
	"fmt"
	"strings"

	"github.com/mcoot/realmkeeper/internal/model"
)

// Key prefix for all realm data
const keyPrefix = "realm"

// Credentials live under their own namespace, apart from game data
const authPrefix = keyPrefix + ":auth"

// accountKey returns the Redis key for an Account
func accountKey(id model.AccountID) string {
	return fmt.Sprintf("%s:account:%s", authPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> account_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", authPrefix, username)
}

// emailIndexKey returns the Redis key for the email -> account_id index.
// Emails are compared case-insensitively.
func emailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", authPrefix, strings.ToLower(email))
}

// kingdomKey returns the Redis key for a Kingdom document
func kingdomKey(id model.KingdomID) string {
	return fmt.Sprintf("%s:kingdom:%s", keyPrefix, id)
}

// kingdomsIndexKey returns the Redis key for the SET of every kingdom id
func kingdomsIndexKey() string {
	return fmt.Sprintf("%s:idx:kingdoms", keyPrefix)
}

// ownerKingdomsIndexKey returns the Redis key for the SET of kingdoms owned by an account
func ownerKingdomsIndexKey(owner model.AccountID) string {
	return fmt.Sprintf("%s:idx:owner:%s:kingdoms", keyPrefix, owner)
}

// cityIndexKey returns the Redis key for the HASH of city_id -> kingdom_id
func cityIndexKey() string {
	return fmt.Sprintf("%s:idx:cities", keyPrefix)
}

// eventKey returns the Redis key for an Event
func eventKey(id model.EventID) string {
	return fmt.Sprintf("%s:event:%s", keyPrefix, id)
}

// eventsIndexKey returns the Redis key for the ZSET of every event, scored by time
func eventsIndexKey() string {
	return fmt.Sprintf("%s:idx:events", keyPrefix)
}

// ownerEventsIndexKey returns the Redis key for the ZSET of one tenant's events
func ownerEventsIndexKey(owner model.AccountID) string {
	return fmt.Sprintf("%s:idx:owner:%s:events", keyPrefix, owner)
}

// kingdomEventsIndexKey returns the Redis key for the ZSET of one kingdom's events
func kingdomEventsIndexKey(id model.KingdomID) string {
	return fmt.Sprintf("%s:idx:kingdom:%s:events", keyPrefix, id)
}

// calendarEventKey returns the Redis key for a CalendarEvent
func calendarEventKey(id string) string {
	return fmt.Sprintf("%s:calendar_event:%s", keyPrefix, id)
}

// boundaryKey returns the Redis key for a Boundary
func boundaryKey(id string) string {
	return fmt.Sprintf("%s:boundary:%s", keyPrefix, id)
}

// collectionIndexKey returns the index holding every document id of a collection
func collectionIndexKey(c model.Collection) string {
	return fmt.Sprintf("%s:idx:%s", keyPrefix, c)
}
