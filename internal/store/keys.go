package store

// Redis key naming conventions. All keys are prefixed with "notifier:".

const keyPrefix = "notifier:"

// subscriptionIDsKey is the Set tracking every subscription nickname.
const subscriptionIDsKey = keyPrefix + "subscriptions"

// subscriptionKey returns the Hash key of a subscription: notifier:subscription:{nickname}
func subscriptionKey(nickname string) string { return keyPrefix + "subscription:" + nickname }

// snapshotKey returns the key of a forecast snapshot: notifier:snapshot:{city}:{date}
func snapshotKey(city, date string) string { return keyPrefix + "snapshot:" + city + ":" + date }
