package rediskey

import "fmt"

// Rewards keys (global convention across the engine)
const (
	GamePrefix = "rewards:game"
	EconomyKey = "rewards:economy"
	WheelKey   = "rewards:wheel"
	GotdKey    = "rewards:gotd"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildGameConfigKey returns "rewards:game:{gameID}"
func BuildGameConfigKey(gameID string) string {
	return NamespaceKey(GamePrefix, gameID)
}
