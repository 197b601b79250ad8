package rediskey

import "fmt"

// SequencePrefix namespaces the daily counters behind human-facing codes.
// Keep prefixes here so two services never collide on the same redis
// namespace.
const SequencePrefix = "seq"

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildDailySequenceKey returns "seq:{prefix}:{yymmdd}".
func BuildDailySequenceKey(prefix, day string) string {
	return NamespaceKey(NamespaceKey(SequencePrefix, prefix), day)
}
