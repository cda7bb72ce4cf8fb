package mqtt

import "fmt"

// DefaultTopicPrefix is used when the configuration leaves topic_prefix empty.
const DefaultTopicPrefix = "graydb"

// Topics provides builders for graydb MQTT topics under a configurable prefix.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.NewTopics("graydb")
//	topics.QueryEvent("sqlite", "select")
//	// Returns: "graydb/query/sqlite/select"
type Topics struct {
	Prefix string
}

// NewTopics creates a topic builder. An empty prefix uses DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// QueryEvent returns the topic for statement notifications of one category.
//
// Example: graydb/query/pgsql/write
func (t Topics) QueryEvent(driver, category string) string {
	return fmt.Sprintf("%s/query/%s/%s", t.prefix(), driver, category)
}

// Stats returns the topic for collector counter snapshots.
//
// Example: graydb/stats
func (t Topics) Stats() string {
	return fmt.Sprintf("%s/stats", t.prefix())
}

// SystemStatus returns the system status topic (online/offline, LWT).
//
// Example: graydb/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.prefix())
}
