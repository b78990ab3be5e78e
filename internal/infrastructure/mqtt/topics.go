package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "oml"

// Topics provides builders for the OML MQTT topic tree.
//
//	topics := mqtt.Topics{Prefix: "oml"}
//	topics.Measurements("cpu")   // "oml/measurements/cpu"
//	topics.SystemStatus("probe") // "oml/status/probe"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.Trim(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// Measurements returns the topic protocol text for stream is published on.
//
// Example: oml/measurements/cpu
func (t Topics) Measurements(stream string) string {
	return fmt.Sprintf("%s/measurements/%s", t.prefix(), sanitiseLevel(stream))
}

// SystemStatus returns the retained online/offline topic for a client.
//
// Example: oml/status/oml4go-cpu
func (t Topics) SystemStatus(clientID string) string {
	return fmt.Sprintf("%s/status/%s", t.prefix(), sanitiseLevel(clientID))
}

// sanitiseLevel removes characters that would change the topic structure.
// Slashes are kept so a stream may span several levels.
func sanitiseLevel(s string) string {
	s = strings.Trim(s, "/")
	return strings.NewReplacer("+", "_", "#", "_", "\x00", "").Replace(s)
}
