package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the tempwatch MQTT hierarchy.
//
//	tempwatch/write/{device}          sensor → core  reading submissions
//	tempwatch/event/update/{device}   core → any     stored-reading events
//	tempwatch/system/status           core → any     retained online/offline
const (
	// TopicPrefix is the root of every tempwatch topic.
	TopicPrefix = "tempwatch"

	// TopicPrefixWrite is where devices submit readings.
	TopicPrefixWrite = TopicPrefix + "/write"

	// TopicPrefixEvent is where the core mirrors update events.
	TopicPrefixEvent = TopicPrefix + "/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics provides builders for tempwatch MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Write("room_12")  // "tempwatch/write/room_12"
type Topics struct{}

// Write returns the topic a device publishes its readings to.
func (Topics) Write(device string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixWrite, device)
}

// AllWrites returns the subscription pattern covering every device's write topic.
func (Topics) AllWrites() string {
	return TopicPrefixWrite + "/+"
}

// Update returns the topic an update event for device is mirrored to.
func (Topics) Update(device string) string {
	return fmt.Sprintf("%s/update/%s", TopicPrefixEvent, device)
}

// AllUpdates returns the subscription pattern covering every update event.
func (Topics) AllUpdates() string {
	return TopicPrefixEvent + "/update/+"
}

// SystemStatus returns the retained online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// DeviceFromWriteTopic extracts the device segment of a write topic.
// It reports false when topic is not a single-level write topic.
func (Topics) DeviceFromWriteTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixWrite+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
