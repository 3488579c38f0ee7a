package mqtt

import "strings"

const (
	measurementSuffix = "measurement"
	sopSuffix         = "sop"
)

// MeasurementTopic is the topic a pack's measurements arrive on.
func MeasurementTopic(prefix, pack string) string {
	return prefix + "/" + pack + "/" + measurementSuffix
}

// SOPTopic is the topic a pack's SOP results are published on.
func SOPTopic(prefix, pack string) string {
	return prefix + "/" + pack + "/" + sopSuffix
}

// PackFromTopic extracts the pack id of a measurement topic.
func PackFromTopic(prefix, topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", false
	}
	pack, ok := strings.CutSuffix(rest, "/"+measurementSuffix)
	if !ok || pack == "" || strings.Contains(pack, "/") {
		return "", false
	}
	return pack, true
}
