package relay

import "strings"

// Known response-id prefixes across the supported wire formats.
const (
	IDPrefixChatCompletion = "chatcmpl-"
	IDPrefixResponse       = "resp_"
	IDPrefixMessage        = "msg_"
)

var knownIDPrefixes = []string{IDPrefixChatCompletion, IDPrefixResponse, IDPrefixMessage}

// IDSuffix strips any known format prefix from a response id, leaving the
// stable suffix.
func IDSuffix(id string) string {
	for _, prefix := range knownIDPrefixes {
		if strings.HasPrefix(id, prefix) {
			return strings.TrimPrefix(id, prefix)
		}
	}
	return id
}

// RebrandID re-prefixes a response id for a target format without changing
// its suffix, so ids survive round trips between formats.
func RebrandID(id, targetPrefix string) string {
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, targetPrefix) {
		return id
	}
	return targetPrefix + IDSuffix(id)
}
