package canonical

import "strings"

// OwnKey builds the source-derived canonical key for a candidate: the
// jurisdiction path joined with colons, then the source-native id. A
// jurisdiction segment already leading the external id is not repeated, so
// "us/az/phoenix" + "phoenix:res-22060" yields "us:az:phoenix:res-22060".
func OwnKey(jurisdiction, externalID string) string {
	key := strings.ReplaceAll(strings.Trim(jurisdiction, "/"), "/", ":")
	seg := key
	if i := strings.LastIndex(key, ":"); i >= 0 {
		seg = key[i+1:]
	}
	externalID = strings.TrimPrefix(externalID, seg+":")
	return key + ":" + externalID
}
