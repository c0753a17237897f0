// utils/share.go
package utils

import (
	"fmt"
	"net/url"
)

// Share-URL builders for the "share my badge/level" UI actions. Pure string
// formatting — no network, no state.

// ShareBadgeURL returns the platform page for a specific unlocked badge.
func ShareBadgeURL(baseURL, username, badgeID string) string {
	return fmt.Sprintf("%s/u/%s/badges/%s", baseURL, url.PathEscape(username), url.PathEscape(badgeID))
}

// ShareLevelText returns the canned social caption for a level-up.
func ShareLevelText(username string, level int) string {
	return fmt.Sprintf("%s just reached level %d! 🎓", username, level)
}

// TwitterIntentURL wraps a caption and link into a tweet intent.
func TwitterIntentURL(text, link string) string {
	v := url.Values{}
	v.Set("text", text)
	v.Set("url", link)
	return "https://twitter.com/intent/tweet?" + v.Encode()
}
