package gateway

import (
	"regexp"
	"strings"

	"github.com/AzielCF/chatbot-platform/domain"
)

var (
	reBotID              = regexp.MustCompile(`^/bots/([^/]+)`)
	reUserRoot           = regexp.MustCompile(`^/users/([^/]+)$`)
	reUserSub            = regexp.MustCompile(`^/users/([^/]+)/`)
	reAutoReplyQueue     = regexp.MustCompile(`^/features/automatic_bot_reply/queue/([^/]+)`)
	reGroupTrackingQueue = regexp.MustCompile(`^/features/periodic_group_tracking/trackedGroupMessages/([^/]+)`)
	reUnsafe             = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// isSafeIdentifier rejects path-extracted ids containing traversal or
// separator characters.
func isSafeIdentifier(id string) bool {
	return id != "" && !strings.Contains(id, "..") && reUnsafe.MatchString(id)
}

// decision is the permission check's verdict, including an optional
// ownership claim the proxy performs only after a successful response.
type decision struct {
	allowed    bool
	claimBotID string
}

func deny() decision  { return decision{} }
func allow() decision { return decision{allowed: true} }

// checkPermission decides whether a session may touch a path:
// public/whitelisted resources, admin bypass, the forbidden admin-only
// `/users/{id}` root, owner-vs-bot_id/user_id matching, and the
// "PUT always allowed, proxy claims ownership on success" carve-out.
func checkPermission(path, method string, sess domain.Session) decision {
	if strings.HasPrefix(path, "/resources/") {
		return allow()
	}
	if path == "/users" || path == "/users/status" {
		return allow()
	}
	if strings.HasSuffix(path, "/schema") {
		return allow()
	}
	if sess.Role == domain.RoleAdmin {
		return allow()
	}

	if reUserRoot.MatchString(path) {
		// Admin-only root, forbidden even for the owner themself.
		return deny()
	}
	if m := reUserSub.FindStringSubmatch(path); m != nil {
		uid := m[1]
		if !isSafeIdentifier(uid) {
			return deny()
		}
		if uid == sess.UserID {
			return allow()
		}
		return deny()
	}
	if m := reBotID.FindStringSubmatch(path); m != nil {
		bid := m[1]
		if !isSafeIdentifier(bid) {
			return deny()
		}
		if method == "PUT" {
			return decision{allowed: true, claimBotID: bid}
		}
		if contains(sess.OwnedBots, bid) {
			return allow()
		}
		return deny()
	}
	if m := reAutoReplyQueue.FindStringSubmatch(path); m != nil {
		return allowIfOwnedBot(m[1], sess)
	}
	if m := reGroupTrackingQueue.FindStringSubmatch(path); m != nil {
		return allowIfOwnedBot(m[1], sess)
	}

	// Everything else, including /async-message-delivery-queue/* (no
	// owner id is derivable from that path), is admin-only.
	return deny()
}

func allowIfOwnedBot(bid string, sess domain.Session) decision {
	if !isSafeIdentifier(bid) {
		return deny()
	}
	if contains(sess.OwnedBots, bid) {
		return allow()
	}
	return deny()
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
