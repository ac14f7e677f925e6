package ifind

import "strings"

// The vendor reports failures in the response body (errorcode + errmsg), not
// in the HTTP status. The iFinD docs do not publish a stable code table for
// quota or session errors, so classification is a substring match over errmsg
// kept in one place. Update the marker tables here when the vendor changes
// its wording; nothing else in the pipeline needs to move.

var (
	quotaMarkers = []string{
		"quota", "exceed", "limit reached", "流量", "超出", "超限",
	}
	expiredMarkers = []string{
		"access_token expired", "token expired", "token invalid", "过期",
	}
	authMarkers = []string{
		"refresh_token", "unauthorized", "auth failed", "无权限",
	}
	closedMarkers = []string{
		"market closed", "not in trading", "非交易", "休市", "闭市",
	}
)

// classify maps a decoded vendor envelope to the error taxonomy. A zero
// errorcode is success; everything else is matched against errmsg.
func classify(endpoint string, env *envelope) error {
	if env.ErrorCode == 0 {
		return nil
	}
	msg := strings.ToLower(env.ErrMsg)
	switch {
	case matchAny(msg, quotaMarkers):
		return &QuotaExceededError{Endpoint: endpoint, Msg: env.ErrMsg}
	case matchAny(msg, expiredMarkers):
		return &credentialExpiredError{Msg: env.ErrMsg}
	case matchAny(msg, authMarkers):
		return &AuthError{Msg: env.ErrMsg}
	case matchAny(msg, closedMarkers):
		return &MarketClosedError{Msg: env.ErrMsg}
	default:
		return &TransportError{Endpoint: endpoint, Err: vendorError(env)}
	}
}

func matchAny(msg string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(msg, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
