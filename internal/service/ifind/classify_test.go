package ifind

import (
	"errors"
	"testing"
)

func TestClassifySuccess(t *testing.T) {
	if err := classify("edb_service", &envelope{ErrorCode: 0}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestClassifyQuota(t *testing.T) {
	env := &envelope{ErrorCode: -4001, ErrMsg: "Data quota exceeded for this account"}
	err := classify("edb_service", env)

	var quota *QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if quota.Endpoint != "edb_service" {
		t.Fatalf("unexpected endpoint %q", quota.Endpoint)
	}
}

func TestClassifyQuotaChinese(t *testing.T) {
	env := &envelope{ErrorCode: -4001, ErrMsg: "流量超限"}
	var quota *QuotaExceededError
	if !errors.As(classify("edb_service", env), &quota) {
		t.Fatalf("expected QuotaExceededError")
	}
}

func TestClassifyExpiredToken(t *testing.T) {
	env := &envelope{ErrorCode: -1010, ErrMsg: "access_token expired"}
	var expired *credentialExpiredError
	if !errors.As(classify("cmd_history_quotation", env), &expired) {
		t.Fatalf("expected credentialExpiredError")
	}
}

func TestClassifyAuth(t *testing.T) {
	env := &envelope{ErrorCode: -1000, ErrMsg: "refresh_token rejected"}
	var auth *AuthError
	if !errors.As(classify("get_access_token", env), &auth) {
		t.Fatalf("expected AuthError")
	}
}

func TestClassifyMarketClosed(t *testing.T) {
	env := &envelope{ErrorCode: -2020, ErrMsg: "market closed"}
	var closed *MarketClosedError
	if !errors.As(classify("real_time_quotation", env), &closed) {
		t.Fatalf("expected MarketClosedError")
	}
}

func TestClassifyUnknownIsTransport(t *testing.T) {
	env := &envelope{ErrorCode: -9999, ErrMsg: "something unexpected"}
	var transport *TransportError
	if !errors.As(classify("edb_service", env), &transport) {
		t.Fatalf("expected TransportError")
	}
}
