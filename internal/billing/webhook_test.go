package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hifarrer/NuSong-sub002/internal/infra/sqltest"
	"github.com/hifarrer/NuSong-sub002/internal/sqlinline"
)

const testSecret = "whsec_test"

func sign(payload []byte, at time.Time, secret string) string {
	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func testProcessor(sql *sqltest.Executor) *Processor {
	p := NewProcessor(sql, testSecret, 5*time.Minute, zerolog.Nop())
	p.now = func() time.Time { return time.Unix(1756400000, 0) }
	return p
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"type":"invoice.payment_succeeded"}`)
	now := time.Unix(1756400000, 0)

	if err := VerifySignature(payload, sign(payload, now, testSecret), testSecret, now, 5*time.Minute); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	cases := map[string]string{
		"empty header":    "",
		"missing v1":      "t=1756400000",
		"missing t":       "v1=deadbeef",
		"garbage ts":      "t=abc,v1=deadbeef",
		"wrong secret":    sign(payload, now, "whsec_other"),
		"stale timestamp": sign(payload, now.Add(-time.Hour), testSecret),
		"future ts":       sign(payload, now.Add(time.Hour), testSecret),
	}
	for name, header := range cases {
		if err := VerifySignature(payload, header, testSecret, now, 5*time.Minute); !errors.Is(err, ErrBadSignature) {
			t.Errorf("%s: err = %v, want ErrBadSignature", name, err)
		}
	}

	if err := VerifySignature(payload, sign(payload, now, testSecret), "", now, 5*time.Minute); !errors.Is(err, ErrBadSignature) {
		t.Error("empty secret accepted")
	}
}

func TestHandleRejectsUnsignedWithoutTouchingDB(t *testing.T) {
	sql := sqltest.NewExecutor()
	p := testProcessor(sql)

	payload := []byte(`{"type":"invoice.payment_failed","data":{"customer":"cus_1"}}`)
	err := p.Handle(context.Background(), payload, "t=1756400000,v1=00")
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
	if calls := sql.Calls(); len(calls) != 0 {
		t.Fatalf("unsigned payload reached the database: %d calls", len(calls))
	}
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	sql := sqltest.NewExecutor()
	p := testProcessor(sql)
	now := time.Unix(1756400000, 0)

	for _, payload := range [][]byte{
		[]byte(`not json`),
		[]byte(`{"type":"invoice.payment_failed","data":{}}`),
		[]byte(`{"type":"invoice.payment_succeeded","data":{"customer":"cus_1","period_start":0,"period_end":0}}`),
	} {
		err := p.Handle(context.Background(), payload, sign(payload, now, testSecret))
		if !errors.Is(err, ErrBadPayload) {
			t.Errorf("payload %q: err = %v, want ErrBadPayload", payload, err)
		}
	}
	if calls := sql.Calls(); len(calls) != 0 {
		t.Fatalf("malformed payload reached the database: %d calls", len(calls))
	}
}

func TestHandleSubscriptionUpdated(t *testing.T) {
	sql := sqltest.NewExecutor().OnRow(sqlinline.QApplySubscription, "user-1")
	p := testProcessor(sql)
	now := time.Unix(1756400000, 0)

	payload := []byte(`{"type":"customer.subscription.updated","data":{"customer":"cus_1","email":"a@b.io","plan":"pro","status":"active"}}`)
	if err := p.Handle(context.Background(), payload, sign(payload, now, testSecret)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sql.CallCount(sqlinline.QApplySubscription) != 1 {
		t.Fatal("subscription update not applied")
	}
}

func TestHandleSubscriptionDeletedDowngradesToFree(t *testing.T) {
	sql := sqltest.NewExecutor().OnRow(sqlinline.QApplySubscription, "user-1")
	p := testProcessor(sql)
	now := time.Unix(1756400000, 0)

	payload := []byte(`{"type":"customer.subscription.deleted","data":{"customer":"cus_1"}}`)
	if err := p.Handle(context.Background(), payload, sign(payload, now, testSecret)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	calls := sql.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if got := calls[0].Args[1]; got != "free" {
		t.Fatalf("plan arg = %v, want free", got)
	}
	if got := calls[0].Args[2]; got != "canceled" {
		t.Fatalf("status arg = %v, want canceled", got)
	}
}

func TestHandlePaymentSucceededRollsPeriod(t *testing.T) {
	sql := sqltest.NewExecutor().OnRow(sqlinline.QRollBillingPeriod, "user-1")
	p := testProcessor(sql)
	now := time.Unix(1756400000, 0)

	payload := []byte(`{"type":"invoice.payment_succeeded","data":{"customer":"cus_1","period_start":1756400000,"period_end":1759000000}}`)
	if err := p.Handle(context.Background(), payload, sign(payload, now, testSecret)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sql.CallCount(sqlinline.QRollBillingPeriod) != 1 {
		t.Fatal("billing period not rolled")
	}
}

func TestHandlePaymentFailedMarksPastDue(t *testing.T) {
	sql := sqltest.NewExecutor().OnRow(sqlinline.QMarkPastDue, "user-1")
	p := testProcessor(sql)
	now := time.Unix(1756400000, 0)

	payload := []byte(`{"type":"invoice.payment_failed","data":{"customer":"cus_1"}}`)
	if err := p.Handle(context.Background(), payload, sign(payload, now, testSecret)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sql.CallCount(sqlinline.QMarkPastDue) != 1 {
		t.Fatal("past due not recorded")
	}
}

func TestHandleIgnoresUnknownCustomerAndEventType(t *testing.T) {
	sql := sqltest.NewExecutor().OnEmpty(sqlinline.QMarkPastDue)
	p := testProcessor(sql)
	now := time.Unix(1756400000, 0)

	payload := []byte(`{"type":"invoice.payment_failed","data":{"customer":"cus_unknown"}}`)
	if err := p.Handle(context.Background(), payload, sign(payload, now, testSecret)); err != nil {
		t.Fatalf("unknown customer should be ignored: %v", err)
	}

	payload = []byte(`{"type":"charge.refunded","data":{"customer":"cus_1"}}`)
	if err := p.Handle(context.Background(), payload, sign(payload, now, testSecret)); err != nil {
		t.Fatalf("unknown type should be ignored: %v", err)
	}
	if sql.CallCount(sqlinline.QMarkPastDue) != 1 {
		t.Fatal("unexpected extra database call")
	}
}
