package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
)

func TestAcquirePaymentLock(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewWithClient(client, 30*time.Second)

	mock.ExpectSetNX("lock:payment:7", "locked", 30*time.Second).SetVal(true)
	ok, err := c.AcquirePaymentLock(context.Background(), 7)
	if err != nil {
		t.Fatalf("AcquirePaymentLock returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected lock acquired")
	}

	mock.ExpectSetNX("lock:payment:7", "locked", 30*time.Second).SetVal(false)
	ok, err = c.AcquirePaymentLock(context.Background(), 7)
	if err != nil {
		t.Fatalf("AcquirePaymentLock returned error: %v", err)
	}
	if ok {
		t.Fatal("expected lock held by someone else")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet redis expectations: %v", err)
	}
}

func TestReleasePaymentLock(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewWithClient(client, 30*time.Second)

	mock.ExpectDel("lock:payment:7").SetVal(1)
	if err := c.ReleasePaymentLock(context.Background(), 7); err != nil {
		t.Fatalf("ReleasePaymentLock returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet redis expectations: %v", err)
	}
}
