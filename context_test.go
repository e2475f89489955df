package docgate

import (
	"context"
	"net/http/httptest"
	"testing"
)

func TestNewContext(t *testing.T) {
	req := httptest.NewRequest("POST", "/classify", nil)
	w := httptest.NewRecorder()
	ctx := NewContext(context.Background(), w, req, "classify")

	if ctx.Endpoint() != "classify" {
		t.Errorf("expected endpoint 'classify', got %s", ctx.Endpoint())
	}
	if ctx.HTTPRequest() != req {
		t.Error("expected request to be returned from context")
	}
	if ctx.HTTPWriter() != w {
		t.Error("expected writer to be returned from context")
	}
}

func TestFromContext(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		ctx := NewContext(context.Background(), httptest.NewRecorder(), httptest.NewRequest("POST", "/rank", nil), "rank")
		got, ok := FromContext(ctx)
		if !ok {
			t.Fatal("expected ok to be true")
		}
		if got.Endpoint() != "rank" {
			t.Errorf("expected endpoint 'rank', got %s", got.Endpoint())
		}
	})

	t.Run("derived", func(t *testing.T) {
		parent := NewContext(context.Background(), httptest.NewRecorder(), httptest.NewRequest("POST", "/rank", nil), "rank")
		ctx, cancel := context.WithCancel(parent)
		defer cancel()

		got, ok := FromContext(ctx)
		if !ok {
			t.Fatal("expected ok to be true for a derived context")
		}
		if got.Endpoint() != "rank" {
			t.Errorf("expected endpoint 'rank', got %s", got.Endpoint())
		}
	})

	t.Run("plain context", func(t *testing.T) {
		got, ok := FromContext(context.Background())
		if ok {
			t.Error("expected ok to be false")
		}
		if got != nil {
			t.Errorf("expected nil context, got %v", got)
		}
	})
}

func TestSetHeader(t *testing.T) {
	t.Run("with writer in context", func(t *testing.T) {
		w := httptest.NewRecorder()
		ctx := NewContext(context.Background(), w, httptest.NewRequest("POST", "/classify", nil), "classify")

		SetHeader(ctx, "X-Custom-Header", "custom-value")

		if w.Header().Get("X-Custom-Header") != "custom-value" {
			t.Errorf("expected header to be set, got %s", w.Header().Get("X-Custom-Header"))
		}
	})

	t.Run("without writer in context", func(t *testing.T) {
		// Should not panic
		SetHeader(context.Background(), "X-Custom-Header", "custom-value")
	})
}

func TestContext_Cancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx := NewContext(parent, httptest.NewRecorder(), httptest.NewRequest("POST", "/classify", nil), "classify")

	cancel()

	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected context to be done after parent cancel")
	}
	if ctx.Err() != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", ctx.Err())
	}
}
