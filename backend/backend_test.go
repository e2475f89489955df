package backend

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/broady/docgate"
	"github.com/google/go-cmp/cmp"
)

type doc struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

type topK struct {
	K int `json:"k"`
}

func TestCodecByName(t *testing.T) {
	tests := []struct {
		name    string
		want    Codec
		wantErr bool
	}{
		{"", JSON, false},
		{"json", JSON, false},
		{"msgpack", Msgpack, false},
		{"xml", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CodecByName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CodecByName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CodecByName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestCodec_UsesJSONTags(t *testing.T) {
	for _, codec := range []Codec{JSON, Msgpack} {
		t.Run(codec.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			req := NewWireRequest(docgate.NewRequest("r1", "classify", topK{K: 2}, []any{doc{ID: "a", Score: 3}}))
			if err := codec.Encode(&buf, req); err != nil {
				t.Fatalf("Encode: %v", err)
			}

			var got map[string]any
			if err := codec.Decode(&buf, &got); err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got["request_id"] != "r1" || got["endpoint"] != "classify" {
				t.Errorf("unexpected envelope: %v", got)
			}
			docs, _ := got["docs"].([]any)
			if len(docs) != 1 {
				t.Fatalf("expected 1 doc, got %v", got["docs"])
			}
			first, _ := docs[0].(map[string]any)
			if first["id"] != "a" {
				t.Errorf("expected json field names in document, got %v", docs[0])
			}
		})
	}
}

func TestWireResponse_Response(t *testing.T) {
	ok, err := (&WireResponse{Status: WireStatus{Code: WireSuccess}, Docs: []any{"x"}}).Response()
	if err != nil || !ok.OK() || len(ok.Docs) != 1 {
		t.Errorf("unexpected success conversion: %v, %v", ok, err)
	}

	failed, err := (&WireResponse{Status: WireStatus{Code: WireError, Description: "bad input"}}).Response()
	if err != nil || failed.OK() || failed.Status.Description != "bad input" {
		t.Errorf("unexpected failure conversion: %v, %v", failed, err)
	}

	if _, err := (&WireResponse{Status: WireStatus{Code: "MAYBE"}}).Response(); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestHTTPCaller_RoundTrip(t *testing.T) {
	for _, codec := range []Codec{JSON, Msgpack} {
		t.Run(codec.Name(), func(t *testing.T) {
			var gotPath, gotRequestID, gotContentType string
			handler := Handler(Echo{}, nil)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotRequestID = r.Header.Get("X-Request-Id")
				gotContentType = r.Header.Get("Content-Type")
				handler.ServeHTTP(w, r)
			}))
			defer srv.Close()

			caller, err := NewHTTPCaller(srv.URL+"/v1", WithCodec(codec))
			if err != nil {
				t.Fatalf("NewHTTPCaller: %v", err)
			}

			res, err := caller.Call(context.Background(), docgate.NewRequest("r7", "text/classify", topK{K: 4}, []any{doc{ID: "a", Score: 1}}))
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if !res.OK() {
				t.Fatalf("expected success, got %+v", res.Status)
			}

			if gotPath != "/v1/text/classify" {
				t.Errorf("expected path /v1/text/classify, got %s", gotPath)
			}
			if gotRequestID != "r7" {
				t.Errorf("expected X-Request-Id r7, got %s", gotRequestID)
			}
			if gotContentType != codec.ContentType() {
				t.Errorf("expected Content-Type %s, got %s", codec.ContentType(), gotContentType)
			}

			// Numbers come back in the codec's generic form; compare through
			// the gateway's own conversion.
			var out []doc
			for _, d := range res.Docs {
				var got doc
				m, _ := d.(map[string]any)
				got.ID, _ = m["id"].(string)
				got.Score = toInt(m["score"])
				out = append(out, got)
			}
			if diff := cmp.Diff([]doc{{ID: "a", Score: 1}}, out); diff != "" {
				t.Errorf("docs mismatch (-want +got):\n%s", diff)
			}
			if toInt(res.Parameters["k"]) != 4 {
				t.Errorf("expected parameters to be echoed, got %v", res.Parameters)
			}
		})
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	}
	return -1
}

func TestHTTPCaller_Failure(t *testing.T) {
	failing := docgate.CallerFunc(func(ctx context.Context, req *docgate.Request) (*docgate.Response, error) {
		return docgate.Failure("bad input"), nil
	})
	srv := httptest.NewServer(Handler(failing, nil))
	defer srv.Close()

	caller, err := NewHTTPCaller(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPCaller: %v", err)
	}
	res, err := caller.Call(context.Background(), docgate.NewRequest("r1", "classify", nil, nil))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.OK() || res.Status.Description != "bad input" {
		t.Errorf("expected error status, got %+v", res.Status)
	}
}

func TestHTTPCaller_CallerErrorBecomesFailure(t *testing.T) {
	broken := docgate.CallerFunc(func(ctx context.Context, req *docgate.Request) (*docgate.Response, error) {
		return nil, errors.New("model not loaded")
	})
	srv := httptest.NewServer(Handler(broken, nil))
	defer srv.Close()

	caller, _ := NewHTTPCaller(srv.URL, WithCodec(Msgpack))
	res, err := caller.Call(context.Background(), docgate.NewRequest("r1", "classify", nil, nil))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.OK() || res.Status.Description != "model not loaded" {
		t.Errorf("expected error status, got %+v", res.Status)
	}
}

func TestHTTPCaller_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	caller, _ := NewHTTPCaller(srv.URL)
	_, err := caller.Call(context.Background(), docgate.NewRequest("r1", "classify", nil, nil))

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable || statusErr.Body != "overloaded" {
		t.Errorf("unexpected status error: %+v", statusErr)
	}
}

func TestHTTPCaller_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	caller, _ := NewHTTPCaller(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := caller.Call(ctx, docgate.NewRequest("r1", "classify", nil, nil))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestHTTPCaller_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	caller, _ := NewHTTPCaller(srv.URL, WithTimeout(20*time.Millisecond))
	_, err := caller.Call(context.Background(), docgate.NewRequest("r1", "classify", nil, nil))
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestNewHTTPCaller_InvalidURL(t *testing.T) {
	for _, u := range []string{"://bad", "ftp://example.com", "localhost:8080"} {
		if _, err := NewHTTPCaller(u); err == nil {
			t.Errorf("expected error for %q", u)
		}
	}
}

func TestHandler_Errors(t *testing.T) {
	h := Handler(Echo{}, nil)

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantStatus  int
	}{
		{"wrong method", http.MethodGet, "application/json", "", http.StatusMethodNotAllowed},
		{"unsupported codec", http.MethodPost, "text/csv", "a,b", http.StatusUnsupportedMediaType},
		{"malformed body", http.MethodPost, "application/json", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/classify", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestHandler_NilResponse(t *testing.T) {
	caller := docgate.CallerFunc(func(context.Context, *docgate.Request) (*docgate.Response, error) {
		return nil, nil
	})
	h := Handler(caller, nil)

	req := httptest.NewRequest(http.MethodPost, "/classify", bytes.NewBufferString(`{"request_id":"r1","endpoint":"classify","docs":[]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var got WireResponse
	if err := JSON.Decode(w.Body, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := WireStatus{Code: WireError, Description: "backend returned no response"}
	if got.Status != want {
		t.Errorf("expected status %+v, got %+v", want, got.Status)
	}
}

func TestNewWireResponse_Status(t *testing.T) {
	if got := NewWireResponse(docgate.Success(nil, nil)).Status.Code; got != WireSuccess {
		t.Errorf("expected %s, got %s", WireSuccess, got)
	}
	if got := NewWireResponse(docgate.Failure("nope")).Status; got.Code != WireError || got.Description != "nope" {
		t.Errorf("unexpected failure status %+v", got)
	}
}

func TestEcho(t *testing.T) {
	res, err := Echo{}.Call(context.Background(), docgate.NewRequest("r1", "rank", topK{K: 3}, []any{doc{ID: "a"}}))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if diff := cmp.Diff([]any{doc{ID: "a"}}, res.Docs); diff != "" {
		t.Errorf("docs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"k": float64(3)}, res.Parameters); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Echo{}).Call(ctx, docgate.NewRequest("r1", "rank", nil, nil)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEcho_ThroughGateway(t *testing.T) {
	type result struct {
		ID string `json:"id"`
	}
	h := docgate.NewApp(Echo{}).
		Register(docgate.NewEndpoint[doc, result, docgate.Params]("echo")).
		Handler()

	req := httptest.NewRequest("POST", "/echo", bytes.NewBufferString("a,1\nb,2\n"))
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	want := `{"data":[{"id":"a"},{"id":"b"}],"parameters":{}}` + "\n"
	if w.Body.String() != want {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}
