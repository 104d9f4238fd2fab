package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type lookupCall struct {
	userID     string
	documentID string
	key        string
}

// askRig wires IdempotencyValidator in front of a fake ask handler and
// records what the lookup was asked.
type askRig struct {
	engine *gin.Engine
	calls  []lookupCall
	seen   struct {
		key    string
		hasKey bool
		replay bool
	}
}

func newAskRig(t *testing.T, opts IdempotencyOptions, exists bool, lookupErr error) *askRig {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rig := &askRig{engine: gin.New()}

	lookup := func(_ context.Context, userID, documentID, key string, _ time.Time) (bool, error) {
		rig.calls = append(rig.calls, lookupCall{userID: userID, documentID: documentID, key: key})
		return exists, lookupErr
	}

	rig.engine.POST("/documents/:id/ask", IdempotencyValidator(opts, lookup), func(c *gin.Context) {
		rig.seen.key, rig.seen.hasKey = GetIdempotencyKey(c)
		rig.seen.replay = IsReplay(c)
		c.JSON(http.StatusOK, gin.H{"answer": "fresh"})
	})
	return rig
}

func (rig *askRig) ask(key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/documents/doc-42/ask", nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	rig.engine.ServeHTTP(w, req)
	return w
}

func TestIdempotencyValidator_NoHeaderIsPassthrough(t *testing.T) {
	rig := newAskRig(t, IdempotencyOptions{}, false, nil)

	if w := rig.ask(""); w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	if rig.seen.hasKey {
		t.Error("key stashed without a header")
	}
	if len(rig.calls) != 0 {
		t.Errorf("lookup called %d times without a header", len(rig.calls))
	}
}

func TestIdempotencyValidator_StashesKeyAndScopesLookup(t *testing.T) {
	rig := newAskRig(t, IdempotencyOptions{}, false, nil)

	if w := rig.ask("retry-attempt-1"); w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	if !rig.seen.hasKey || rig.seen.key != "retry-attempt-1" {
		t.Errorf("handler saw key %q (has=%v)", rig.seen.key, rig.seen.hasKey)
	}
	if rig.seen.replay {
		t.Error("replay flagged on a first attempt")
	}
	if len(rig.calls) != 1 {
		t.Fatalf("lookup calls = %d", len(rig.calls))
	}
	call := rig.calls[0]
	if call.documentID != "doc-42" || call.key != "retry-attempt-1" || call.userID != "demo-user" {
		t.Errorf("lookup scoped to %+v", call)
	}
}

func TestIdempotencyValidator_ReplaySetsBothFlags(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var replay, bypass bool
	lookup := func(context.Context, string, string, string, time.Time) (bool, error) {
		return true, nil
	}
	r.POST("/documents/:id/ask", IdempotencyValidator(IdempotencyOptions{}, lookup), func(c *gin.Context) {
		replay = IsReplay(c)
		bypass = IsRateBypass(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-42/ask", nil)
	req.Header.Set(HeaderIdempotencyKey, "retry-attempt-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	if !replay {
		t.Error("replay flag not set")
	}
	if !bypass {
		t.Error("rate bypass not set for replay")
	}
}

func TestIdempotencyValidator_LookupErrorDegradesToFresh(t *testing.T) {
	rig := newAskRig(t, IdempotencyOptions{}, false, context.DeadlineExceeded)

	if w := rig.ask("retry-attempt-1"); w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	if rig.seen.replay {
		t.Error("lookup failure must not flag a replay")
	}
	if !rig.seen.hasKey {
		t.Error("key should still reach the handler for persistence")
	}
}

func TestIdempotencyValidator_RejectsMalformedKeys(t *testing.T) {
	rig := newAskRig(t, IdempotencyOptions{}, false, nil)

	for _, key := range []string{
		"has space",
		"semi;colon",
		"slash/in/key",
		strings.Repeat("k", 201),
	} {
		w := rig.ask(key)
		if w.Code != http.StatusBadRequest {
			t.Errorf("key %q: code = %d, want 400", key, w.Code)
		}
		if !strings.Contains(w.Body.String(), "bad_idempotency_key") {
			t.Errorf("key %q: body = %s", key, w.Body.String())
		}
	}
	if len(rig.calls) != 0 {
		t.Errorf("lookup reached with malformed keys (%d calls)", len(rig.calls))
	}
}

func TestIdempotencyValidator_AcceptsTokenCharacters(t *testing.T) {
	rig := newAskRig(t, IdempotencyOptions{}, false, nil)

	for _, key := range []string{"a", "upload.retry_1", "ask~2:b", "A-Z.0-9"} {
		if w := rig.ask(key); w.Code != http.StatusOK {
			t.Errorf("key %q: code = %d", key, w.Code)
		}
	}
}

func TestIdempotencyValidator_CustomLimits(t *testing.T) {
	opts := IdempotencyOptions{
		MaxLen:  8,
		Pattern: regexp.MustCompile(`^[a-z]+$`),
	}
	rig := newAskRig(t, opts, false, nil)

	if w := rig.ask("shortkey"); w.Code != http.StatusOK {
		t.Errorf("within limits: code = %d", w.Code)
	}
	if w := rig.ask("ninechars"); w.Code != http.StatusBadRequest {
		t.Errorf("over MaxLen: code = %d", w.Code)
	}
	if w := rig.ask("UPPER"); w.Code != http.StatusBadRequest {
		t.Errorf("outside pattern: code = %d", w.Code)
	}
}

func TestIdempotencyValidator_NilLookupStillValidates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var gotKey string
	r.POST("/documents/:id/ask", IdempotencyValidator(IdempotencyOptions{}, nil), func(c *gin.Context) {
		gotKey, _ = GetIdempotencyKey(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-42/ask", nil)
	req.Header.Set(HeaderIdempotencyKey, "no-store-mode")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	if gotKey != "no-store-mode" {
		t.Errorf("key = %q", gotKey)
	}
}

func Test_userIDFromCtx(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := userIDFromCtx(c); got != "demo-user" {
		t.Errorf("fallback = %q", got)
	}
	c.Set("userID", "user-7")
	if got := userIDFromCtx(c); got != "user-7" {
		t.Errorf("explicit = %q", got)
	}
}
