package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"technews/internal/services"
	"technews/internal/store"

	"github.com/gin-gonic/gin"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{badRequest("x"), http.StatusBadRequest},
		{fmt.Errorf("dispatch: %w", services.ErrInvalidAction), http.StatusBadRequest},
		{services.ErrNoSummary, http.StatusBadRequest},
		{store.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("summarize 3: %w", store.ErrClaimed), http.StatusConflict},
		{store.ErrSourceInUse, http.StatusConflict},
		{errors.New("upstream timeout"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestAbortWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	abortWithError(c, store.ErrNotFound)
	if w.Code != http.StatusNotFound || w.Body.String() != `{"error":"record not found"}` {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
	if !c.IsAborted() {
		t.Error("context not aborted")
	}
}

func TestNewPagination(t *testing.T) {
	p := newPagination(2, 20, 41)
	if p.TotalPages != 3 {
		t.Errorf("pages = %d", p.TotalPages)
	}
	if newPagination(1, 20, 0).TotalPages != 0 {
		t.Error("empty result should have zero pages")
	}
}
