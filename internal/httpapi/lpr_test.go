package httpapi

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestHandleLPR_ReadErrors(t *testing.T) {
	s := &Server{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	tests := []struct {
		name string
		body io.Reader
		want int
	}{
		{"too large", bytes.NewReader(make([]byte, maxImageBody+1)), http.StatusRequestEntityTooLarge},
		{"broken body", failingBody{}, http.StatusBadRequest},
		{"empty", bytes.NewReader(nil), http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/lpr", tc.body)
			req.Header.Set("Content-Type", "image/jpeg")
			rec := httptest.NewRecorder()

			s.handleLPR(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body)
			}
		})
	}
}
