package handler

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/service"
)

func TestSendServiceError_CheckViolation(t *testing.T) {
	err := db.WrapError(&pgconn.PgError{Code: "23514", ConstraintName: "videos_title_check"}, "update video")

	rec := httptest.NewRecorder()
	sendServiceError(rec, slog.Default(), "update video", err)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a check constraint violation, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSendServiceError_PaymentRequired(t *testing.T) {
	rec := httptest.NewRecorder()
	sendServiceError(rec, slog.Default(), "apply interaction", service.ErrPaymentRequired)

	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("expected 402, got %d: %s", rec.Code, rec.Body.String())
	}
}
