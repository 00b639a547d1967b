// Package httpadapter serves the redemption webhook and the operational
// endpoints on a hertz server.
package httpadapter

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"chatcraft/internal/app/dispatch"
	"chatcraft/internal/app/ports"
)

const hookSecretHeader = "X-Hook-Secret"

var ErrBadHookSecret = errors.New("missing or wrong webhook secret")

// redeemSink is the redemption dispatcher surface the webhook needs.
type redeemSink interface {
	DispatchRaw(ctx context.Context, p dispatch.Payload)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

type Handler struct {
	Redeems redeemSink
	Journal ports.JournalRepository
	KPI     kpiSnapshotProvider
	// Reload re-reads the binding config.
	Reload func(ctx context.Context) error
	// HookSecret, when non-empty, must match the X-Hook-Secret header on
	// webhook posts.
	HookSecret string
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.POST("/hooks/redemption", h.redemption)

	ops := s.Group("/ops")
	ops.POST("/reload", h.reload)
	ops.GET("/kpi", h.kpi)
	ops.GET("/journal", h.journal)
}

func (h Handler) redemption(c context.Context, ctx *app.RequestContext) {
	if err := h.requireHookSecret(ctx); err != nil {
		writeErrorBody(ctx, consts.StatusUnauthorized, "bad_hook_secret", err.Error())
		return
	}

	var payload dispatch.Payload
	if err := json.Unmarshal(ctx.Request.Body(), &payload); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	// Dispatch decides matching and fails closed on missing fields; the
	// webhook answer only acknowledges receipt.
	h.Redeems.DispatchRaw(c, payload)
	ctx.JSON(consts.StatusAccepted, map[string]any{"accepted": true})
}

func (h Handler) reload(c context.Context, ctx *app.RequestContext) {
	if h.Reload == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "reload not configured")
		return
	}
	if err := h.Reload(c); err != nil {
		writeErrorBody(ctx, consts.StatusUnprocessableEntity, "reload_failed", err.Error())
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"reloaded": true})
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func (h Handler) journal(c context.Context, ctx *app.RequestContext) {
	if h.Journal == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "journal not configured")
		return
	}
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	entries, err := h.Journal.ListRecent(c, limit)
	if err != nil {
		writeErrorBody(ctx, consts.StatusInternalServerError, "journal_unavailable", err.Error())
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"entries": entries})
}

func (h Handler) requireHookSecret(ctx *app.RequestContext) error {
	if h.HookSecret == "" {
		return nil
	}
	got := strings.TrimSpace(string(ctx.GetHeader(hookSecretHeader)))
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.HookSecret)) != 1 {
		return ErrBadHookSecret
	}
	return nil
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error":   code,
		"message": message,
	})
}
