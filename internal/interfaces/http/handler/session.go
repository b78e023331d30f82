package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/domain/shared"
	"github.com/bakery/orderdesk/internal/infrastructure/auth"
	"github.com/bakery/orderdesk/internal/infrastructure/logger"
	"github.com/bakery/orderdesk/internal/interfaces/http/dto"
	"github.com/bakery/orderdesk/internal/interfaces/http/middleware"
)

// userFromClaims maps verified token claims to the dashboard user
func userFromClaims(claims *auth.Claims) dashboard.User {
	return dashboard.User{
		ID:           claims.Subject,
		Name:         claims.Name,
		Role:         order.Role(claims.Role),
		BranchID:     claims.BranchID,
		DepartmentID: claims.DepartmentID,
		Locale:       order.ParseLocale(claims.Locale),
	}
}

// openSession returns the caller's session, opening it on first use. The
// request token replaces the stored one so API calls use the freshest token.
func openSession(c *gin.Context, sessions *dashboard.SessionManager) (*dashboard.Session, error) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		return nil, shared.ErrUnauthorized
	}
	return sessions.Open(c.Request.Context(), userFromClaims(claims), middleware.GetJWTToken(c))
}

func sessionResponse(sess *dashboard.Session) dto.SessionResponse {
	state := sess.Store.Snapshot()
	return dto.SessionResponse{
		UserID:          sess.User.ID,
		Name:            sess.User.Name,
		Role:            sess.User.Role,
		RoleLabel:       order.RoleLabel(sess.User.Role, sess.User.Locale.IsRTL()),
		BranchID:        sess.User.BranchID,
		DepartmentID:    sess.User.DepartmentID,
		Locale:          sess.User.Locale,
		Orders:          len(state.Orders),
		SocketConnected: state.SocketConnected,
		Version:         state.Version,
		View:            state.View,
	}
}

// SessionHandler opens and closes dashboard sessions
type SessionHandler struct {
	BaseHandler
	sessions    *dashboard.SessionManager
	revocations auth.RevocationList
	now         func() time.Time
}

// NewSessionHandler creates a SessionHandler. revocations may be nil, in
// which case closing a session leaves its token valid until expiry.
func NewSessionHandler(sessions *dashboard.SessionManager, revocations auth.RevocationList) *SessionHandler {
	return &SessionHandler{sessions: sessions, revocations: revocations, now: time.Now}
}

// Open godoc
//
//	@ID				openSession
//	@Summary		Open a dashboard session
//	@Description	Loads the caller's orders, joins the realtime rooms of their role and returns the session. Idempotent.
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	Envelope[dto.SessionResponse]
//	@Failure		401	{object}	ErrorEnvelope
//	@Failure		502	{object}	ErrorEnvelope
//	@Failure		503	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/session [post]
func (h *SessionHandler) Open(c *gin.Context) {
	sess, err := openSession(c, h.sessions)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sessionResponse(sess))
}

// Get godoc
//
//	@ID			getSession
//	@Summary	Get the open dashboard session
//	@Tags		session
//	@Produce	json
//	@Success	200	{object}	Envelope[dto.SessionResponse]
//	@Failure	401	{object}	ErrorEnvelope
//	@Failure	404	{object}	ErrorEnvelope
//	@Security	BearerAuth
//	@Router		/session [get]
func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.sessions.Get(middleware.GetJWTUserID(c))
	if !ok {
		h.NotFound(c, "No open session")
		return
	}
	h.Success(c, sessionResponse(sess))
}

// Reload godoc
//
//	@ID				reloadSession
//	@Summary		Reload the session's orders
//	@Description	Replaces the session's order list with a fresh fetch from the order service.
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	Envelope[dto.SessionResponse]
//	@Failure		401	{object}	ErrorEnvelope
//	@Failure		502	{object}	ErrorEnvelope
//	@Failure		503	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/session/reload [post]
func (h *SessionHandler) Reload(c *gin.Context) {
	sess, err := openSession(c, h.sessions)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := sess.Reload(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sessionResponse(sess))
}

// Close godoc
//
//	@ID				closeSession
//	@Summary		Close the dashboard session
//	@Description	Stops the realtime feed, saves the snapshot and revokes the token.
//	@Tags			session
//	@Success		204
//	@Failure		401	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/session [delete]
func (h *SessionHandler) Close(c *gin.Context) {
	ctx := c.Request.Context()
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.sessions.Close(ctx, claims.Subject); err != nil && !errors.Is(err, shared.ErrNotFound) {
		h.HandleError(c, err)
		return
	}

	if h.revocations != nil && claims.ID != "" {
		if ttl := claims.TTL(h.now()); ttl > 0 {
			if err := h.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
				logger.GetGinLogger(c).Warn("Failed to revoke token", zap.Error(err))
			}
		}
	}
	h.NoContent(c)
}
