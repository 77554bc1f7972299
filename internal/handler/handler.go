// Package handler exposes the attendance ledger over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"checkin/internal/attendance"
	"checkin/internal/auth"
	"checkin/internal/ledger"
)

// TokenConfig controls station tokens.
type TokenConfig struct {
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Handler serves station registration and the check/mark API.
type Handler struct {
	svc    *attendance.Service
	tokens TokenConfig
	log    *logrus.Entry
}

func New(svc *attendance.Service, tokens TokenConfig, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{svc: svc, tokens: tokens, log: log}
}

// Mount registers the ledger routes on r. Middlewares in guard run after station
// authentication on every /v1 route except registration.
func (h *Handler) Mount(r gin.IRouter, guard ...gin.HandlerFunc) {
	r.POST("/v1/stations/register", h.registerStation)

	chain := append([]gin.HandlerFunc{auth.StationAuth(h.tokens.SigningKey, h.tokens.Issuer)}, guard...)
	v1 := r.Group("/v1", chain...)
	v1.POST("/attendance/check", h.checkStatus)
	v1.POST("/attendance/:category/mark", h.markAttendance)
	v1.POST("/attendees", h.registerAttendee)
}

func (h *Handler) registerStation(c *gin.Context) {
	var req ledger.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	if err := h.svc.RegisterStation(ctx, req.StationID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokens, err := auth.Issue(req.StationID, auth.RoleStation, h.tokens.Issuer, h.tokens.SigningKey, h.tokens.AccessTTL, h.tokens.RefreshTTL)
	if err != nil {
		h.log.WithError(err).Error("token issue failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	if err := h.svc.SaveRefreshToken(ctx, req.StationID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		h.log.WithError(err).WithField("station", req.StationID).Warn("save refresh token")
	}
	h.log.WithField("station", req.StationID).Info("station registered")

	c.JSON(http.StatusCreated, ledger.Tokens{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.AccessExp.Unix(),
	})
}

func (h *Handler) checkStatus(c *gin.Context) {
	var req ledger.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.CheckStatus(c.Request.Context(), req.QRCodeData, c.Query("category"))
	if errors.Is(err, attendance.ErrNotFound) {
		c.JSON(http.StatusNotFound, ledger.StatusResult{Found: false})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) markAttendance(c *gin.Context) {
	var req ledger.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category := c.Param("category")
	res, err := h.svc.Mark(c.Request.Context(), req.QRCodeData, category)
	if err != nil {
		h.fail(c, err)
		return
	}
	station := ""
	if claims, ok := auth.ClaimsFrom(c); ok {
		station = claims.Subject
	}
	h.log.WithFields(logrus.Fields{
		"station":        station,
		"category":       category,
		"already_marked": res.AlreadyMarked,
	}).Debug("mark request served")
	c.JSON(http.StatusOK, res)
}

func (h *Handler) registerAttendee(c *gin.Context) {
	var req struct {
		Name         string `json:"name" binding:"required"`
		Email        string `json:"email"`
		Mobile       string `json:"mobile"`
		Designation  string `json:"designation"`
		Organization string `json:"organization"`
		QRCodeData   string `json:"qrCodeData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.svc.RegisterAttendee(c.Request.Context(), ledger.User{
		Name:         req.Name,
		Email:        req.Email,
		Mobile:       req.Mobile,
		Designation:  req.Designation,
		Organization: req.Organization,
		QRCodeData:   req.QRCodeData,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, attendance.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, attendance.ErrInvalidCategory), errors.Is(err, attendance.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, attendance.ErrDuplicateCode):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
