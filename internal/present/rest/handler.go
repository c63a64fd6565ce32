package rest

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/aionios/aionios/internal/domain"
	"github.com/aionios/aionios/internal/present/rest/presenter"
	"github.com/aionios/aionios/internal/service"
	"github.com/aionios/aionios/internal/usecase"
)

type Handler struct {
	capsule *usecase.CapsuleUsecase
	listing *service.ListingService
	signal  *service.SignalService
}

func NewHandler(
	capsule *usecase.CapsuleUsecase,
	listing *service.ListingService,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		capsule: capsule,
		listing: listing,
		signal:  signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/capsules", h.handleCreate)
	e.GET("/api/capsules/:id", h.handleGetByID)
	e.GET("/api/capsules/blockchain/:blockchainId", h.handleGetByBlockchainID)
	e.GET("/api/capsules/creator/:address", h.handleListByCreator)
	e.GET("/api/capsules/recipient/:address", h.handleListByRecipient)
	e.GET("/api/capsules/address/:address", h.handleListByAddress)
	e.PATCH("/api/capsules/:id/status", h.handleUpdateStatus)
	e.POST("/api/capsules/:id/open", h.handleOpen)
	e.GET("/api/capsules/:id/content", h.handleContent)
	e.GET("/api/capsules/:id/ledger", h.handleLedgerState)
	e.GET("/api/capsules/explore/popular", h.handleExplorePopular)
	e.GET("/api/capsules/explore/featured", h.handleExploreFeatured)
	e.GET("/api/capsules/explore/recent", h.handleExploreRecent)
	e.GET("/api/capsules/explore/subscribed", h.handleExploreSubscribed)
	e.POST("/api/capsules/:id/view", h.handleView)
	e.POST("/api/capsules/:id/share", h.handleShare)
	e.POST("/api/capsules/:id/subscribe", h.handleSubscribe)
	e.POST("/api/capsules/sweep", h.handleSweep)
	e.GET("/realtime", h.handleRealtime)
}

type assetRequest struct {
	Type         domain.AssetType `json:"type"`
	Value        string           `json:"value"`
	TokenAddress string           `json:"tokenAddress"`
	TokenID      string           `json:"tokenId"`
	TokenAmount  string           `json:"tokenAmount"`
}

type createCapsuleRequest struct {
	Title            string               `json:"title"`
	Description      string               `json:"description"`
	CreatorAddress   string               `json:"creatorAddress"`
	RecipientAddress string               `json:"recipientAddress"`
	ConditionType    domain.ConditionType `json:"conditionType"`
	ConditionData    string               `json:"conditionData"`
	OpenDate         *time.Time           `json:"openDate"`
	Content          string               `json:"content"` // base64
	Assets           []assetRequest       `json:"assets"`
}

func (h *Handler) handleCreate(c echo.Context) error {
	ctx := c.Request().Context()

	var req createCapsuleRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	var content []byte
	if req.Content != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			return presenter.BadRequestMessage(c, "content must be base64 encoded")
		}
		content = decoded
	}

	assets := make([]domain.CapsuleAsset, 0, len(req.Assets))
	for _, a := range req.Assets {
		assets = append(assets, domain.CapsuleAsset{
			Type:         a.Type,
			Value:        a.Value,
			TokenAddress: a.TokenAddress,
			TokenID:      a.TokenID,
			TokenAmount:  a.TokenAmount,
		})
	}

	created, err := h.capsule.Create(ctx, usecase.CreateCapsuleInput{
		Title:            req.Title,
		Description:      req.Description,
		CreatorAddress:   req.CreatorAddress,
		RecipientAddress: req.RecipientAddress,
		ConditionType:    req.ConditionType,
		ConditionData:    req.ConditionData,
		OpenDate:         req.OpenDate,
		Assets:           assets,
		Content:          content,
	})
	if err != nil {
		if errors.Is(err, domain.ErrPrecondition) {
			return presenter.BadRequest(c, err)
		}
		return presenter.InternalError(c, err)
	}

	return presenter.Created(c, created)
}

func (h *Handler) handleGetByID(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseCapsuleID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid capsule id")
	}

	capsule, err := h.capsule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "capsule not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, capsule)
}

func (h *Handler) handleGetByBlockchainID(c echo.Context) error {
	ctx := c.Request().Context()

	capsule, err := h.capsule.GetByBlockchainID(ctx, c.Param("blockchainId"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "capsule not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, capsule)
}

func (h *Handler) handleListByCreator(c echo.Context) error {
	capsules, err := h.capsule.ListByCreator(c.Request().Context(), c.Param("address"))
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, capsules)
}

func (h *Handler) handleListByRecipient(c echo.Context) error {
	capsules, err := h.capsule.ListByRecipient(c.Request().Context(), c.Param("address"))
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, capsules)
}

func (h *Handler) handleListByAddress(c echo.Context) error {
	capsules, err := h.capsule.ListByAddress(c.Request().Context(), c.Param("address"))
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, capsules)
}

func (h *Handler) handleUpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseCapsuleID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid capsule id")
	}

	status := domain.CapsuleStatus(c.QueryParam("status"))
	if status == "" {
		return presenter.BadRequestMessage(c, "status parameter is required")
	}

	capsule, err := h.capsule.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "capsule not found")
		}
		if errors.Is(err, domain.ErrPrecondition) {
			return presenter.BadRequest(c, err)
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, capsule)
}

func (h *Handler) handleOpen(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseCapsuleID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid capsule id")
	}

	requester := c.QueryParam("requesterAddress")
	if requester == "" {
		return presenter.BadRequestMessage(c, "requesterAddress parameter is required")
	}

	capsule, err := h.capsule.Open(ctx, id, requester)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "capsule not found")
		}

		// Authorization, precondition and ledger failures all collapse to
		// the same response; the reason stays in the logs.
		slog.InfoContext(ctx, "capsule open rejected",
			slog.Int64("capsuleId", id),
			slog.String("requester", requester),
			slog.String("reason", err.Error()),
			slog.String("module", "capsule"),
		)
		return presenter.BadRequestMessage(c, "could not open capsule")
	}
	return presenter.OK(c, capsule)
}

func (h *Handler) handleContent(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseCapsuleID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid capsule id")
	}

	content, err := h.capsule.FetchContent(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "content not found")
		}
		if errors.Is(err, domain.ErrPrecondition) {
			return presenter.BadRequest(c, err)
		}
		return presenter.InternalError(c, err)
	}
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, content)
}

func (h *Handler) handleLedgerState(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseCapsuleID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid capsule id")
	}

	state, err := h.capsule.GetLedgerState(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "capsule not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, state)
}

func (h *Handler) handleExplorePopular(c echo.Context) error {
	capsules, err := h.listing.Popular(c.Request().Context(), exploreLimit(c))
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, capsules)
}

func (h *Handler) handleExploreFeatured(c echo.Context) error {
	capsules, err := h.listing.Featured(c.Request().Context())
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, capsules)
}

func (h *Handler) handleExploreRecent(c echo.Context) error {
	capsules, err := h.listing.RecentlyOpened(c.Request().Context(), exploreLimit(c))
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, capsules)
}

func (h *Handler) handleExploreSubscribed(c echo.Context) error {
	capsules, err := h.listing.MostSubscribed(c.Request().Context(), exploreLimit(c))
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, capsules)
}

func (h *Handler) handleView(c echo.Context) error {
	return h.handleCounter(c, h.capsule.IncrementViewCount)
}

func (h *Handler) handleShare(c echo.Context) error {
	return h.handleCounter(c, h.capsule.IncrementShareCount)
}

func (h *Handler) handleSubscribe(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseCapsuleID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid capsule id")
	}

	capsule, err := h.capsule.Subscribe(ctx, id, c.QueryParam("userAddress"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "capsule not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, capsule)
}

func (h *Handler) handleCounter(c echo.Context, increment func(context.Context, int64) (domain.Capsule, error)) error {
	ctx := c.Request().Context()

	id, err := parseCapsuleID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid capsule id")
	}

	capsule, err := increment(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "capsule not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, capsule)
}

// handleSweep is the operational trigger; the scheduler drives the same
// logic in the background.
func (h *Handler) handleSweep(c echo.Context) error {
	promoted, err := h.capsule.Sweep(c.Request().Context())
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, echo.Map{"promoted": promoted})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Handler) handleRealtime(c echo.Context) error {
	if h.signal == nil {
		return presenter.BadRequestMessage(c, "realtime is not enabled")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	output := make(chan domain.CapsuleEvent)
	go func() {
		h.signal.Realtime(ctx, output)
		close(output)
	}()

	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for event := range output {
		if err := ws.WriteJSON(event); err != nil {
			slog.ErrorContext(
				ctx, "Error writing message",
				slog.String("error", err.Error()),
				slog.String("module", "socket"),
			)
			return nil
		}
	}
	return nil
}

func parseCapsuleID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func exploreLimit(c echo.Context) int {
	limit := 10
	limitStr := c.QueryParam("limit")
	if limitStr != "" {
		limitInt, err := strconv.Atoi(limitStr)
		if err == nil && limitInt > 0 {
			limit = limitInt
		}
	}
	if limit > 100 {
		limit = 100
	}
	return limit
}
