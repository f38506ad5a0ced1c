package http

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"wadigest/internal/interfaces"
	"wadigest/internal/usecases"
)

type Handler struct {
	ingest *usecases.IngestService
	digest *usecases.DigestService
	weekly *usecases.WeeklyService
	store  interfaces.MessageStore
	links  *LinkSigner
	log    zerolog.Logger
}

func NewHandler(
	ingest *usecases.IngestService,
	digest *usecases.DigestService,
	weekly *usecases.WeeklyService,
	store interfaces.MessageStore,
	links *LinkSigner,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		ingest: ingest,
		digest: digest,
		weekly: weekly,
		store:  store,
		links:  links,
		log:    logger,
	}
}

func SetupRoutes(r *gin.Engine, h *Handler, middleware *Middleware) {
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20)) // 10MB max request size
	r.Use(middleware.CORSMiddleware())

	r.GET("/health", h.Health)

	webhooks := r.Group("/api/webhooks")
	webhooks.Use(middleware.RateLimitPerIP(20, 40))
	webhooks.Use(middleware.WebhookAuth())
	{
		webhooks.POST("/receiver", h.ReceiveWebhook)
		webhooks.POST("/inspect", h.InspectWebhook)
	}

	cron := r.Group("/api/cron")
	cron.Use(middleware.CronAuth())
	{
		cron.POST("/summarize", h.RunDigest)
		cron.POST("/weekly-report", h.RunWeekly)
	}

	r.GET("/resumo", h.ViewSummary)
	r.GET("/resumo/qr", h.SummaryQR)
	r.GET("/relatorio-semanal", h.ViewWeeklyReport)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReceiveWebhook ingests one gateway callback. The payload shape varies per
// gateway version, so it is decoded into a generic map and normalized
// downstream.
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty body"})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(SanitizeString(string(body))), &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	if err := h.ingest.Process(c.Request.Context(), payload); err != nil {
		h.log.Error().Err(err).Msg("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// InspectWebhook echoes back every audio-looking field of a payload without
// persisting anything. Used to map a new gateway's schema.
func (h *Handler) InspectWebhook(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	c.JSON(http.StatusOK, gin.H{
		"topLevelKeys": keys,
		"scan":         usecases.ScanAudioFields(payload),
	})
}

func (h *Handler) RunDigest(c *gin.Context) {
	started := time.Now()
	if err := h.digest.Run(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("digest run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "completed",
		"duration": time.Since(started).String(),
	})
}

func (h *Handler) RunWeekly(c *gin.Context) {
	started := time.Now()
	if err := h.weekly.Run(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("weekly run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "completed",
		"duration": time.Since(started).String(),
	})
}

// ViewSummary serves one daily summary as an HTML page. The link must carry
// the token minted when the summary was shared.
func (h *Handler) ViewSummary(c *gin.Context) {
	id := c.Query("id")
	token := c.Query("token")
	if !ValidReportID(id) {
		h.renderError(c, http.StatusBadRequest, "Link inválido", "O link não contém o identificador do resumo.")
		return
	}
	if err := h.links.Verify(token, id); err != nil {
		h.renderError(c, http.StatusUnauthorized, "Acesso negado", "Este link expirou ou não é válido.")
		return
	}

	summary, err := h.store.SummaryByID(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("loading summary failed")
		h.renderError(c, http.StatusInternalServerError, "Erro", "Não foi possível carregar o resumo.")
		return
	}
	if summary == nil {
		h.renderError(c, http.StatusNotFound, "Resumo não encontrado", "Este resumo não existe ou já foi removido.")
		return
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = reportPage.Execute(c.Writer, reportPageData{
		Title:    "Resumo Diário",
		Subtitle: summarySubtitle(summary.GroupName, summary.Date, summary.MessageCount),
		Body:     renderMarkdown(summary.Content),
	})
}

// SummaryQR returns a PNG QR code pointing at the signed summary link, handy
// for sharing a digest on a screen.
func (h *Handler) SummaryQR(c *gin.Context) {
	id := c.Query("id")
	token := c.Query("token")
	if !ValidReportID(id) {
		c.String(http.StatusBadRequest, "missing id")
		return
	}
	if err := h.links.Verify(token, id); err != nil {
		c.String(http.StatusUnauthorized, "invalid token")
		return
	}

	png, err := qrcode.Encode(h.links.SummaryURL(id), qrcode.Medium, 256)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) ViewWeeklyReport(c *gin.Context) {
	id := c.Query("id")
	token := c.Query("token")
	if !ValidReportID(id) {
		h.renderError(c, http.StatusBadRequest, "Link inválido", "O link não contém o identificador do relatório.")
		return
	}
	if err := h.links.Verify(token, id); err != nil {
		h.renderError(c, http.StatusUnauthorized, "Acesso negado", "Este link expirou ou não é válido.")
		return
	}

	report, err := h.store.WeeklyReportByID(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("loading weekly report failed")
		h.renderError(c, http.StatusInternalServerError, "Erro", "Não foi possível carregar o relatório.")
		return
	}
	if report == nil {
		h.renderError(c, http.StatusNotFound, "Relatório não encontrado", "Este relatório não existe ou já foi removido.")
		return
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = reportPage.Execute(c.Writer, reportPageData{
		Title:    "Relatório Semanal",
		Subtitle: report.WeekStart + " a " + report.WeekEnd,
		Body:     renderMarkdown(report.Content),
	})
}

func (h *Handler) renderError(c *gin.Context, status int, title, message string) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = errorPage.Execute(c.Writer, errorPageData{Title: title, Message: message})
}
