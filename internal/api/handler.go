package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clearview/clearview_api/internal/enrich"
	"github.com/clearview/clearview_api/internal/service"
	"github.com/clearview/clearview_api/pkg/models"
)

type Handler struct {
	svc *service.Service
	log *zap.Logger
}

func NewHandler(svc *service.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/", h.Home)
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/articles", h.ListArticles)
	r.POST("/articles", h.SaveArticle)
	r.PUT("/articles/:id", h.UpdateArticle)

	r.GET("/article", h.GetArticle)
	r.GET("/article/details", h.GetArticleDetails)
	r.PUT("/article/increment", h.IncrementSaved)
	r.DELETE("/article", h.DeleteArticle)

	r.GET("/authors", h.ListAuthors)
	r.GET("/authors/:name/articles", h.ArticlesByAuthor)
	r.GET("/keywords", h.ListKeywords)
	r.GET("/keywords/:keyword/articles", h.ArticlesByKeyword)

	r.POST("/clean", h.Clean)
	r.POST("/summarize", h.Summarize)
	r.POST("/categorize_article", h.Categorize)
	r.POST("/analyze_sources", h.AnalyzeSources)
	r.POST("/lateral_reading_questions", h.LateralReadingQuestions)
	r.POST("/analyze_language", h.AnalyzeLanguage)
}

// Home: GET /
func (h *Handler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the ClearView API"})
}

// Health: GET /health
func (h *Handler) Health(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListArticles: GET /articles?limit=20
// Without limit every article is returned.
func (h *Handler) ListArticles(c *gin.Context) {
	lim := 0
	if s := c.Query("limit"); s != "" {
		lim = parseLimit(s)
	}
	res, err := h.svc.Articles(c.Request.Context(), lim)
	if err != nil {
		h.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": res})
}

// SaveArticle: POST /articles
// Body: the aggregate article submission with all enrichments.
func (h *Handler) SaveArticle(c *gin.Context) {
	var payload models.ArticleSubmission
	if !h.bind(c, &payload) {
		return
	}
	res, err := h.svc.SaveArticle(c.Request.Context(), &payload)
	if err != nil {
		h.respondError(c, err, http.StatusBadRequest)
		return
	}
	msg := "Article saved"
	if !res.Created {
		msg = "Article already exists, view count updated"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "id": res.ID, "created": res.Created})
}

// UpdateArticle: PUT /articles/:id
func (h *Handler) UpdateArticle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid article id"})
		return
	}
	var payload models.ArticleUpdate
	if !h.bind(c, &payload) {
		return
	}
	if err := h.svc.UpdateArticle(c.Request.Context(), id, &payload); err != nil {
		h.respondError(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Article updated", "id": id})
}

// GetArticle: GET /article?url=...
func (h *Handler) GetArticle(c *gin.Context) {
	a, err := h.svc.Article(c.Request.Context(), c.Query("url"))
	if err != nil {
		h.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": a})
}

// GetArticleDetails: GET /article/details?url=...
func (h *Handler) GetArticleDetails(c *gin.Context) {
	d, err := h.svc.ArticleDetails(c.Request.Context(), c.Query("url"))
	if err != nil {
		h.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": d})
}

// IncrementSaved: PUT /article/increment?url=...
func (h *Handler) IncrementSaved(c *gin.Context) {
	n, err := h.svc.MarkSaved(c.Request.Context(), c.Query("url"))
	if err != nil {
		h.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Saved count incremented", "saved_count": n})
}

// DeleteArticle: DELETE /article?url=...
func (h *Handler) DeleteArticle(c *gin.Context) {
	if err := h.svc.DeleteArticle(c.Request.Context(), c.Query("url")); err != nil {
		h.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Article deleted"})
}

func (h *Handler) ListAuthors(c *gin.Context) {
	res, err := h.svc.Authors(c.Request.Context())
	if err != nil {
		h.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authors": res})
}

func (h *Handler) ListKeywords(c *gin.Context) {
	res, err := h.svc.Keywords(c.Request.Context())
	if err != nil {
		h.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keywords": res})
}

// ArticlesByAuthor: GET /authors/:name/articles
func (h *Handler) ArticlesByAuthor(c *gin.Context) {
	res, err := h.svc.ArticlesByAuthor(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": res})
}

// ArticlesByKeyword: GET /keywords/:keyword/articles
func (h *Handler) ArticlesByKeyword(c *gin.Context) {
	res, err := h.svc.ArticlesByKeyword(c.Request.Context(), c.Param("keyword"))
	if err != nil {
		h.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": res})
}

type cleanRequest struct {
	HTMLContent string `json:"html_content"`
}

type textRequest struct {
	Title       string `json:"title"`
	ArticleText string `json:"article_text"`
}

// Clean: POST /clean
// Body: {"html_content": "..."}
func (h *Handler) Clean(c *gin.Context) {
	var req cleanRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.Clean(req.HTMLContent)
	if err != nil {
		// unreadable input HTML is the client's fault
		h.respondError(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Summarize: POST /summarize
func (h *Handler) Summarize(c *gin.Context) {
	var req textRequest
	if !h.bind(c, &req) {
		return
	}
	summary, err := h.svc.Summarize(c.Request.Context(), req.ArticleText)
	if err != nil {
		h.respondError(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// Categorize: POST /categorize_article
func (h *Handler) Categorize(c *gin.Context) {
	var req textRequest
	if !h.bind(c, &req) {
		return
	}
	category, err := h.svc.Categorize(c.Request.Context(), req.Title, req.ArticleText)
	if err != nil {
		h.respondError(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// AnalyzeSources: POST /analyze_sources
// Body: {"title","description","mainImageCredits","article"}
func (h *Handler) AnalyzeSources(c *gin.Context) {
	var req enrich.SourcesInput
	if !h.bind(c, &req) {
		return
	}
	sm, score, err := h.svc.AnalyzeSources(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources_mentioned": sm, "score": score})
}

// LateralReadingQuestions: POST /lateral_reading_questions
func (h *Handler) LateralReadingQuestions(c *gin.Context) {
	var req textRequest
	if !h.bind(c, &req) {
		return
	}
	text, ranked, err := h.svc.LateralReadingQuestions(c.Request.Context(), req.ArticleText)
	if err != nil {
		h.respondError(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": text, "ranked": ranked})
}

// AnalyzeLanguage: POST /analyze_language
func (h *Handler) AnalyzeLanguage(c *gin.Context) {
	var req textRequest
	if !h.bind(c, &req) {
		return
	}
	report, err := h.svc.AnalyzeLanguage(c.Request.Context(), req.ArticleText)
	if err != nil {
		h.respondError(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, gin.H{"language_analysis": report})
}

func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json: " + err.Error()})
		return false
	}
	return true
}

// respondError maps a service error to a status. parseStatus is used for
// ErrParse, which is the caller's fault for input HTML or a submission and
// the completion service's fault for model output.
func (h *Handler) respondError(c *gin.Context, err error, parseStatus int) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrTransport):
		status = http.StatusBadGateway
	case errors.Is(err, models.ErrParse):
		status = parseStatus
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"message": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"message": err.Error()})
}

// parseLimit ensures a sane integer limit, with bounds
func parseLimit(s string) int {
	l, err := strconv.Atoi(s)
	if err != nil || l <= 0 {
		return 10
	}
	if l > 200 {
		return 200
	}
	return l
}
