package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docindex/internal/domain"
)

// EmbedRequest ingests one document. Omitted chunking parameters take the
// configured defaults.
type EmbedRequest struct {
	DocumentText *string `json:"document_text" binding:"required"`
	ChunkSize    *int    `json:"chunk_size"`
	ChunkOverlap *int    `json:"chunk_overlap"`
}

type EmbedResponse struct {
	Status        string `json:"status"`
	DocumentID    string `json:"document_id"`
	NumEmbeddings int    `json:"num_embeddings"`
	Created       bool   `json:"created"`
}

// SearchRequest queries the index, optionally within one document.
type SearchRequest struct {
	DocumentID      string `json:"document_id"`
	Query           string `json:"query"`
	TopK            *int   `json:"top_k"`
	NeighborWindow  *int   `json:"neighbor_window"`
	RequireDocument bool   `json:"require_document"`
}

// SearchResponse carries []domain.Result when no neighbor window was asked
// for and the expanded context strings otherwise.
type SearchResponse struct {
	Status        string `json:"status"`
	SearchResults any    `json:"search_results"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "docindex retrieval API"})
}

func (s *Server) handleHealth(c *gin.Context) {
	stats, err := s.engine.Stats(c.Request.Context())
	if err != nil {
		s.logger.Warn("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"index":     stats,
	})
}

func (s *Server) handleEmbed(c *gin.Context) {
	var req EmbedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithBindError(c, err)
		return
	}

	res, err := s.engine.Ingest(c.Request.Context(), domain.IngestRequest{
		Text:         *req.DocumentText,
		ChunkSize:    valueOr(req.ChunkSize, s.cfg.Index.ChunkSize),
		ChunkOverlap: valueOr(req.ChunkOverlap, s.cfg.Index.ChunkOverlap),
	})
	if err != nil {
		s.respondWithEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, EmbedResponse{
		Status:        "success",
		DocumentID:    res.DocumentID,
		NumEmbeddings: res.NumChunks,
		Created:       res.Created,
	})
}

func (s *Server) handleSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithBindError(c, err)
		return
	}

	window := valueOr(req.NeighborWindow, s.cfg.Retrieve.NeighborWindow)
	results, err := s.engine.Query(c.Request.Context(), domain.QueryRequest{
		Query:           req.Query,
		TopK:            valueOr(req.TopK, s.cfg.Retrieve.TopK),
		DocumentID:      req.DocumentID,
		NeighborWindow:  window,
		RequireDocument: req.RequireDocument,
	})
	if err != nil {
		s.respondWithEngineError(c, err)
		return
	}

	if results == nil {
		results = []domain.Result{}
	}
	var body any = results
	if window > 0 {
		body = domain.Texts(results)
	}
	c.JSON(http.StatusOK, SearchResponse{Status: "success", SearchResults: body})
}

func valueOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
