package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.billingSvc.ListTiers()})
}

func (s *Server) GetQuota(c *gin.Context) {
	resp, err := s.billingSvc.CheckQuota(c.Request.Context(), userIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBillingSummary(c *gin.Context) {
	resp, err := s.billingSvc.GetBillingSummary(c.Request.Context(), userIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetStatement renders the current billing summary as a PDF.
func (s *Server) GetStatement(c *gin.Context) {
	ctx := c.Request.Context()
	summary, err := s.billingSvc.GetBillingSummary(ctx, userIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.pdf.GenerateStatement(ctx, summary)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("statement-%s-%s.pdf", summary.UserID, summary.Usage.Period)
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", body)
}
