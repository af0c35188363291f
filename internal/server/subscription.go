package server

import (
	"context"
	"net/http"

	billingdomain "github.com/consensusai/consensus/internal/billing/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateSubscription(c *gin.Context) {
	var req billingdomain.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.UserID = userIDParam(c)

	resp, err := s.billingSvc.CreateSubscription(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": s.subscriptionView(resp)})
}

func (s *Server) GetSubscription(c *gin.Context) {
	resp, err := s.billingSvc.GetSubscription(c.Request.Context(), userIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.subscriptionView(resp)})
}

func (s *Server) ChangeSubscriptionTier(c *gin.Context) {
	var req billingdomain.ChangeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.UserID = userIDParam(c)

	resp, err := s.billingSvc.ChangeTier(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.subscriptionView(resp)})
}

func (s *Server) ActivateSubscription(c *gin.Context) {
	s.transitionSubscription(c, s.billingSvc.Activate)
}

func (s *Server) MarkSubscriptionPastDue(c *gin.Context) {
	s.transitionSubscription(c, s.billingSvc.MarkPastDue)
}

func (s *Server) RenewSubscription(c *gin.Context) {
	s.transitionSubscription(c, s.billingSvc.Renew)
}

func (s *Server) CancelSubscription(c *gin.Context) {
	s.transitionSubscription(c, s.billingSvc.Cancel)
}

func (s *Server) transitionSubscription(c *gin.Context, transition func(context.Context, string) (*billingdomain.Subscription, error)) {
	resp, err := transition(c.Request.Context(), userIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.subscriptionView(resp)})
}

type subscriptionView struct {
	*billingdomain.Subscription
	TrialDaysRemaining int `json:"trial_days_remaining"`
}

func (s *Server) subscriptionView(sub *billingdomain.Subscription) subscriptionView {
	view := subscriptionView{Subscription: sub}
	if sub != nil {
		view.TrialDaysRemaining = sub.TrialDaysRemaining(s.now())
	}
	return view
}
