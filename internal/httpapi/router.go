package httpapi

import (
	"net/http"

	"coinvest-platform/pkg/config"
	"coinvest-platform/pkg/errutil"
	"coinvest-platform/pkg/featureflags"
	"coinvest-platform/pkg/health"
	"coinvest-platform/pkg/middleware"
	"coinvest-platform/services/account"
	"coinvest-platform/services/investment"
	"coinvest-platform/services/plan"
	"coinvest-platform/services/portfolio"
	"coinvest-platform/services/referral"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewRouter),
)

type handler struct {
	cfg         *config.Config
	flags       featureflags.FeatureFlag
	catalog     *plan.Catalog
	accounts    *account.Service
	investments *investment.Service
	referrals   *referral.Service
	portfolio   *portfolio.Service
}

type RouterParams struct {
	fx.In
	Config      *config.Config
	Flags       featureflags.FeatureFlag
	Health      health.HealthService
	Catalog     *plan.Catalog
	Accounts    *account.Service
	Investments *investment.Service
	Referrals   *referral.Service
	Portfolio   *portfolio.Service
}

// NewRouter wires every service into the REST surface.
func NewRouter(p RouterParams) http.Handler {
	if p.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &handler{
		cfg:         p.Config,
		flags:       p.Flags,
		catalog:     p.Catalog,
		accounts:    p.Accounts,
		investments: p.Investments,
		referrals:   p.Referrals,
		portfolio:   p.Portfolio,
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Error())

	r.GET("/healthz", p.Health.Liveness)
	r.GET("/readyz", p.Health.Readiness)

	v1 := r.Group("/v1")
	{
		v1.GET("/plans", h.listPlans)

		v1.POST("/accounts", h.createAccount)
		v1.GET("/accounts/:id", h.getAccount)

		v1.POST("/investments", h.createInvestment)
		v1.GET("/investments", h.listInvestments)
		v1.GET("/investments/:id", h.getInvestment)
		v1.GET("/investments/:id/returns", h.investmentReturns)
		v1.POST("/investments/:id/activate", h.activateInvestment)
		v1.POST("/investments/:id/cancel", h.cancelInvestment)
		v1.POST("/investments/:id/reject", h.rejectInvestment)
		v1.POST("/investments/:id/complete", h.completeInvestment)

		referralGate := h.requireFeature(featureflags.ReferralProgram)
		v1.POST("/referrals/codes", referralGate, h.generateReferralCode)
		v1.GET("/referrals/codes/:code", h.validateReferralCode)
		v1.POST("/referrals", referralGate, h.recordReferral)
		v1.POST("/referrals/claim", referralGate, h.claimReferralRewards)
		v1.GET("/referrals/stats/:id", h.referralStats)

		v1.GET("/portfolio/:id/balance", h.portfolioBalance)
		v1.GET("/portfolio/:id/entries", h.portfolioEntries)
		v1.GET("/portfolio/:id/verify", h.portfolioVerify)
	}

	return r
}

func (h *handler) listPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.catalog.All()})
}

// requireFeature rejects the request when the named feature is switched off.
func (h *handler) requireFeature(feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.flags.IsEnabled(c.Request.Context(), feature) {
			_ = c.Error(errutil.Forbidden(feature+" is currently disabled", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
