// Package billing connects paid plans to Stripe: the price table, a
// minimal REST client, webhook signature checks and the webhook event
// handler that issues and suspends licenses.
package billing

import (
	"fmt"
	"strconv"

	"github.com/devbuddy-ai/devbuddy/internal/licensing"
)

// Price is the catalogue entry for a paid plan. Amount is in the
// currency's smallest unit (yen have no minor unit); zero means the plan
// is sold by contact.
type Price struct {
	Plan        licensing.Plan `json:"plan"`
	PriceID     string         `json:"price_id"`
	Amount      int            `json:"amount"`
	Currency    string         `json:"currency"`
	Interval    string         `json:"interval"`
	DisplayName string         `json:"display_name"`
}

var prices = []Price{
	{Plan: licensing.PlanPro, PriceID: "price_pro_monthly", Amount: 1980, Currency: "jpy", Interval: "month", DisplayName: "Pro Plan"},
	{Plan: licensing.PlanTeam, PriceID: "price_team_monthly", Amount: 9800, Currency: "jpy", Interval: "month", DisplayName: "Team Plan"},
	{Plan: licensing.PlanEnterprise, PriceID: "price_enterprise_monthly", Amount: 0, Currency: "jpy", Interval: "month", DisplayName: "Enterprise Plan"},
}

// Prices returns every purchasable plan, cheapest first.
func Prices() []Price {
	out := make([]Price, len(prices))
	copy(out, prices)
	return out
}

// PriceFor returns the price of plan. The free plan has none.
func PriceFor(plan licensing.Plan) (Price, bool) {
	for _, p := range prices {
		if p.Plan == plan {
			return p, true
		}
	}
	return Price{}, false
}

// Display renders the amount for humans, e.g. "¥1,980/month".
func (p Price) Display() string {
	if p.Amount == 0 {
		return "Contact sales"
	}
	amount := groupThousands(p.Amount)
	if p.Currency == "jpy" {
		return fmt.Sprintf("¥%s/%s", amount, p.Interval)
	}
	return fmt.Sprintf("%s %s/%s", amount, p.Currency, p.Interval)
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
