// Package plans is the mobile plan carousel.
package plans

import (
	"net/url"
	"sync"

	"github.com/mmcdole/kiosk/internal/domain"
)

var standardFeatures = []string{
	"Unlimited calls and SMS",
	"Hotspot: share your data",
	"Unlimited social networks included",
	"Build your plan with more unlimited apps",
	"CO2 negative",
}

// Catalog returns the fixed plan lineup, contacts routed to whatsapp
func Catalog(whatsapp string) []domain.MobilePlan {
	plan := func(id, name string, original, current float64, data string, popular bool, color string) domain.MobilePlan {
		return domain.MobilePlan{
			ID:             id,
			Name:           name,
			OriginalPrice:  original,
			CurrentPrice:   current,
			DataAmount:     data,
			Features:       append([]string(nil), standardFeatures...),
			IsPopular:      popular,
			Color:          color,
			WhatsAppNumber: whatsapp,
		}
	}
	return []domain.MobilePlan{
		plan("flex5", "Plan FLEX 5", 270, 199, "5GB", false, "#FF6B6B"),
		plan("flex8", "Plan FLEX 8", 370, 299, "8GB", true, "#FF6B6B"),
		plan("flex10", "Plan FLEX 10", 470, 399, "10GB", false, "#4ECDC4"),
	}
}

// Carousel cycles through plans. Safe for concurrent use.
type Carousel struct {
	mu    sync.RWMutex
	plans []domain.MobilePlan
	index int
}

func NewCarousel(plans []domain.MobilePlan) *Carousel {
	return &Carousel{plans: plans}
}

func (c *Carousel) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.plans)
}

func (c *Carousel) Index() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index
}

// Current returns the selected plan; false when the carousel is empty
func (c *Carousel) Current() (domain.MobilePlan, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.plans) == 0 {
		return domain.MobilePlan{}, false
	}
	return c.plans[c.index], true
}

// Next advances, wrapping from the last plan to the first
func (c *Carousel) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.plans) == 0 {
		return
	}
	c.index = (c.index + 1) % len(c.plans)
}

// Previous steps back, wrapping from the first plan to the last
func (c *Carousel) Previous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.plans) == 0 {
		return
	}
	c.index = (c.index - 1 + len(c.plans)) % len(c.plans)
}

// ContactMessage is the default text sent when asking for a plan
func ContactMessage(plan domain.MobilePlan) string {
	return "Hi, I'm interested in " + plan.Name + " (" + plan.DataAmount + ")"
}

// WhatsAppURL is the wa.me deep link for plan
func WhatsAppURL(plan domain.MobilePlan, message string) string {
	return "https://wa.me/" + plan.WhatsAppNumber + "?text=" + url.QueryEscape(message)
}

// WhatsAppWebURL is the browser fallback when the app is not installed
func WhatsAppWebURL(plan domain.MobilePlan, message string) string {
	q := url.Values{}
	q.Set("phone", plan.WhatsAppNumber)
	q.Set("text", message)
	return "https://web.whatsapp.com/send?" + q.Encode()
}
