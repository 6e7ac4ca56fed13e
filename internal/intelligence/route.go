package intelligence

import (
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

type routeLeg struct {
	from string
	to   string
}

// RoutePlan is the outcome of route or lead-time selection
type RoutePlan struct {
	Route            *domain.ShippingRoute
	TransitDays      int
	EstimatedArrival *time.Time
	Reasoning        []domain.ReasoningItem
}

// Selection returns the chosen route in suggestion form, or nil when none was found
func (p RoutePlan) Selection() *domain.RouteSelection {
	if p.Route == nil {
		return nil
	}
	return &domain.RouteSelection{
		RouteID:     p.Route.ID,
		Method:      p.Route.Method,
		TransitDays: p.TransitDays,
		IsDefault:   p.Route.IsDefault,
	}
}

// RoutePlanner selects shipping routes between locations
type RoutePlanner struct {
	legs map[routeLeg][]domain.ShippingRoute
}

// NewRoutePlanner indexes the active routes. It fails when an origin/destination
// pair carries more than one active default route.
func NewRoutePlanner(routes []domain.ShippingRoute) (*RoutePlanner, error) {
	p := &RoutePlanner{legs: make(map[routeLeg][]domain.ShippingRoute)}
	defaults := make(map[routeLeg]string)

	for _, r := range routes {
		if !r.IsActive {
			continue
		}
		leg := routeLeg{from: r.FromLocationID, to: r.ToLocationID}
		if r.IsDefault {
			if prev, ok := defaults[leg]; ok {
				return nil, fmt.Errorf("%w: %s -> %s (%s, %s)",
					ErrDuplicateDefaultRoute, leg.from, leg.to, prev, r.ID)
			}
			defaults[leg] = r.ID
		}
		p.legs[leg] = append(p.legs[leg], r)
	}

	for leg, list := range p.legs {
		sort.SliceStable(list, func(i, j int) bool {
			return preferRoute(list[i], list[j])
		})
		p.legs[leg] = list
	}
	return p, nil
}

// preferRoute orders routes: default first, then fastest typical transit,
// then cheapest per unit, then id.
func preferRoute(a, b domain.ShippingRoute) bool {
	if a.IsDefault != b.IsDefault {
		return a.IsDefault
	}
	if a.TransitDays.Typical != b.TransitDays.Typical {
		return a.TransitDays.Typical < b.TransitDays.Typical
	}
	if c := a.Costs.PerUnit.Cmp(b.Costs.PerUnit); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}

// SelectRoute returns the preferred active route from one location to another
func (p *RoutePlanner) SelectRoute(from, to string) (domain.ShippingRoute, bool) {
	list := p.legs[routeLeg{from: from, to: to}]
	if len(list) == 0 {
		return domain.ShippingRoute{}, false
	}
	return list[0], true
}

// PlanTransfer selects the route for a transfer and estimates its arrival
func (p *RoutePlanner) PlanTransfer(from, to string, today time.Time) RoutePlan {
	route, ok := p.SelectRoute(from, to)
	if !ok {
		return RoutePlan{
			Reasoning: []domain.ReasoningItem{
				domain.Warning("No active shipping route from %s to %s, arrival date unknown", from, to),
			},
		}
	}

	days := route.TransitDays.Typical
	eta := addDays(today, days)
	why := "fastest available"
	if route.IsDefault {
		why = "default"
	}

	item := domain.Calculation(float64(days), "Ship via %s route %s (%s), %d days typical transit, arriving %s",
		route.Method, route.ID, why, days, eta.Format("2006-01-02"))
	if route.TransitDays.Max > days {
		item.Detail = fmt.Sprintf("transit range %d-%d days", route.TransitDays.Min, route.TransitDays.Max)
	}

	return RoutePlan{
		Route:            &route,
		TransitDays:      days,
		EstimatedArrival: timePtr(eta),
		Reasoning:        []domain.ReasoningItem{item},
	}
}

// PlanPurchaseOrder estimates the arrival of a purchase order from the supplier lead time
func (p *RoutePlanner) PlanPurchaseOrder(supplier *domain.Supplier, today time.Time) RoutePlan {
	if supplier == nil {
		return RoutePlan{
			Reasoning: []domain.ReasoningItem{
				domain.Warning("No supplier lead time available, arrival date unknown"),
			},
		}
	}

	name := supplier.Name
	if name == "" {
		name = supplier.ID
	}
	eta := addDays(today, supplier.LeadTimeDays)
	return RoutePlan{
		TransitDays:      supplier.LeadTimeDays,
		EstimatedArrival: timePtr(eta),
		Reasoning: []domain.ReasoningItem{
			domain.Calculation(float64(supplier.LeadTimeDays), "Supplier %s lead time %d days, arriving %s",
				name, supplier.LeadTimeDays, eta.Format("2006-01-02")),
		},
	}
}
