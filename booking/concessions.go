package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cinebook-cli/model"
	"cinebook-cli/service"
	"github.com/shopspring/decimal"
)

// Concessions is the product add-on screen that follows a successful seat hold.
type Concessions struct {
	deps    Deps
	catalog Catalog

	mu         sync.Mutex
	products   []model.Product
	quantities map[int]int
}

func NewConcessions(catalog Catalog, deps Deps) *Concessions {
	return &Concessions{
		deps:       deps.withDefaults(),
		catalog:    catalog,
		quantities: map[int]int{},
	}
}

// Load fetches the catalogue and seeds quantities from the session snapshot.
func (c *Concessions) Load(ctx context.Context) bool {
	products, err := c.catalog.Products(ctx)
	if err != nil {
		c.deps.Logger.Error("load products", "err", err)
		c.deps.Notifier.Notify(Notice{Level: LevelError, Text: "Could not load products: " + service.ErrorMessage(err)})
		return false
	}

	quantities := map[int]int{}
	if data, ok := c.deps.Session.SeatData(); ok {
		for _, line := range data.Products {
			quantities[line.ProductID] = line.Quantity
		}
	}

	c.mu.Lock()
	c.products = products
	c.quantities = quantities
	c.mu.Unlock()
	return true
}

func (c *Concessions) Products() []model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Concessions) Quantity(productID int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quantities[productID]
}

// SetQuantity sets the quantity of a catalogue product; zero removes it.
func (c *Concessions) SetQuantity(productID int, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("quantity must not be negative, got %d", quantity)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.findLocked(productID); !ok {
		return fmt.Errorf("unknown product %d", productID)
	}
	if quantity == 0 {
		delete(c.quantities, productID)
		return nil
	}
	c.quantities[productID] = quantity
	return nil
}

// Adjust changes a quantity by delta, never going below zero.
func (c *Concessions) Adjust(productID int, delta int) error {
	next := c.Quantity(productID) + delta
	if next < 0 {
		next = 0
	}
	return c.SetQuantity(productID, next)
}

// Lines returns the chosen products ordered by product id.
func (c *Concessions) Lines() []model.ProductLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]model.ProductLine, 0, len(c.quantities))
	for id, qty := range c.quantities {
		lines = append(lines, model.ProductLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}

// Subtotal is the local estimate of the products total. The server total wins once confirmed.
func (c *Concessions) Subtotal() decimal.Decimal {
	lines := c.Lines()
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, line := range lines {
		if p, ok := c.findLocked(line.ProductID); ok {
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
	}
	return total
}

// Confirm updates the held booking session with the chosen products.
func (c *Concessions) Confirm(ctx context.Context) {
	if !requireLogin(c.deps) {
		return
	}
	sessionID := c.deps.Session.SessionID()
	data, ok := c.deps.Session.SeatData()
	if sessionID == "" || !ok || len(data.ScheduleSeatIDs) == 0 {
		c.deps.Notifier.Notify(Notice{Level: LevelWarning, Text: msgNoSeats})
		c.deps.Navigator.Back()
		return
	}

	lines := c.Lines()
	res, err := c.deps.API.SelectSeats(ctx, model.SelectSeatsRequest{
		SessionID:       sessionID,
		ScheduleID:      data.ScheduleID,
		ScheduleSeatIDs: data.ScheduleSeatIDs,
		Products:        lines,
	})
	if err != nil {
		switch {
		case service.IsUnauthorized(err):
			redirectToLogin(c.deps, msgAuthExpired)
		case service.ErrorCode(err) == model.ErrSessionExpired:
			expireSession(c.deps)
		default:
			c.deps.Logger.Error("confirm products", "session_id", sessionID, "err", err)
			c.deps.Notifier.Notify(Notice{Level: LevelError, Text: "Could not update your order: " + service.ErrorMessage(err)})
		}
		return
	}

	data.Products = lines
	data.applyTotals(res)
	c.deps.Session.Save(res.SessionID, data)
	c.deps.Notifier.Notify(Notice{Level: LevelSuccess, Text: fmt.Sprintf("Order updated. Grand total %s", data.GrandTotal.StringFixed(2))})

	handoff := data.clone()
	c.deps.Navigator.Navigate(RouteCheckout, &handoff)
}

func (c *Concessions) findLocked(productID int) (model.Product, bool) {
	for _, p := range c.products {
		if p.ID == productID {
			return p, true
		}
	}
	return model.Product{}, false
}
