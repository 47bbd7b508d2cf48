package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"cinebook-cli/model"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// GetSeats fetches the seat map of a schedule.
func (c *Client) GetSeats(ctx context.Context, scheduleID int) ([]model.SeatRecord, error) {
	if scheduleID <= 0 {
		return nil, errors.New("schedule id must be greater than zero")
	}
	query := url.Values{}
	query.Set("scheduleId", strconv.Itoa(scheduleID))
	endpoint := fmt.Sprintf("%s/public/seats?%s", c.baseURL, query.Encode())

	var seats []model.SeatRecord
	if err := c.getJSON(ctx, endpoint, &seats); err != nil {
		return nil, err
	}
	return seats, nil
}

// SelectSeats creates or updates the booking session holding the given seats and products.
// An empty ScheduleSeatIDs releases every seat held by the session.
func (c *Client) SelectSeats(ctx context.Context, req model.SelectSeatsRequest) (model.SelectSeatsResponse, error) {
	if req.ScheduleSeatIDs == nil {
		req.ScheduleSeatIDs = []int{}
	}
	if req.Products == nil {
		req.Products = []model.ProductLine{}
	}
	if err := validate.Struct(req); err != nil {
		return model.SelectSeatsResponse{}, fmt.Errorf("invalid seat selection: %w", err)
	}
	endpoint := fmt.Sprintf("%s/member/select-seats", c.baseURL)

	var res model.SelectSeatsResponse
	if err := c.postJSON(ctx, endpoint, req, &res); err != nil {
		return model.SelectSeatsResponse{}, err
	}
	if res.SessionID == "" {
		return model.SelectSeatsResponse{}, errors.New("booking api returned no session id")
	}
	return res, nil
}

// GetProducts returns the concessions catalogue.
func (c *Client) GetProducts(ctx context.Context) ([]model.Product, error) {
	endpoint := fmt.Sprintf("%s/public/products", c.baseURL)
	var products []model.Product
	if err := c.getJSON(ctx, endpoint, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email string, password string) (model.LoginResponse, error) {
	req := model.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := validate.Struct(req); err != nil {
		return model.LoginResponse{}, fmt.Errorf("invalid credentials: %w", err)
	}
	endpoint := fmt.Sprintf("%s/auth/login", c.baseURL)

	var res model.LoginResponse
	if err := c.postJSON(ctx, endpoint, req, &res); err != nil {
		return model.LoginResponse{}, err
	}
	if res.Token == "" {
		return model.LoginResponse{}, errors.New("login returned no token")
	}
	return res, nil
}
