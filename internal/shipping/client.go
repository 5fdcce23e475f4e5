package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const calculatePath = "/api/v2/me/shipment/calculate"

var ErrNotConfigured = errors.New("shipping api not configured")

// RateError is a failure reported by the carrier for one tier.
type RateError struct {
	Status  int
	Message string
}

func (e *RateError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("shipping api returned status %d: %s", e.Status, e.Message)
	}
	return "shipping api: " + e.Message
}

// HTTPRateClient talks to a Melhor Envio style calculator with a bearer token.
type HTTPRateClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPRateClient(baseURL, token string, httpClient *http.Client) *HTTPRateClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPRateClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type calculatePostal struct {
	PostalCode string `json:"postal_code"`
}

type calculateRequest struct {
	From     calculatePostal  `json:"from"`
	To       calculatePostal  `json:"to"`
	Package  calculatePackage `json:"package"`
	Options  calculateOpts    `json:"options"`
	Services string           `json:"services"`
}

type calculatePackage struct {
	Height int     `json:"height"`
	Width  int     `json:"width"`
	Length int     `json:"length"`
	Weight float64 `json:"weight"`
}

type calculateOpts struct {
	InsuranceValue float64 `json:"insurance_value"`
	Receipt        bool    `json:"receipt"`
	OwnHand        bool    `json:"own_hand"`
}

type calculateResult struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	CustomPrice  decimal.Decimal `json:"custom_price"`
	DeliveryTime int             `json:"delivery_time"`
	Error        string          `json:"error"`
}

// Quote prices a single tier.
func (c *HTTPRateClient) Quote(ctx context.Context, req RateRequest) (Rate, error) {
	if c.baseURL == "" || c.token == "" {
		return Rate{}, ErrNotConfigured
	}

	payload, err := json.Marshal(calculateRequest{
		From:     calculatePostal{PostalCode: req.OriginPostalCode},
		To:       calculatePostal{PostalCode: req.PostalCode},
		Options:  calculateOpts{InsuranceValue: req.DeclaredValue.Round(2).InexactFloat64()},
		Services: strconv.Itoa(req.Tier.ServiceID),
		Package: calculatePackage{
			Height: req.Package.HeightCM,
			Width:  req.Package.WidthCM,
			Length: req.Package.LengthCM,
			Weight: req.Package.WeightKG.InexactFloat64(),
		},
	})
	if err != nil {
		return Rate{}, fmt.Errorf("shipping request marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+calculatePath, bytes.NewReader(payload))
	if err != nil {
		return Rate{}, fmt.Errorf("shipping request build: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Rate{}, fmt.Errorf("shipping request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Rate{}, &RateError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	result, err := decodeCalculate(body, req.Tier.ServiceID)
	if err != nil {
		return Rate{}, err
	}
	if result.Error != "" {
		return Rate{}, &RateError{Message: result.Error}
	}

	price := result.CustomPrice
	if price.IsZero() {
		price = result.Price
	}
	if price.Sign() <= 0 {
		return Rate{}, &RateError{Message: "no price returned"}
	}
	return Rate{Price: price, DeliveryDays: result.DeliveryTime}, nil
}

// decodeCalculate accepts either a single service object or a list of them.
func decodeCalculate(body []byte, serviceID int) (calculateResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var results []calculateResult
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return calculateResult{}, fmt.Errorf("shipping response unmarshal: %w", err)
		}
		for _, r := range results {
			if r.ID == serviceID {
				return r, nil
			}
		}
		if len(results) == 1 {
			return results[0], nil
		}
		return calculateResult{}, &RateError{Message: "service not returned"}
	}

	var result calculateResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return calculateResult{}, fmt.Errorf("shipping response unmarshal: %w", err)
	}
	return result, nil
}
