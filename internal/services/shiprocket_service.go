package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/boldbrew/internal/config"
	"github.com/example/boldbrew/internal/models"
)

const (
	carrierName = "shiprocket"

	// Shiprocket tokens are valid for ten days. We only reuse a stored
	// token while it has comfortably more than the refresh window left,
	// so a token is refreshed well before the carrier rejects it.
	shiprocketTokenValidity = 240 * time.Hour
	shiprocketTokenReuse    = 230 * time.Hour
)

// CarrierError carries the carrier's own status code and message so
// handlers can surface them verbatim instead of a generic failure.
type CarrierError struct {
	Status  int
	Message string
}

func (e *CarrierError) Error() string {
	return e.Message
}

// ShiprocketService talks to the Shiprocket API with a database-backed
// bearer token shared across all server instances.
type ShiprocketService struct {
	db         *gorm.DB
	cfg        config.Shiprocket
	httpClient *http.Client
	tokenMu    sync.Mutex
}

func NewShiprocketService(db *gorm.DB, cfg config.Shiprocket) *ShiprocketService {
	return &ShiprocketService{
		db:         db,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type shiprocketAuthResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// GetToken returns a cached Shiprocket token, logging in for a fresh one
// when the stored token is missing or too close to expiry. Concurrent
// callers may race past the staleness check; the last login wins and every
// caller still ends up with a valid token.
func (s *ShiprocketService) GetToken(ctx context.Context) (string, error) {
	if token, ok := s.storedToken(); ok {
		return token, nil
	}

	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	// Check again in case another goroutine refreshed while we waited for the lock.
	if token, ok := s.storedToken(); ok {
		return token, nil
	}

	return s.refreshToken(ctx)
}

func (s *ShiprocketService) storedToken() (string, bool) {
	var cred models.CarrierCredential
	err := s.db.Where("carrier = ?", carrierName).First(&cred).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).Warn("[Shiprocket] failed to read stored token")
		}
		return "", false
	}
	if cred.Token == "" || time.Until(cred.ExpiresAt) <= shiprocketTokenReuse {
		return "", false
	}
	return cred.Token, true
}

func (s *ShiprocketService) refreshToken(ctx context.Context) (string, error) {
	if s.cfg.Email == "" || s.cfg.Password == "" {
		return "", errors.New("shiprocket credentials are not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"email":    s.cfg.Email,
		"password": s.cfg.Password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal Shiprocket auth payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v1/external/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create Shiprocket auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute Shiprocket auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read Shiprocket auth response: %w", err)
	}

	var authResp shiprocketAuthResponse
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return "", fmt.Errorf("unmarshal Shiprocket auth response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || authResp.Token == "" {
		msg := authResp.Message
		if msg == "" {
			msg = fmt.Sprintf("Shiprocket auth failed: status %d", resp.StatusCode)
		}
		return "", &CarrierError{Status: resp.StatusCode, Message: msg}
	}

	now := time.Now()
	cred := models.CarrierCredential{
		Carrier:     carrierName,
		Token:       authResp.Token,
		ExpiresAt:   now.Add(shiprocketTokenValidity),
		LastUpdated: now,
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "carrier"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at", "last_updated"}),
	}).Create(&cred).Error
	if err != nil {
		// The token itself is good; failing to persist it only costs an
		// extra login next time.
		logrus.WithError(err).Warn("[Shiprocket] failed to store refreshed token")
	}

	logrus.Info("[Shiprocket] refreshed carrier token")
	return authResp.Token, nil
}

// do performs an authenticated call, refreshing the token and retrying
// once on 401.
func (s *ShiprocketService) do(ctx context.Context, method, path string, body any, out any) error {
	token, err := s.GetToken(ctx)
	if err != nil {
		return err
	}

	status, respBody, err := s.doWithToken(ctx, method, path, body, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		// Token likely revoked upstream; refresh and retry once.
		s.tokenMu.Lock()
		token, err = s.refreshToken(ctx)
		s.tokenMu.Unlock()
		if err != nil {
			return err
		}
		status, respBody, err = s.doWithToken(ctx, method, path, body, token)
		if err != nil {
			return err
		}
	}

	if status < 200 || status >= 300 {
		return &CarrierError{Status: status, Message: carrierMessage(respBody, status)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal Shiprocket response: %w", err)
		}
	}
	return nil
}

func (s *ShiprocketService) doWithToken(ctx context.Context, method, path string, body any, token string) (int, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// carrierMessage digs the human-readable message out of a carrier error
// body, falling back to the raw body or status.
func carrierMessage(body []byte, status int) string {
	var parsed struct {
		Message string `json:"message"`
		Errors  any    `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		if parsed.Errors != nil {
			detail, _ := json.Marshal(parsed.Errors)
			return parsed.Message + ": " + string(detail)
		}
		return parsed.Message
	}
	if len(body) > 0 {
		return string(body)
	}
	return fmt.Sprintf("Shiprocket request failed: status %d", status)
}

// BookingResult carries the carrier identifiers recorded on the order
// after a successful booking.
type BookingResult struct {
	OrderID    json.Number `json:"order_id"`
	ShipmentID json.Number `json:"shipment_id"`
	Status     string      `json:"status"`
	AWBCode    string      `json:"awb_code"`
	CourierID  json.Number `json:"courier_company_id"`
}

// BookShipment submits a sanitized order to the carrier's ad-hoc order
// creation endpoint.
func (s *ShiprocketService) BookShipment(ctx context.Context, order *ShiprocketOrder) (*BookingResult, error) {
	var result BookingResult
	if err := s.do(ctx, http.MethodPost, "/v1/external/orders/create/adhoc", order, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PickupAddress is one configured pickup location on the carrier account.
type PickupAddress struct {
	ID             json.Number `json:"id"`
	PickupLocation string      `json:"pickup_location"`
	Name           string      `json:"name"`
	Address        string      `json:"address"`
	City           string      `json:"city"`
	State          string      `json:"state"`
	PinCode        json.Number `json:"pin_code"`
	Phone          string      `json:"phone"`
}

// ListPickupAddresses returns the pickup locations configured on the
// carrier account.
func (s *ShiprocketService) ListPickupAddresses(ctx context.Context) ([]PickupAddress, error) {
	var resp struct {
		Data struct {
			ShippingAddress []PickupAddress `json:"shipping_address"`
		} `json:"data"`
	}
	if err := s.do(ctx, http.MethodGet, "/v1/external/settings/company/addresses/pickup", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.ShippingAddress, nil
}

// CourierRate is one serviceable courier option for a route.
type CourierRate struct {
	CourierCompanyID json.Number `json:"courier_company_id"`
	CourierName      string      `json:"courier_name"`
	Rate             float64     `json:"rate"`
	EstimatedDays    string      `json:"estimated_delivery_days"`
	RatingCount      json.Number `json:"rating_count"`
}

var sixDigitPincode = regexp.MustCompile(`^\d{6}$`)

// GetShipmentRates queries courier serviceability between two pincodes.
func (s *ShiprocketService) GetShipmentRates(ctx context.Context, pickupPincode, deliveryPincode string, weight float64, cod bool) ([]CourierRate, error) {
	deliveryPincode = strings.TrimSpace(deliveryPincode)
	if !sixDigitPincode.MatchString(deliveryPincode) {
		return nil, &CarrierError{Status: http.StatusBadRequest, Message: "delivery pincode must be a 6-digit number"}
	}

	codFlag := "0"
	if cod {
		codFlag = "1"
	}
	path := fmt.Sprintf("/v1/external/courier/serviceability/?pickup_postcode=%s&delivery_postcode=%s&weight=%v&cod=%s",
		pickupPincode, deliveryPincode, weight, codFlag)

	var resp struct {
		Data struct {
			AvailableCourierCompanies []CourierRate `json:"available_courier_companies"`
		} `json:"data"`
	}
	if err := s.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.AvailableCourierCompanies, nil
}

// AWBAssignment is the tracking number assignment returned by the carrier.
type AWBAssignment struct {
	AWBCode     string `json:"awb_code"`
	CourierName string `json:"courier_name"`
}

// AssignAWB requests a tracking number for a booked shipment, optionally
// pinning a specific courier.
func (s *ShiprocketService) AssignAWB(ctx context.Context, shipmentID string, courierID string) (*AWBAssignment, error) {
	body := map[string]string{"shipment_id": shipmentID}
	if courierID != "" {
		body["courier_id"] = courierID
	}

	var resp struct {
		AWBAssignStatus int `json:"awb_assign_status"`
		Response        struct {
			Data AWBAssignment `json:"data"`
		} `json:"response"`
	}
	if err := s.do(ctx, http.MethodPost, "/v1/external/courier/assign/awb", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Response.Data, nil
}
