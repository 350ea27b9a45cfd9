package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fallback constants for mandatory carrier address fields. The carrier
// rejects orders with empty mandatory fields, so every field coalesces to
// one of these when nothing usable can be recovered from the input.
const (
	DefaultCustomerName = "Customer"
	DefaultAddress      = "Sansad Marg"
	DefaultCity         = "New Delhi"
	DefaultState        = "Delhi"
	DefaultPincode      = "110001"
	DefaultCountry      = "India"
	DefaultEmail        = "no-reply@boldandbrew.in"
	DefaultPhone        = "9999999999"
	DefaultHSN          = 446
)

// knownStates is scanned as whole words against the combined address string
// when the state field is missing. Best effort only; recovered values are
// lower-confidence than form input and exist to reduce carrier rejections.
var knownStates = []string{
	"Delhi", "Karnataka", "Maharashtra", "Tamil Nadu", "Uttar Pradesh",
	"Haryana", "Punjab", "Gujarat", "Rajasthan", "Kerala", "West Bengal",
}

var pincodeRe = regexp.MustCompile(`\b\d{6}\b`)

// ShiprocketOrderItem is one sanitized line item in the carrier payload.
type ShiprocketOrderItem struct {
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	Units        int    `json:"units"`
	SellingPrice int    `json:"selling_price"`
	Discount     string `json:"discount"`
	Tax          string `json:"tax"`
	HSN          int    `json:"hsn"`
}

// ShiprocketOrder is the strict payload shape the carrier's order-creation
// endpoint requires.
type ShiprocketOrder struct {
	OrderID        string `json:"order_id"`
	OrderDate      string `json:"order_date"`
	PickupLocation string `json:"pickup_location"`
	ChannelID      string `json:"channel_id"`
	Comment        string `json:"comment"`

	BillingCustomerName string `json:"billing_customer_name"`
	BillingLastName     string `json:"billing_last_name"`
	BillingAddress      string `json:"billing_address"`
	BillingAddress2     string `json:"billing_address_2"`
	BillingCity         string `json:"billing_city"`
	BillingPincode      string `json:"billing_pincode"`
	BillingState        string `json:"billing_state"`
	BillingCountry      string `json:"billing_country"`
	BillingEmail        string `json:"billing_email"`
	BillingPhone        string `json:"billing_phone"`

	// The carrier requires non-empty shipping fields even when they mirror
	// billing, so mirrored values are the sanitized billing values.
	ShippingIsBilling    bool   `json:"shipping_is_billing"`
	ShippingCustomerName string `json:"shipping_customer_name"`
	ShippingLastName     string `json:"shipping_last_name"`
	ShippingAddress      string `json:"shipping_address"`
	ShippingAddress2     string `json:"shipping_address_2"`
	ShippingCity         string `json:"shipping_city"`
	ShippingPincode      string `json:"shipping_pincode"`
	ShippingCountry      string `json:"shipping_country"`
	ShippingState        string `json:"shipping_state"`
	ShippingEmail        string `json:"shipping_email"`
	ShippingPhone        string `json:"shipping_phone"`

	OrderItems    []ShiprocketOrderItem `json:"order_items"`
	PaymentMethod string                `json:"payment_method"`

	ShippingCharges    float64 `json:"shipping_charges"`
	GiftwrapCharges    float64 `json:"giftwrap_charges"`
	TransactionCharges float64 `json:"transaction_charges"`
	TotalDiscount      float64 `json:"total_discount"`
	SubTotal           float64 `json:"sub_total"`

	Length  float64 `json:"length"`
	Breadth float64 `json:"breadth"`
	Height  float64 `json:"height"`
	Weight  float64 `json:"weight"`
}

// MissingFieldsError reports mandatory fields still empty after
// sanitization. With the defaults table in place it guards against a
// defaulting bug rather than bad input.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required address fields: " + strings.Join(e.Fields, ", ")
}

// SanitizeShipmentOrder normalizes a loosely-structured order-like object
// into the carrier's strict schema. It is total over its input: any shape
// (legacy flat records, structured shipping forms, free-text addresses,
// nil values, wrong types) produces a payload whose mandatory fields are
// all non-empty and well-formed, or a MissingFieldsError naming what could
// not be filled.
func SanitizeShipmentOrder(raw map[string]any) (*ShiprocketOrder, error) {
	if raw == nil {
		raw = map[string]any{}
	}

	// The address may live in a nested object under several historical
	// names, or flat on the record itself.
	nested := firstMap(raw, "shipping", "shippingAddress", "shipping_address", "checkout", "delivery")

	pick := func(keys ...string) string {
		if v := coalesce(nested, keys...); v != "" {
			return v
		}
		return coalesce(raw, keys...)
	}

	name := sanitizeValue(pick("fullName", "name", "customerName", "billing_customer_name"), DefaultCustomerName)

	addressLine := strings.TrimSpace(strings.Join(filterNonEmpty(
		pick("addressLine1", "line1", "address_line1", "address1"),
		pick("addressLine2", "line2", "address_line2", "address2"),
	), ", "))
	if addressLine == "" {
		addressLine = pick("address", "billing_address", "addressLine", "street")
	}
	addressLine = sanitizeValue(addressLine, DefaultAddress)

	city := sanitizeValue(pick("city", "billing_city"), "")
	state := sanitizeValue(pick("state", "billing_state"), "")
	pincode := sanitizeValue(pick("pincode", "zip", "postalCode", "postcode", "billing_pincode"), "")
	country := sanitizeValue(pick("country", "billing_country"), DefaultCountry)
	email := sanitizeValue(pick("email", "billing_email", "customerEmail"), DefaultEmail)
	phone := sanitizeValue(pick("phone", "phoneNumber", "phone_number", "mobile", "billing_phone"), "")

	// Pincode: digits only, exactly six. Recover a six-digit token from the
	// combined address string before giving up on the default.
	pincode = digitsOnly(pincode)
	if len(pincode) != 6 {
		if m := pincodeRe.FindString(addressLine); m != "" {
			pincode = m
		} else {
			pincode = DefaultPincode
		}
	}

	// Phone: digits only, exactly ten.
	phone = digitsOnly(phone)
	if len(phone) != 10 {
		phone = DefaultPhone
	}

	// City/state recovery heuristics over the combined address string.
	// Comma-split for the city, whole-word state-name scan for the state.
	if city == "" || city == DefaultCity {
		if guess := guessCityFromAddress(addressLine); guess != "" {
			city = guess
		}
	}
	if city == "" {
		city = DefaultCity
	}
	if state == "" || state == DefaultState {
		if guess := guessStateFromAddress(addressLine); guess != "" {
			state = guess
		}
	}
	if state == "" {
		state = DefaultState
	}

	items := sanitizeItems(rawItems(raw))

	order := &ShiprocketOrder{
		OrderID:        sanitizeValue(coalesce(raw, "order_id", "orderId", "id"), strconv.FormatInt(time.Now().UnixMilli(), 10)),
		OrderDate:      sanitizeValue(coalesce(raw, "order_date", "orderDate"), time.Now().Format("2006-01-02")+" 12:00"),
		PickupLocation: sanitizeValue(coalesce(raw, "pickup_location", "pickupLocation"), "Primary"),
		ChannelID:      coalesce(raw, "channel_id", "channelId"),
		Comment:        sanitizeValue(coalesce(raw, "comment"), "Order from Bold & Brew"),

		BillingCustomerName: name,
		BillingAddress:      addressLine,
		BillingCity:         city,
		BillingPincode:      pincode,
		BillingState:        state,
		BillingCountry:      country,
		BillingEmail:        email,
		BillingPhone:        phone,

		ShippingIsBilling:    true,
		ShippingCustomerName: name,
		ShippingAddress:      addressLine,
		ShippingCity:         city,
		ShippingPincode:      pincode,
		ShippingCountry:      country,
		ShippingState:        state,
		ShippingEmail:        email,
		ShippingPhone:        phone,

		OrderItems:    items,
		PaymentMethod: sanitizeValue(coalesce(raw, "payment_method", "paymentMethod"), "Prepaid"),

		ShippingCharges:    numeric(raw["shipping_charges"], 0),
		GiftwrapCharges:    numeric(raw["giftwrap_charges"], 0),
		TransactionCharges: numeric(raw["transaction_charges"], 0),
		TotalDiscount:      numeric(raw["total_discount"], 0),
		SubTotal:           numeric(firstValue(raw, "sub_total", "total", "amount"), itemSubtotal(items)),

		Length:  numeric(raw["length"], 15),
		Breadth: numeric(raw["breadth"], 15),
		Height:  numeric(raw["height"], 15),
		Weight:  numeric(raw["weight"], 0.5),
	}

	if missing := order.missingFields(); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	return order, nil
}

func (o *ShiprocketOrder) missingFields() []string {
	checks := []struct {
		name  string
		value string
	}{
		{"billing_customer_name", o.BillingCustomerName},
		{"billing_address", o.BillingAddress},
		{"billing_city", o.BillingCity},
		{"billing_state", o.BillingState},
		{"billing_pincode", o.BillingPincode},
		{"billing_country", o.BillingCountry},
		{"billing_email", o.BillingEmail},
		{"billing_phone", o.BillingPhone},
		{"shipping_customer_name", o.ShippingCustomerName},
		{"shipping_address", o.ShippingAddress},
		{"shipping_city", o.ShippingCity},
		{"shipping_state", o.ShippingState},
		{"shipping_pincode", o.ShippingPincode},
		{"shipping_country", o.ShippingCountry},
		{"shipping_email", o.ShippingEmail},
		{"shipping_phone", o.ShippingPhone},
		{"pickup_location", o.PickupLocation},
		{"order_id", o.OrderID},
		{"order_date", o.OrderDate},
	}

	var missing []string
	for _, c := range checks {
		if strings.TrimSpace(c.value) == "" {
			missing = append(missing, c.name)
		}
	}
	if len(o.OrderItems) == 0 {
		missing = append(missing, "order_items")
	}
	return missing
}

func sanitizeItems(raw []any) []ShiprocketOrderItem {
	items := make([]ShiprocketOrderItem, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		name := sanitizeValue(coalesce(m, "name", "productName", "title"), "Product")
		if r := []rune(name); len(r) > 50 {
			name = string(r[:50])
		}

		sku := sanitizeValue(coalesce(m, "sku", "id", "product_id", "productId"), "")
		if sku == "" {
			sku = generatedSKU()
		}

		units := int(numeric(firstValue(m, "units", "quantity", "qty"), 1))
		if units <= 0 {
			units = 1
		}

		price := int(math.Round(numeric(firstValue(m, "selling_price", "price", "unitPrice", "unit_price"), 0)))
		if price < 0 {
			price = 0
		}

		items = append(items, ShiprocketOrderItem{
			Name:         name,
			SKU:          sku,
			Units:        units,
			SellingPrice: price,
			HSN:          DefaultHSN,
		})
	}
	return items
}

func generatedSKU() string {
	return "SKU-" + strings.ToUpper(uuid.NewString()[:8])
}

func itemSubtotal(items []ShiprocketOrderItem) float64 {
	var sum float64
	for _, it := range items {
		sum += float64(it.SellingPrice * it.Units)
	}
	return sum
}

func guessCityFromAddress(address string) string {
	parts := filterNonEmpty(strings.Split(address, ",")...)
	if len(parts) < 2 {
		return ""
	}
	// The trailing segment usually carries state and pincode; the city
	// tends to sit just before it.
	return parts[len(parts)-2]
}

func guessStateFromAddress(address string) string {
	for _, st := range knownStates {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(st) + `\b`)
		if re.MatchString(address) {
			return st
		}
	}
	return ""
}

// sanitizeValue trims the value and substitutes the fallback when empty.
func sanitizeValue(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// coalesce returns the first non-empty stringifiable value across the
// prioritized key aliases.
func coalesce(m map[string]any, keys ...string) string {
	if m == nil {
		return ""
	}
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s := stringify(v); strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func firstMap(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if sub, ok := v.(map[string]any); ok {
				return sub
			}
		}
	}
	return nil
}

func firstValue(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func rawItems(m map[string]any) []any {
	for _, k := range []string{"order_items", "items", "cartItems"} {
		if v, ok := m[k]; ok {
			if list, ok := v.([]any); ok {
				return list
			}
		}
	}
	return nil
}

func numeric(v any, fallback float64) float64 {
	switch t := v.(type) {
	case nil:
		return fallback
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return parsed
		}
		return fallback
	default:
		return fallback
	}
}

func filterNonEmpty(values ...string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
