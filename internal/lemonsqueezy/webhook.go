// Package lemonsqueezy verifies and decodes Lemon Squeezy webhooks.
package lemonsqueezy

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/designengineer/course-api/internal/model"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw body.
const SignatureHeader = "X-Signature"

// Event names the service acts on.
const (
	EventOrderCreated          = "order_created"
	EventOrderRefunded         = "order_refunded"
	EventSubscriptionCancelled = "subscription_cancelled"
)

// VerifySignature checks signature against the HMAC-SHA256 of payload
// keyed with secret.  An empty secret or signature never verifies.
func VerifySignature(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), got)
}

// Sign returns the signature Lemon Squeezy would send for payload.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// ID decodes a JSON number or string into its string form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Event is the subset of the webhook envelope the service reads.
type Event struct {
	Meta struct {
		EventName  string `json:"event_name"`
		CustomData struct {
			UserID ID `json:"user_id"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		Type          string        `json:"type"`
		ID            ID            `json:"id"`
		Attributes    Attributes    `json:"attributes"`
		Relationships Relationships `json:"relationships"`
	} `json:"data"`
}

type Attributes struct {
	VariantID      ID         `json:"variant_id"`
	CustomerID     ID         `json:"customer_id"`
	OrderID        ID         `json:"order_id"`
	CreatedAt      string     `json:"created_at"`
	UserEmail      string     `json:"user_email"`
	FirstOrderItem *OrderItem `json:"first_order_item"`
}

type OrderItem struct {
	VariantID ID `json:"variant_id"`
}

type Relationships struct {
	OrderItems *struct {
		Data relationshipItems `json:"data"`
	} `json:"order-items"`
}

type relationshipItem struct {
	Attributes OrderItem `json:"attributes"`
}

// relationshipItems accepts a single object or an array.
type relationshipItems []relationshipItem

func (r *relationshipItems) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var many []relationshipItem
		if err := json.Unmarshal(b, &many); err != nil {
			return err
		}
		*r = many
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*r = nil
		return nil
	}
	var one relationshipItem
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*r = relationshipItems{one}
	return nil
}

// Parse decodes a webhook body.
func Parse(payload []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(payload, &ev)
	return ev, err
}

// VariantID looks in the order attributes, then the first order item, then
// the order-items relationship.  It returns "" when none carries one,
// which is what Lemon Squeezy test webhooks look like.
func (e Event) VariantID() string {
	a := e.Data.Attributes
	if a.VariantID != "" {
		return string(a.VariantID)
	}
	if a.FirstOrderItem != nil && a.FirstOrderItem.VariantID != "" {
		return string(a.FirstOrderItem.VariantID)
	}
	if rel := e.Data.Relationships.OrderItems; rel != nil && len(rel.Data) > 0 {
		return string(rel.Data[0].Attributes.VariantID)
	}
	return ""
}

// OrderID prefers the explicit attribute and falls back to the resource id.
func (e Event) OrderID() string {
	if e.Data.Attributes.OrderID != "" {
		return string(e.Data.Attributes.OrderID)
	}
	return string(e.Data.ID)
}

// Catalog maps variant ids back to product keys.
type Catalog map[string]model.AccessLevel

// NewCatalog inverts the configured product→variant table.
func NewCatalog(variants map[model.AccessLevel]string) Catalog {
	c := make(Catalog, len(variants))
	for level, id := range variants {
		if id = strings.TrimSpace(id); id != "" {
			c[id] = level
		}
	}
	return c
}

// Lookup returns the product key for a variant id.  Numeric ids compare
// by value so "0042" and "42" match.
func (c Catalog) Lookup(variantID string) (model.AccessLevel, bool) {
	variantID = strings.TrimSpace(variantID)
	if l, ok := c[variantID]; ok {
		return l, true
	}
	if n, err := strconv.ParseInt(variantID, 10, 64); err == nil {
		for id, l := range c {
			if m, err := strconv.ParseInt(id, 10, 64); err == nil && m == n {
				return l, true
			}
		}
	}
	return "", false
}
