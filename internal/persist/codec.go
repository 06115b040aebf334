package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/cartengine/internal/cart"
)

// SchemaVersion is the envelope schema written by this build.
// Snapshots carrying any other number are discarded on load.
const SchemaVersion = 1

// Key is the storage key for the cart snapshot.
var Key = fmt.Sprintf("cart:v%d", SchemaVersion)

var (
	errUnknownSchema = errors.New("unknown snapshot schema")
	errMissingSchema = errors.New("snapshot has no schema number")
)

type envelope struct {
	Schema  int            `json:"schema"`
	Version int64          `json:"version"`
	Items   []envelopeItem `json:"items"`
}

type envelopeItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// encode renders s as a schema envelope.
// HTML escaping is disabled so product names are stored as written.
func encode(s cart.State) ([]byte, error) {
	env := envelope{
		Schema:  SchemaVersion,
		Version: s.Version,
		Items:   make([]envelopeItem, 0, len(s.Items)),
	}
	for _, li := range s.Items {
		env.Items = append(env.Items, envelopeItem{
			ProductID: li.ProductID,
			Name:      li.Name,
			Quantity:  li.Quantity,
			UnitPrice: formatPrice(li.UnitPrice),
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// formatPrice keeps the scale a price was written with, so 10.00 is stored
// as "10.00" and decodes to the same decimal.
func formatPrice(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// decode parses an envelope and checks the resulting state against the cart
// invariants.
func decode(data []byte) (cart.State, error) {
	var header struct {
		Schema *int `json:"schema"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return cart.State{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if header.Schema == nil {
		return cart.State{}, errMissingSchema
	}
	if *header.Schema != SchemaVersion {
		return cart.State{}, fmt.Errorf("%w %d (want %d)", errUnknownSchema, *header.Schema, SchemaVersion)
	}

	var env envelope
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return cart.State{}, fmt.Errorf("decode snapshot: %w", err)
	}

	s := cart.State{Version: env.Version}
	for i, it := range env.Items {
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return cart.State{}, fmt.Errorf("item %d (%s): unit price %q: %w", i, it.ProductID, it.UnitPrice, err)
		}
		s.Items = append(s.Items, cart.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: price,
		})
	}

	if err := s.Validate(); err != nil {
		return cart.State{}, fmt.Errorf("invalid snapshot: %w", err)
	}
	return s, nil
}
