package generation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/foreman/internal/assembly"
	"github.com/JaimeStill/foreman/pkg/currency"
)

const digestPrefix = "sha256:"

var (
	ErrFingerprintMismatch = errors.New("content fingerprint does not match document content")
	ErrInconsistentTotals  = errors.New("document totals are inconsistent")
	ErrNotDistinct         = errors.New("documents from different inputs share content")
)

type canonicalItem struct {
	Kind        string `json:"kind"`
	Line        string `json:"line"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Unit        string `json:"unit"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
}

func canonicalItems(items []assembly.LineItem) []canonicalItem {
	out := make([]canonicalItem, len(items))
	for i, item := range items {
		out[i] = canonicalItem{
			Kind:        string(item.Kind),
			Line:        item.Line,
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice.String(),
			Total:       item.Total.StringFixed(currency.Places),
		}
	}
	return out
}

func digest(v any) string {
	// Struct fields marshal in declaration order and map keys sorted, so the
	// encoding is canonical.
	data, _ := json.Marshal(v)
	sum := sha256.Sum256(data)
	return digestPrefix + hex.EncodeToString(sum[:])
}

// Fingerprint digests the template id, binding snapshot, and line items.
func Fingerprint(templateID string, binding map[string]string, items []assembly.LineItem) string {
	return digest(struct {
		TemplateID string            `json:"template_id"`
		Binding    map[string]string `json:"binding"`
		LineItems  []canonicalItem   `json:"line_items"`
	}{templateID, binding, canonicalItems(items)})
}

// ContentDigest digests the line items alone. Documents from different
// templates or bindings sharing a content digest indicate static content.
func ContentDigest(items []assembly.LineItem) string {
	return digest(canonicalItems(items))
}

// Verify recomputes the document's digests and totals and reports any mismatch.
func Verify(doc *Document) error {
	if got := Fingerprint(doc.TemplateID, doc.Binding, doc.LineItems); got != doc.Fingerprint {
		return fmt.Errorf("%w: stored %s, computed %s", ErrFingerprintMismatch, doc.Fingerprint, got)
	}
	if got := ContentDigest(doc.LineItems); got != doc.ContentDigest {
		return fmt.Errorf("%w: content digest", ErrFingerprintMismatch)
	}

	totals := make([]decimal.Decimal, len(doc.LineItems))
	for i, item := range doc.LineItems {
		want := currency.Round(item.Quantity.Mul(item.UnitPrice))
		if !item.Total.Equal(want) {
			return fmt.Errorf("%w: %s total %s, expected %s", ErrInconsistentTotals, item.Line, item.Total, want)
		}
		totals[i] = item.Total
	}
	if sum := currency.Sum(totals...); !doc.Subtotal.Equal(sum) {
		return fmt.Errorf("%w: subtotal %s, lines sum to %s", ErrInconsistentTotals, doc.Subtotal, sum)
	}
	if total := doc.Subtotal.Add(doc.Tax); !doc.Total.Equal(total) {
		return fmt.Errorf("%w: total %s, subtotal plus tax is %s", ErrInconsistentTotals, doc.Total, total)
	}
	return nil
}

// CheckDistinct reports ErrNotDistinct when two documents generated from
// different template ids or bindings share a fingerprint or line items.
// Documents from identical inputs are regenerations and always pass.
func CheckDistinct(a, b *Document) error {
	if a.TemplateID == b.TemplateID && maps.Equal(a.Binding, b.Binding) {
		return nil
	}
	if a.Fingerprint == b.Fingerprint {
		return fmt.Errorf("%w: identical fingerprint %s", ErrNotDistinct, a.Fingerprint)
	}
	if a.ContentDigest == b.ContentDigest {
		return fmt.Errorf("%w: %s and %s produced identical line items", ErrNotDistinct, describe(a), describe(b))
	}
	return nil
}

func describe(d *Document) string {
	return fmt.Sprintf("%s%v", d.TemplateID, d.Binding)
}
