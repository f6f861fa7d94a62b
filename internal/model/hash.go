package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests. The version suffix allows the
// row encoding to change without colliding with older digests.
const (
	DomainRows  = "salesmix/rows/v1"
	DomainTable = "salesmix/table/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalRow converts a row to the map form used for digests.
func CanonicalRow(r AttributedSalesRow) map[string]any {
	return map[string]any{
		"brand":             r.Brand,
		"country":           r.Country,
		"sales_channel":     r.SalesChannel,
		"product_group":     r.ProductGroup,
		"product":           r.Product,
		"sales_type":        string(r.SalesType),
		"period":            r.Period.String(),
		"quantity":          r.Quantity,
		"out_of_stock_days": r.OutOfStockDays,
		"avg_unit_price":    r.AvgUnitPrice,
		"revenue":           r.Revenue(),
	}
}

// RowsDigest is a content digest of an ordered row set. Two runs over
// identical inputs produce identical digests.
func RowsDigest(rows []AttributedSalesRow) (string, error) {
	list := make([]any, len(rows))
	for i, r := range rows {
		list[i] = CanonicalRow(r)
	}
	data, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("RowsDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRows, data), nil
}

// TableDigest is a content digest of a header and string rows.
func TableDigest(header []string, rows [][]string) (string, error) {
	list := make([]any, 0, len(rows)+1)
	list = append(list, stringsToAny(header))
	for _, r := range rows {
		list = append(list, stringsToAny(r))
	}
	data, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("TableDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTable, data), nil
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
