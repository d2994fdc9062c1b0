package alma

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

type apiVendor struct {
	Code           string `json:"code"`
	AdditionalCode string `json:"additional_code"`
}

// LedgerVendorID maps a vendor additional code to the vendor id used by the
// ledger: leading zeros are stripped from the first token and the second
// character of the second token is appended after a dash.
//
//	"0000008563 0005" -> "8563-0"
//
// Codes without two tokens, or with a second token shorter than two
// characters, map to "".
func LedgerVendorID(additionalCode string) string {
	fields := strings.Fields(additionalCode)
	if len(fields) < 2 || len(fields[1]) < 2 {
		return ""
	}
	return strings.TrimLeft(fields[0], "0") + "-" + fields[1][1:2]
}

// LedgerVendorIDs looks up the additional code of every vendor code and maps
// it to a ledger vendor id. Vendors that cannot be looked up or mapped are
// logged and left out of the result.
func (c *Client) LedgerVendorIDs(ctx context.Context, codes []string) (map[string]string, error) {
	const op = "LedgerVendorIDs"

	ids := make(map[string]string, len(codes))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true

		g.Go(func() error {
			var v apiVendor
			if err := c.get(gctx, "/acq/vendors/"+url.PathEscape(code), url.Values{}, &v); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.log.Warn().Err(err).Str("vendor_code", code).Msg("Failed to look up vendor")
				return nil
			}

			id := LedgerVendorID(v.AdditionalCode)
			if id == "" {
				c.log.Warn().
					Str("vendor_code", code).
					Str("additional_code", v.AdditionalCode).
					Msg("Vendor additional code has no ledger vendor id")
				return nil
			}

			mu.Lock()
			ids[code] = id
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ids, fmt.Errorf("%s: %w", op, err)
	}

	c.log.Debug().Int("vendors", len(seen)).Int("mapped", len(ids)).Msg("Resolved ledger vendor ids")
	return ids, nil
}
