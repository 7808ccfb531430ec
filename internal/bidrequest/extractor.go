package bidrequest

import (
	"encoding/json"
)

// Parse extracts a BidRequest from raw JSON text. See ParseBytes.
func Parse(raw string) (BidRequest, error) {
	return ParseBytes([]byte(raw))
}

// ParseBytes extracts a BidRequest from a JSON document.
//
// It fails only when raw is empty, is not valid JSON, or is valid JSON whose
// top level is not an object. In every other case it returns a fully
// populated record, using defaults for anything missing or unusable:
//
//	regs.coppa                   -> Coppa         (0)
//	imp[0].bidfloor              -> BidFloor      (0.0)
//	imp[0].banner.w / .h / .pos  -> AdSlotWidth, AdSlotHeight, Position (0)
//	device.os                    -> DeviceOS      ("")
//	site.domain                  -> SiteDomain    ("")
//
// Each path is read on its own, so a broken subtree only affects the fields
// under it. Safe for concurrent use.
func ParseBytes(raw []byte) (BidRequest, error) {
	if len(raw) == 0 {
		return BidRequest{}, &InvalidInputError{Reason: "input cannot be empty"}
	}

	// Decoding one level deep validates the whole document and rejects a
	// non-object top level. The subtrees are read lazily below.
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return BidRequest{}, &InvalidInputError{Reason: "malformed document", Err: err}
	}
	if top == nil {
		return BidRequest{}, &InvalidInputError{Reason: "document must be a JSON object"}
	}

	return BidRequest{
		coppa: intAt(raw, 0, "regs", "coppa"),

		bidFloor:     nonNegativeFloatAt(raw, 0, "imp", "[0]", "bidfloor"),
		adSlotWidth:  nonNegativeIntAt(raw, 0, "imp", "[0]", "banner", "w"),
		adSlotHeight: nonNegativeIntAt(raw, 0, "imp", "[0]", "banner", "h"),
		position:     intAt(raw, 0, "imp", "[0]", "banner", "pos"),

		deviceOS: stringAt(raw, "", "device", "os"),

		siteDomain: stringAt(raw, "", "site", "domain"),
	}, nil
}

// RequestID returns the top-level "id" of a bid request, or "" when absent.
// It does not validate raw.
func RequestID(raw []byte) string {
	return TextAt(raw, "id")
}
