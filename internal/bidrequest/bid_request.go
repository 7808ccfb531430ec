// Package bidrequest projects the handful of OpenRTB bid-request fields this
// service cares about into a flat, immutable record.
//
// The source document is treated as untrusted and mostly optional: every field
// has a default, and a value of the wrong shape is read as if it were absent.
// Only an empty or syntactically broken document is an error.
package bidrequest

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// BidRequest is the flattened view of an OpenRTB bid request.
// The zero value is the all-defaults record. Values are only produced by
// Parse and ParseBytes and are never modified afterwards.
type BidRequest struct {
	coppa        int
	adSlotWidth  int
	adSlotHeight int
	bidFloor     float64
	position     int
	deviceOS     string
	siteDomain   string
}

// Coppa returns regs.coppa, 0 when absent.
func (b BidRequest) Coppa() int { return b.coppa }

// IsCoppa reports whether the request is flagged as subject to COPPA.
func (b BidRequest) IsCoppa() bool { return b.coppa == 1 }

// AdSlotWidth returns imp[0].banner.w.
func (b BidRequest) AdSlotWidth() int { return b.adSlotWidth }

// AdSlotHeight returns imp[0].banner.h.
func (b BidRequest) AdSlotHeight() int { return b.adSlotHeight }

// AdSlotArea is width times height in square pixels.
func (b BidRequest) AdSlotArea() int { return b.adSlotWidth * b.adSlotHeight }

// BidFloor returns imp[0].bidfloor.
func (b BidRequest) BidFloor() float64 { return b.bidFloor }

// Position returns the OpenRTB ad position code from imp[0].banner.pos.
func (b BidRequest) Position() int { return b.position }

// DeviceOS returns device.os.
func (b BidRequest) DeviceOS() string { return b.deviceOS }

// SiteDomain returns site.domain.
func (b BidRequest) SiteDomain() string { return b.siteDomain }

// Equal reports whether both records carry the same seven stored fields.
// Derived values are not compared.
func (b BidRequest) Equal(other BidRequest) bool {
	return b == other
}

// Key returns a string that is identical for equal records and differs
// for unequal ones. Strings are quoted so separators cannot collide.
func (b BidRequest) Key() string {
	return fmt.Sprintf("%d|%d|%d|%s|%d|%s|%s",
		b.coppa,
		b.adSlotWidth,
		b.adSlotHeight,
		strconv.FormatFloat(b.bidFloor, 'g', -1, 64),
		b.position,
		strconv.Quote(b.deviceOS),
		strconv.Quote(b.siteDomain),
	)
}

// Hash is the xxhash of Key.
func (b BidRequest) Hash() uint64 {
	return xxhash.Sum64String(b.Key())
}

func (b BidRequest) String() string {
	return fmt.Sprintf("BidRequest{coppa=%d, width=%d, height=%d, bidfloor=%.2f, pos=%d, os=%q, domain=%q}",
		b.coppa, b.adSlotWidth, b.adSlotHeight, b.bidFloor, b.position, b.deviceOS, b.siteDomain)
}

// bidRequestJSON is the wire rendering used by the HTTP and MCP surfaces.
type bidRequestJSON struct {
	Coppa        int     `json:"coppa"`
	IsCoppa      bool    `json:"is_coppa"`
	AdSlotWidth  int     `json:"ad_slot_width"`
	AdSlotHeight int     `json:"ad_slot_height"`
	AdSlotArea   int     `json:"ad_slot_area"`
	BidFloor     float64 `json:"bid_floor"`
	Position     int     `json:"position"`
	DeviceOS     string  `json:"device_os"`
	SiteDomain   string  `json:"site_domain"`
}

// MarshalJSON renders stored and derived fields.
func (b BidRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(bidRequestJSON{
		Coppa:        b.coppa,
		IsCoppa:      b.IsCoppa(),
		AdSlotWidth:  b.adSlotWidth,
		AdSlotHeight: b.adSlotHeight,
		AdSlotArea:   b.AdSlotArea(),
		BidFloor:     b.bidFloor,
		Position:     b.position,
		DeviceOS:     b.deviceOS,
		SiteDomain:   b.siteDomain,
	})
}

// Defaulted lists the stored fields that hold their default value.
// Used for metrics only; a defaulted field may also have been sent as the default.
func (b BidRequest) Defaulted() []string {
	var out []string
	if b.coppa == 0 {
		out = append(out, "coppa")
	}
	if b.adSlotWidth == 0 {
		out = append(out, "ad_slot_width")
	}
	if b.adSlotHeight == 0 {
		out = append(out, "ad_slot_height")
	}
	if b.bidFloor == 0 {
		out = append(out, "bid_floor")
	}
	if b.position == 0 {
		out = append(out, "position")
	}
	if b.deviceOS == "" {
		out = append(out, "device_os")
	}
	if b.siteDomain == "" {
		out = append(out, "site_domain")
	}
	return out
}
