package main

import (
	"math/rand"

	"github.com/prebid/openrtb/v20/adcom1"
	"github.com/prebid/openrtb/v20/openrtb2"
)

var (
	userAgents = []string{
		// Mobile
		"Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Linux; Android 12; Pixel 6 Pro) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.5735.196 Mobile Safari/537.36",
		"Mozilla/5.0 (iPad; CPU OS 15_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.2 Mobile/15E148 Safari/604.1",

		// Desktop
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_3_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Safari/605.1.15",
		"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:111.0) Gecko/20100101 Firefox/111.0",
	}
	osNames = []string{"iOS", "Android", "iPadOS", "Windows", "macOS", "Linux"}
	domains = []string{"www.example.com", "news.example.org", "sports.example.net", "blog.example.io"}
	sizes   = [][2]int64{{300, 250}, {728, 90}, {320, 50}, {160, 600}, {970, 250}}
	ips     = []string{"192.0.2.1", "198.51.100.1", "203.0.113.1"}

	positions = []adcom1.PlacementPosition{
		adcom1.PositionUnknown,
		adcom1.PositionAboveFold,
		adcom1.PositionBelowFold,
		adcom1.PositionHeader,
		adcom1.PositionSideBar,
	}

	malformedDocs = []string{
		"",
		"{not valid json",
		`{"imp":[{"banner":{"w":300}}]`,
		"[1,2,3]",
		"null",
	}
)

// generator builds synthetic traffic. Not safe for concurrent use.
type generator struct {
	rnd *rand.Rand
}

func newGenerator(r *rand.Rand) *generator {
	return &generator{rnd: r}
}

// bidRequest returns a plausible banner request. A few optional objects are
// left out at random so the extractor's defaults get exercised.
func (g *generator) bidRequest() *openrtb2.BidRequest {
	ua := g.rnd.Intn(len(userAgents))
	size := sizes[g.rnd.Intn(len(sizes))]

	req := &openrtb2.BidRequest{
		ID: requestID(g.rnd),
		Imp: []openrtb2.Imp{{
			ID:          "1",
			BidFloor:    float64(g.rnd.Intn(500)) / 100,
			BidFloorCur: "USD",
			Banner: &openrtb2.Banner{
				W:   &size[0],
				H:   &size[1],
				Pos: positions[g.rnd.Intn(len(positions))].Ptr(),
			},
		}},
		Device: &openrtb2.Device{
			UA: userAgents[ua],
			IP: ips[g.rnd.Intn(len(ips))],
			OS: osNames[ua],
		},
		Site: &openrtb2.Site{
			ID:     "102855",
			Domain: domains[g.rnd.Intn(len(domains))],
		},
		Cur: []string{"USD"},
	}
	if g.rnd.Intn(20) == 0 {
		req.Regs = &openrtb2.Regs{COPPA: 1}
	}
	if g.rnd.Intn(10) == 0 {
		req.Device = nil
	}
	if g.rnd.Intn(10) == 0 {
		req.Site = nil
	}
	return req
}

// malformed returns a document the extractor must reject.
func (g *generator) malformed() []byte {
	return []byte(malformedDocs[g.rnd.Intn(len(malformedDocs))])
}
