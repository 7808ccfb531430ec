package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/patrickwarner/bidextract/internal/bidrequest"
	"github.com/patrickwarner/bidextract/internal/observability"
	"github.com/patrickwarner/bidextract/internal/targeting"
)

// ExtractInput is the argument of the extract_bid_request tool.
type ExtractInput struct {
	Document string `json:"document" jsonschema:"OpenRTB bid request as JSON text"`
}

// ExtractOutput is the flattened bid request plus the device classification.
type ExtractOutput struct {
	RequestID    string                  `json:"request_id"`
	Coppa        int                     `json:"coppa"`
	IsCoppa      bool                    `json:"is_coppa"`
	AdSlotWidth  int                     `json:"ad_slot_width"`
	AdSlotHeight int                     `json:"ad_slot_height"`
	AdSlotArea   int                     `json:"ad_slot_area"`
	BidFloor     float64                 `json:"bid_floor"`
	Position     int                     `json:"position"`
	DeviceOS     string                  `json:"device_os"`
	SiteDomain   string                  `json:"site_domain"`
	Device       targeting.DeviceProfile `json:"device"`
}

// ExtractServer holds the tool's dependencies.
type ExtractServer struct {
	logger *zap.Logger
}

// ExtractBidRequest implements the extract_bid_request tool. Documents that
// cannot be parsed come back as tool errors.
func (s *ExtractServer) ExtractBidRequest(ctx context.Context, req *mcp.CallToolRequest, input ExtractInput) (*mcp.CallToolResult, ExtractOutput, error) {
	raw := []byte(input.Document)
	br, err := bidrequest.ParseBytes(raw)
	if err != nil {
		s.logger.Info("rejected bid request", zap.Error(err))
		return nil, ExtractOutput{}, err
	}

	out := ExtractOutput{
		RequestID:    bidrequest.RequestID(raw),
		Coppa:        br.Coppa(),
		IsCoppa:      br.IsCoppa(),
		AdSlotWidth:  br.AdSlotWidth(),
		AdSlotHeight: br.AdSlotHeight(),
		AdSlotArea:   br.AdSlotArea(),
		BidFloor:     br.BidFloor(),
		Position:     br.Position(),
		DeviceOS:     br.DeviceOS(),
		SiteDomain:   br.SiteDomain(),
		Device:       targeting.ClassifyRequest(raw),
	}

	text, err := json.Marshal(out)
	if err != nil {
		return nil, ExtractOutput{}, fmt.Errorf("encode result: %w", err)
	}

	s.logger.Debug("extracted bid request",
		zap.String("request_id", out.RequestID),
		zap.String("site_domain", out.SiteDomain))

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
	}, out, nil
}

// newMCPServer registers the extraction tool on a fresh MCP server.
func newMCPServer(logger *zap.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "bidextract",
		Version: observability.ServiceVersion,
	}, nil)

	es := &ExtractServer{logger: logger}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "extract_bid_request",
		Description: "Extract coppa, ad slot size, bid floor, position, device OS and site domain from an OpenRTB bid request",
	}, es.ExtractBidRequest)

	return server
}

func main() {
	// stdout carries the protocol; the production logger writes to stderr.
	logger, err := observability.InitLoggerWithService("bidextract-mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	server := newMCPServer(logger)

	var transport mcp.Transport = &mcp.StdioTransport{}
	if os.Getenv("MCP_LOG_TRAFFIC") == "true" {
		transport = &mcp.LoggingTransport{Transport: transport, Writer: os.Stderr}
	}

	logger.Info("MCP Server running via stdio")
	if err := server.Run(context.Background(), transport); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
