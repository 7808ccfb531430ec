// Package targeting derives device attributes from the request's User-Agent.
// It supplements the extracted BidRequest and never changes it.
package targeting

import (
	"fmt"

	"github.com/avct/uasurfer"

	"github.com/patrickwarner/bidextract/internal/bidrequest"
)

// DeviceProfile is what uasurfer can tell about device.ua.
type DeviceProfile struct {
	DeviceType string `json:"device_type"`
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	IsBot      bool   `json:"is_bot"`
}

// DeviceUA returns device.ua from a raw bid request, or "" when absent.
func DeviceUA(raw []byte) string {
	return bidrequest.TextAt(raw, "device", "ua")
}

// ClassifyDevice parses a raw User-Agent string. An empty string yields
// device type "other" and unknown OS/browser names.
func ClassifyDevice(uaString string) DeviceProfile {
	u := uasurfer.Parse(uaString)

	var deviceType string
	switch u.DeviceType {
	case uasurfer.DeviceComputer:
		deviceType = "desktop"
	case uasurfer.DevicePhone:
		deviceType = "mobile"
	case uasurfer.DeviceTablet:
		deviceType = "tablet"
	case uasurfer.DeviceTV:
		deviceType = "ctv"
	default:
		deviceType = "other"
	}

	osName := fmt.Sprintf("%s %s", u.OS.Platform.StringTrimPrefix(), u.OS.Name.StringTrimPrefix())
	v := u.OS.Version
	fullOS := fmt.Sprintf("%s %d.%d.%d", osName, v.Major, v.Minor, v.Patch)

	bv := u.Browser.Version
	fullBrowser := fmt.Sprintf("%s %d.%d.%d", u.Browser.Name.StringTrimPrefix(), bv.Major, bv.Minor, bv.Patch)

	return DeviceProfile{
		DeviceType: deviceType,
		OS:         fullOS,
		Browser:    fullBrowser,
		IsBot:      u.IsBot(),
	}
}

// ClassifyRequest reads device.ua from raw and classifies it.
func ClassifyRequest(raw []byte) DeviceProfile {
	return ClassifyDevice(DeviceUA(raw))
}
