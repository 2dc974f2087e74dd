package buildinfo

import (
	"strings"
	"testing"
)

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	if !strings.HasPrefix(ua, "licscan/") {
		t.Errorf("UserAgent() = %q, want licscan/ prefix", ua)
	}
}
