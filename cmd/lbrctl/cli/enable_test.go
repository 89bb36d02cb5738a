package cli

import "testing"

func TestParsePid(t *testing.T) {
	if pid, err := parsePid("100"); err != nil || pid != 100 {
		t.Errorf("parsePid(100) = %d, %v", pid, err)
	}
	for _, bad := range []string{"0", "-1", "abc", "", "4294967296"} {
		if _, err := parsePid(bad); err == nil {
			t.Errorf("parsePid(%q) succeeded", bad)
		}
	}
}
