package email

import (
	"fmt"
	"strings"
)

// SplitAddress splits an email address into its local part and domain.
func SplitAddress(address string) (localPart, domain string, err error) {
	localPart, domain, ok := strings.Cut(address, "@")
	if !ok || localPart == "" || domain == "" {
		return "", "", fmt.Errorf("malformed address: %q", address)
	}
	return localPart, domain, nil
}
