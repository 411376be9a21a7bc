//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// Race-enabled runs pay a large bcrypt penalty; drop the cost so
	// the suite stays within test timeouts.
	return bcrypt.DefaultCost
}
