package auth

import "unicode/utf8"

const MinPasswordLength = 12

// ValidatePassword lists every rule the password breaks, in a fixed order.
// Letter and digit classes are ASCII only.
func ValidatePassword(password string) []string {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}

	var problems []string
	if utf8.RuneCountInString(password) < MinPasswordLength {
		problems = append(problems, "Password must be at least 12 characters long")
	}
	if !upper {
		problems = append(problems, "Password must contain at least one uppercase letter")
	}
	if !lower {
		problems = append(problems, "Password must contain at least one lowercase letter")
	}
	if !digit {
		problems = append(problems, "Password must contain at least one number")
	}
	if !special {
		problems = append(problems, "Password must contain at least one special character")
	}
	return problems
}
