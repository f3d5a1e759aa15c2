package auth

import "github.com/ariefcatur/mobirepair-storefront/internal/storefront"

// Demo is the product-demo bypass. A nil *Demo disables it everywhere.
type Demo struct {
	Email    string
	Password string
	Token    string
	User     storefront.User
}

func DefaultDemo() *Demo {
	return &Demo{
		Email:    "demo@mobirepair.com",
		Password: "demo123",
		Token:    "demo-jwt-token-123",
		User: storefront.User{
			ID:    "demo-user-123",
			Name:  "Demo User",
			Email: "demo@mobirepair.com",
			Phone: "+91 7407926912",
			Role:  "user",
		},
	}
}

func (d *Demo) Match(email, password string) bool {
	return d != nil && email == d.Email && password == d.Password
}

func (d *Demo) IsToken(tok string) bool {
	return d != nil && tok != "" && tok == d.Token
}
